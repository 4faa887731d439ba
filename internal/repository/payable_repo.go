package repository

import (
	"context"
	"errors"

	"agencyledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrPayableNotFound = errors.New("应付账款不存在")

type PayableRepository struct {
	db *gorm.DB
}

func NewPayableRepository(db *gorm.DB) *PayableRepository {
	return &PayableRepository{db: db}
}

func (r *PayableRepository) Create(ctx context.Context, tx *gorm.DB, row *model.Payable) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(row).Error
}

func (r *PayableRepository) GetByID(ctx context.Context, id int64) (*model.Payable, error) {
	var row model.Payable
	err := r.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayableNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *PayableRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Payable, error) {
	var row model.Payable
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayableNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListOpenByVendorForUpdate 加行锁取出供应商所有未付清应付，按清偿顺序返回
func (r *PayableRepository) ListOpenByVendorForUpdate(ctx context.Context, tx *gorm.DB, vendorID int64) ([]*model.Payable, error) {
	var rows []*model.Payable
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ? AND status <> ?", vendorID, model.ObligationStatusPaid).
		Order("due_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *PayableRepository) ListByVendor(ctx context.Context, vendorID int64, status string) ([]*model.Payable, error) {
	var rows []*model.Payable
	q := r.db.WithContext(ctx)
	if vendorID > 0 {
		q = q.Where("vendor_id = ?", vendorID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("due_date ASC, id ASC").Find(&rows).Error
	return rows, err
}

// ListOpen 所有未付清应付（账龄分析用）
func (r *PayableRepository) ListOpen(ctx context.Context) ([]*model.Payable, error) {
	var rows []*model.Payable
	err := r.db.WithContext(ctx).
		Where("status <> ?", model.ObligationStatusPaid).
		Order("due_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateAmounts 写回分摊结果
func (r *PayableRepository) UpdateAmounts(ctx context.Context, tx *gorm.DB, id int64, amount, paidAmount int64, status string) error {
	result := tx.WithContext(ctx).
		Model(&model.Payable{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"amount":      amount,
			"paid_amount": paidAmount,
			"status":      status,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrPayableNotFound
	}

	return nil
}

// Update 编辑应付（可能同时变更归属供应商）
func (r *PayableRepository) Update(ctx context.Context, tx *gorm.DB, row *model.Payable) error {
	return tx.WithContext(ctx).Save(row).Error
}

func (r *PayableRepository) Delete(ctx context.Context, tx *gorm.DB, id int64) error {
	result := tx.WithContext(ctx).Delete(&model.Payable{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPayableNotFound
	}
	return nil
}
