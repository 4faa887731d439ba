package repository

import (
	"context"
	"errors"

	"agencyledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrReceivableNotFound = errors.New("应收账款不存在")

type ReceivableRepository struct {
	db *gorm.DB
}

func NewReceivableRepository(db *gorm.DB) *ReceivableRepository {
	return &ReceivableRepository{db: db}
}

func (r *ReceivableRepository) Create(ctx context.Context, tx *gorm.DB, row *model.Receivable) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(row).Error
}

func (r *ReceivableRepository) GetByID(ctx context.Context, id int64) (*model.Receivable, error) {
	var row model.Receivable
	err := r.db.WithContext(ctx).First(&row, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReceivableNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ListOpenByCustomerForUpdate 加行锁取出客户所有未结清应收，按清偿顺序返回
//
// 【关键点】MySQL 的 ASC 排序把 NULL 排在最前，与"无到期日视为最早到期"的约定一致；
// 分摊计算前仍会用 model.SortReceivablesByDueDate 重排一次，不依赖数据库的隐式行为
func (r *ReceivableRepository) ListOpenByCustomerForUpdate(ctx context.Context, tx *gorm.DB, customerID int64) ([]*model.Receivable, error) {
	var rows []*model.Receivable
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND status <> ?", customerID, model.ObligationStatusPaid).
		Order("due_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ReceivableRepository) ListByCustomer(ctx context.Context, customerID int64, status string) ([]*model.Receivable, error) {
	var rows []*model.Receivable
	q := r.db.WithContext(ctx).Where("customer_id = ?", customerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("due_date ASC, id ASC").Find(&rows).Error
	return rows, err
}

// ListOpen 所有未结清应收（账龄分析用）
func (r *ReceivableRepository) ListOpen(ctx context.Context) ([]*model.Receivable, error) {
	var rows []*model.Receivable
	err := r.db.WithContext(ctx).
		Where("status <> ?", model.ObligationStatusPaid).
		Order("due_date ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// UpdateAmounts 写回分摊结果，状态必须与金额一起重算后传入
func (r *ReceivableRepository) UpdateAmounts(ctx context.Context, tx *gorm.DB, id int64, amount, paidAmount int64, status string) error {
	result := tx.WithContext(ctx).
		Model(&model.Receivable{}).
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
		return ErrReceivableNotFound
	}

	return nil
}
