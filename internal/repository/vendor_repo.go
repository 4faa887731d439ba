package repository

import (
	"context"
	"errors"

	"agencyledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrVendorNotFound = errors.New("供应商不存在")

type VendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) *VendorRepository {
	return &VendorRepository{db: db}
}

func (r *VendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *VendorRepository) GetByID(ctx context.Context, id int64) (*model.Vendor, error) {
	var vendor model.Vendor
	err := r.db.WithContext(ctx).First(&vendor, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

// GetByIDForUpdate 加行锁读取，结算期间锁住供应商行
func (r *VendorRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Vendor, error) {
	var vendor model.Vendor
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&vendor, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return &vendor, nil
}

func (r *VendorRepository) List(ctx context.Context) ([]*model.Vendor, error) {
	var vendors []*model.Vendor
	err := r.db.WithContext(ctx).Order("id ASC").Find(&vendors).Error
	return vendors, err
}

// AddBalance 调整供应商余额（delta 可正可负）
func (r *VendorRepository) AddBalance(ctx context.Context, tx *gorm.DB, id int64, delta int64) error {
	result := tx.WithContext(ctx).
		Model(&model.Vendor{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrVendorNotFound
	}

	return nil
}
