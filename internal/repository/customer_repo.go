package repository

import (
	"context"
	"errors"

	"agencyledger/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrCustomerNotFound = errors.New("客户不存在")

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).First(&customer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// GetByIDForUpdate 加行锁读取，结算期间锁住客户行
func (r *CustomerRepository) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id int64) (*model.Customer, error) {
	var customer model.Customer
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&customer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) List(ctx context.Context) ([]*model.Customer, error) {
	var customers []*model.Customer
	err := r.db.WithContext(ctx).Order("id ASC").Find(&customers).Error
	return customers, err
}

// AddBalance 调整客户余额（delta 可正可负）
func (r *CustomerRepository) AddBalance(ctx context.Context, tx *gorm.DB, id int64, delta int64) error {
	result := tx.WithContext(ctx).
		Model(&model.Customer{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrCustomerNotFound
	}

	return nil
}
