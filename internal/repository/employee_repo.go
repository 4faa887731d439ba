package repository

import (
	"context"
	"errors"

	"agencyledger/internal/model"

	"gorm.io/gorm"
)

var ErrEmployeeNotFound = errors.New("员工不存在")

type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) Create(ctx context.Context, employee *model.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*model.Employee, error) {
	var employee model.Employee
	err := r.db.WithContext(ctx).First(&employee, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *EmployeeRepository) List(ctx context.Context) ([]*model.Employee, error) {
	var employees []*model.Employee
	err := r.db.WithContext(ctx).Order("id ASC").Find(&employees).Error
	return employees, err
}
