package repository

import (
	"context"
	"errors"
	"time"

	"agencyledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrSalaryNotFound      = errors.New("工资单不存在")
	ErrSalaryStatusInvalid = errors.New("工资单状态不允许该操作")
)

type SalaryRepository struct {
	db *gorm.DB
}

func NewSalaryRepository(db *gorm.DB) *SalaryRepository {
	return &SalaryRepository{db: db}
}

func (r *SalaryRepository) Create(ctx context.Context, salary *model.Salary) error {
	return r.db.WithContext(ctx).Create(salary).Error
}

func (r *SalaryRepository) GetByID(ctx context.Context, id int64) (*model.Salary, error) {
	var salary model.Salary
	err := r.db.WithContext(ctx).First(&salary, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSalaryNotFound
		}
		return nil, err
	}
	return &salary, nil
}

func (r *SalaryRepository) List(ctx context.Context, employeeID int64, status string) ([]*model.Salary, error) {
	var rows []*model.Salary
	q := r.db.WithContext(ctx)
	if employeeID > 0 {
		q = q.Where("employee_id = ?", employeeID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Order("year DESC, month DESC, id DESC").Find(&rows).Error
	return rows, err
}

// MarkPaid 条件更新 UNPAID -> PAID
//
// 【关键点】状态前置条件写进 WHERE，并发重复发放时只有一个请求能生效，
// RowsAffected=0 即状态已变更，报 ErrSalaryStatusInvalid
func (r *SalaryRepository) MarkPaid(ctx context.Context, tx *gorm.DB, id int64, paidDate time.Time) error {
	result := tx.WithContext(ctx).
		Model(&model.Salary{}).
		Where("id = ? AND status = ?", id, model.SalaryStatusUnpaid).
		Updates(map[string]interface{}{
			"status":    model.SalaryStatusPaid,
			"paid_date": &paidDate,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrSalaryStatusInvalid
	}

	return nil
}
