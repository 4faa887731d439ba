package model

import (
	"time"
)

const (
	SalaryStatusUnpaid = "UNPAID"
	SalaryStatusPaid   = "PAID"
)

// ValidSalaryTransitions 工资状态机：只允许 UNPAID -> PAID，单向不可逆
var ValidSalaryTransitions = map[string][]string{
	SalaryStatusUnpaid: {SalaryStatusPaid},
}

func CanSalaryTransitionTo(currentStatus, targetStatus string) bool {
	allowedStatuses, exists := ValidSalaryTransitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Employee 员工表
type Employee struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(64);not null" json:"name"`
	Phone         string    `gorm:"type:varchar(32)" json:"phone"`
	Designation   string    `gorm:"type:varchar(64)" json:"designation"`
	MonthlySalary int64     `gorm:"not null;default:0" json:"monthly_salary"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Employee) TableName() string {
	return "employee"
}

// Salary 工资单表
// 发放动作在一个事务内：置为 PAID、写支出流水、扣减付款账户
type Salary struct {
	ID         int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	EmployeeID int64      `gorm:"index;not null" json:"employee_id"`
	Amount     int64      `gorm:"not null" json:"amount"`
	Month      int        `gorm:"not null" json:"month"` // 1-12
	Year       int        `gorm:"not null" json:"year"`
	Status     string     `gorm:"type:varchar(20);index;not null;default:UNPAID" json:"status"`
	PaidDate   *time.Time `json:"paid_date"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Salary) TableName() string {
	return "salary"
}
