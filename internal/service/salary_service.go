package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"agencyledger/internal/config"
	"agencyledger/internal/model"
	"agencyledger/internal/repository"
	"agencyledger/pkg/idgen"

	"gorm.io/gorm"
)

// SalaryService 工资单管理与发放
type SalaryService struct {
	db              *gorm.DB
	cfg             *config.Config
	salaryRepo      *repository.SalaryRepository
	employeeRepo    *repository.EmployeeRepository
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewSalaryService(db *gorm.DB, cfg *config.Config) *SalaryService {
	return &SalaryService{
		db:              db,
		cfg:             cfg,
		salaryRepo:      repository.NewSalaryRepository(db),
		employeeRepo:    repository.NewEmployeeRepository(db),
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type CreateSalaryRequest struct {
	EmployeeID int64 `json:"employee_id" binding:"required"`
	Amount     int64 `json:"amount" binding:"required,gt=0"`
	Month      int   `json:"month" binding:"required,min=1,max=12"`
	Year       int   `json:"year" binding:"required"`
}

func (s *SalaryService) CreateSalary(ctx context.Context, req *CreateSalaryRequest) (*model.Salary, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID); err != nil {
		return nil, err
	}

	salary := &model.Salary{
		EmployeeID: req.EmployeeID,
		Amount:     req.Amount,
		Month:      req.Month,
		Year:       req.Year,
		Status:     model.SalaryStatusUnpaid,
	}
	if err := s.salaryRepo.Create(ctx, salary); err != nil {
		return nil, fmt.Errorf("创建工资单失败: %w", err)
	}
	return salary, nil
}

func (s *SalaryService) ListSalaries(ctx context.Context, employeeID int64, status string) ([]*model.Salary, error) {
	return s.salaryRepo.List(ctx, employeeID, status)
}

type PaySalaryRequest struct {
	SalaryID  int64      `json:"salary_id" binding:"required"`
	AccountID int64      `json:"account_id" binding:"required"`
	PaidDate  *time.Time `json:"paid_date"`
}

// PaySalary 发放工资：最简形态的结算，单笔一次性付清
//
// 原子完成：UNPAID -> PAID、记发放日期、写一条支出流水、扣减付款账户
// 状态条件更新保证并发重复发放只有一次生效
func (s *SalaryService) PaySalary(ctx context.Context, req *PaySalaryRequest) error {
	salary, err := s.salaryRepo.GetByID(ctx, req.SalaryID)
	if err != nil {
		return err
	}
	if !model.CanSalaryTransitionTo(salary.Status, model.SalaryStatusPaid) {
		return repository.ErrSalaryStatusInvalid
	}
	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err != nil {
		return err
	}

	paidDate := time.Now()
	if req.PaidDate != nil {
		paidDate = *req.PaidDate
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.salaryRepo.MarkPaid(ctx, tx, req.SalaryID, paidDate); err != nil {
			return err
		}

		if err := s.accountRepo.Deduct(ctx, tx, req.AccountID, salary.Amount); err != nil {
			return err
		}

		salaryID := salary.ID
		trans := &model.Transaction{
			TransactionNo:  idgen.GenerateTransactionNo(),
			Date:           paidDate,
			Amount:         salary.Amount,
			Type:           model.TransactionTypeExpense,
			Category:       model.CategorySalary,
			AccountID:      req.AccountID,
			Description:    fmt.Sprintf("工资发放 %d-%02d", salary.Year, salary.Month),
			ReferenceID:    &salaryID,
			ReferenceModel: model.ReferenceModelSalary,
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		msgPayload := map[string]interface{}{
			"salary_id":   salary.ID,
			"employee_id": salary.EmployeeID,
			"account_id":  req.AccountID,
			"amount":      salary.Amount,
			"paid_at":     paidDate.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: trans.TransactionNo,
			Topic:      s.cfg.Kafka.Topic.SettlementResult,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入结算事件失败: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("工资发放成功: salaryID=%d, employeeID=%d, amount=%d", salary.ID, salary.EmployeeID, salary.Amount)
	return nil
}

type CreateEmployeeRequest struct {
	Name          string `json:"name" binding:"required"`
	Phone         string `json:"phone"`
	Designation   string `json:"designation"`
	MonthlySalary int64  `json:"monthly_salary" binding:"gte=0"`
}

func (s *SalaryService) CreateEmployee(ctx context.Context, req *CreateEmployeeRequest) (*model.Employee, error) {
	employee := &model.Employee{
		Name:          req.Name,
		Phone:         req.Phone,
		Designation:   req.Designation,
		MonthlySalary: req.MonthlySalary,
	}
	if err := s.employeeRepo.Create(ctx, employee); err != nil {
		return nil, fmt.Errorf("创建员工失败: %w", err)
	}
	return employee, nil
}

func (s *SalaryService) ListEmployees(ctx context.Context) ([]*model.Employee, error) {
	return s.employeeRepo.List(ctx)
}
