package service

import (
	"context"
	"fmt"
	"time"

	"agencyledger/internal/model"
	"agencyledger/internal/repository"
	"agencyledger/pkg/idgen"

	"gorm.io/gorm"
)

// AccountService 资金账户管理与独立收支记账
type AccountService struct {
	db              *gorm.DB
	accountRepo     *repository.AccountRepository
	transactionRepo *repository.TransactionRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:              db,
		accountRepo:     repository.NewAccountRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

type CreateAccountRequest struct {
	Name          string `json:"name" binding:"required"`
	Type          string `json:"type" binding:"required"`
	Balance       int64  `json:"balance" binding:"gte=0"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*model.Account, error) {
	if !model.IsValidAccountType(req.Type) {
		return nil, fmt.Errorf("账户类型不合法: %s", req.Type)
	}

	account := &model.Account{
		Name:          req.Name,
		Type:          req.Type,
		Balance:       req.Balance,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("创建账户失败: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	return s.accountRepo.GetByID(ctx, id)
}

func (s *AccountService) ListAccounts(ctx context.Context) ([]*model.Account, error) {
	return s.accountRepo.List(ctx)
}

type RecordEntryRequest struct {
	AccountID int64      `json:"account_id" binding:"required"`
	Amount    int64      `json:"amount" binding:"required,gt=0"`
	Type      string     `json:"type" binding:"required"` // INCOME/EXPENSE
	Category  string     `json:"category" binding:"required"`
	Date      *time.Time `json:"date"`
	Note      string     `json:"note"`
}

// RecordEntry 记一笔与债务无关的独立收支（房租、杂项收入等）
// 流水与账户余额变更同一事务，支出沿用条件扣款防透支
func (s *AccountService) RecordEntry(ctx context.Context, req *RecordEntryRequest) (*model.Transaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Type != model.TransactionTypeIncome && req.Type != model.TransactionTypeExpense {
		return nil, fmt.Errorf("交易类型不合法: %s", req.Type)
	}
	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err != nil {
		return nil, err
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	trans := &model.Transaction{
		TransactionNo: idgen.GenerateTransactionNo(),
		Date:          date,
		Amount:        req.Amount,
		Type:          req.Type,
		Category:      req.Category,
		AccountID:     req.AccountID,
		Description:   req.Note,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if req.Type == model.TransactionTypeExpense {
			if err := s.accountRepo.Deduct(ctx, tx, req.AccountID, req.Amount); err != nil {
				return err
			}
		} else {
			if err := s.accountRepo.Increase(ctx, tx, req.AccountID, req.Amount); err != nil {
				return err
			}
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return trans, nil
}

func (s *AccountService) ListTransactions(ctx context.Context, page, pageSize int) ([]*model.Transaction, int64, error) {
	return s.transactionRepo.List(ctx, page, pageSize)
}
