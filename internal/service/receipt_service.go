package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agencyledger/internal/config"
	"agencyledger/internal/infrastructure/lock"
	"agencyledger/internal/model"
	"agencyledger/internal/repository"
	"agencyledger/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// ReceiptService 客户收款结算
//
// 一笔客户付款的完整执行单元：
//   分摊计算 -> 债务冲销 -> 流水落库 -> 账户入账 -> 客户余额调整 -> 结算事件
// 所有写操作在一个数据库事务内完成，任何一步失败全部回滚
type ReceiptService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	customerRepo    *repository.CustomerRepository
	receivableRepo  *repository.ReceivableRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewReceiptService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *ReceiptService {
	return &ReceiptService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		customerRepo:    repository.NewCustomerRepository(db),
		receivableRepo:  repository.NewReceivableRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type RecordPaymentRequest struct {
	CustomerID  int64      `json:"customer_id" binding:"required"`
	AccountID   int64      `json:"account_id" binding:"required"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Discount    int64      `json:"discount" binding:"gte=0"`
	ExtraCharge int64      `json:"extra_charge" binding:"gte=0"`
	Date        *time.Time `json:"date"`
	Note        string     `json:"note"`
}

type RecordPaymentResponse struct {
	ReceiptNo        string `json:"receipt_no"`
	AppliedAmount    int64  `json:"applied_amount"`
	SettledAmount    int64  `json:"settled_amount"`
	DiscountedAmount int64  `json:"discounted_amount"`
	AdvanceAmount    int64  `json:"advance_amount"`
	TotalDue         int64  `json:"total_due"`
}

// RecordPayment 记录客户付款并按到期日顺序冲销其未结清应收
//
// 【关键点】同一客户的结算必须串行：
// 1. Redis 结算锁挡住并发请求，防止两笔付款读到同一份 remaining 双倍冲销
// 2. 事务内再对客户行和应收行加 FOR UPDATE，锁失效时由数据库兜底
func (s *ReceiptService) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*RecordPaymentResponse, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Discount < 0 || req.ExtraCharge < 0 {
		return nil, ErrInvalidAmount
	}

	// 前置校验，失败时不产生任何写入
	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err != nil {
		return nil, err
	}

	receiptNo := idgen.GenerateReceiptNo()
	settleDate := time.Now()
	if req.Date != nil {
		settleDate = *req.Date
	}

	// 获取结算锁（按客户维度）
	settleLock := lock.NewSettleLock(s.redisClient, model.PartyTypeCustomer, req.CustomerID, receiptNo)
	if err := settleLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer settleLock.Unlock(ctx)

	var resp *RecordPaymentResponse

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.customerRepo.GetByIDForUpdate(ctx, tx, req.CustomerID); err != nil {
			return err
		}

		open, err := s.receivableRepo.ListOpenByCustomerForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return fmt.Errorf("查询未结清应收失败: %w", err)
		}
		model.SortReceivablesByDueDate(open)

		var totalDueBefore int64
		for _, r := range open {
			totalDueBefore += r.Remaining()
		}

		plan, err := allocate(receivableStates(open), req.Amount, req.Discount, req.ExtraCharge, settleDate, s.cfg.Business.ExtraChargeDueDays)
		if err != nil {
			return err
		}

		// (a) 冲销各笔应收
		for _, line := range plan.Lines {
			if err := s.receivableRepo.UpdateAmounts(ctx, tx, line.ObligationID, line.NewAmount, line.NewPaidAmount, line.NewStatus); err != nil {
				return fmt.Errorf("冲销应收失败: %w", err)
			}
		}

		// (b) 逐行写收入流水
		customerID := req.CustomerID
		for _, pt := range plan.Transactions {
			trans := &model.Transaction{
				TransactionNo: idgen.GenerateTransactionNo(),
				Date:          settleDate,
				Amount:        pt.Amount,
				Type:          model.TransactionTypeIncome,
				Category:      pt.Category,
				AccountID:     req.AccountID,
				CustomerID:    &customerID,
				Description:   req.Note,
				ReferenceID:   pt.ObligationID,
			}
			if pt.ObligationID != nil {
				trans.ReferenceModel = model.ReferenceModelReceivable
			}
			if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		// (c) 追加费用生成新应收
		if plan.ExtraCharge > 0 {
			dueDate := plan.ExtraDueDate
			extra := &model.Receivable{
				CustomerID:  req.CustomerID,
				Amount:      plan.ExtraCharge,
				Date:        settleDate,
				DueDate:     &dueDate,
				Status:      model.ObligationStatusUnpaid,
				Description: "结算追加费用",
			}
			if err := s.receivableRepo.Create(ctx, tx, extra); err != nil {
				return fmt.Errorf("创建追加费用失败: %w", err)
			}
		}

		// (d) 资金账户入账实收金额
		if err := s.accountRepo.Increase(ctx, tx, req.AccountID, plan.AppliedTotal()); err != nil {
			return fmt.Errorf("账户入账失败: %w", err)
		}

		// (e) 调整客户余额
		if err := s.customerRepo.AddBalance(ctx, tx, req.CustomerID, plan.PartyDelta()); err != nil {
			return fmt.Errorf("调整客户余额失败: %w", err)
		}

		// (f) 结算事件写入发件箱，与业务数据同事务
		msgPayload := map[string]interface{}{
			"receipt_no":  receiptNo,
			"party_type":  model.PartyTypeCustomer,
			"party_id":    req.CustomerID,
			"account_id":  req.AccountID,
			"applied":     plan.AppliedTotal(),
			"settled":     plan.SettledTotal,
			"discounted":  plan.DiscountTotal,
			"advance":     plan.AdvanceTotal,
			"extra":       plan.ExtraCharge,
			"settled_at":  settleDate.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: receiptNo,
			Topic:      s.cfg.Kafka.Topic.SettlementResult,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入结算事件失败: %w", err)
		}

		resp = &RecordPaymentResponse{
			ReceiptNo:        receiptNo,
			AppliedAmount:    plan.AppliedTotal(),
			SettledAmount:    plan.SettledTotal,
			DiscountedAmount: plan.DiscountTotal,
			AdvanceAmount:    plan.AdvanceTotal,
			TotalDue:         totalDueBefore - plan.SettledTotal - plan.DiscountTotal + plan.ExtraCharge,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	log.Printf("客户收款结算成功: receiptNo=%s, customerID=%d, applied=%d, settled=%d, advance=%d",
		receiptNo, req.CustomerID, resp.AppliedAmount, resp.SettledAmount, resp.AdvanceAmount)

	return resp, nil
}

type CreateReceivableRequest struct {
	CustomerID  int64      `json:"customer_id" binding:"required"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Date        *time.Time `json:"date"`
	DueDate     *time.Time `json:"due_date"`
	Description string     `json:"description"`
}

// CreateReceivable 新建应收，客户余额同步增加敞口
// 新建债务一律从 UNPAID / paidAmount=0 起步
func (s *ReceiptService) CreateReceivable(ctx context.Context, req *CreateReceivableRequest) (*model.Receivable, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := s.customerRepo.GetByID(ctx, req.CustomerID); err != nil {
		return nil, err
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	row := &model.Receivable{
		CustomerID:  req.CustomerID,
		Amount:      req.Amount,
		Date:        date,
		DueDate:     req.DueDate,
		Status:      model.ObligationStatusUnpaid,
		Description: req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.receivableRepo.Create(ctx, tx, row); err != nil {
			return fmt.Errorf("创建应收失败: %w", err)
		}
		if err := s.customerRepo.AddBalance(ctx, tx, req.CustomerID, req.Amount); err != nil {
			return fmt.Errorf("调整客户余额失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}

func (s *ReceiptService) ListReceivables(ctx context.Context, customerID int64, status string) ([]*model.Receivable, error) {
	if customerID <= 0 {
		return nil, errors.New("customer_id 不合法")
	}
	return s.receivableRepo.ListByCustomer(ctx, customerID, status)
}

// RecomputeCustomerBalance 对账修复：以未结清应收重算客户余额应有值
// 缓存余额与流水真值出现漂移时用于排查，不直接写库
func (s *ReceiptService) RecomputeCustomerBalance(ctx context.Context, customerID int64) (int64, error) {
	rows, err := s.receivableRepo.ListByCustomer(ctx, customerID, "")
	if err != nil {
		return 0, err
	}
	var total int64
	for _, r := range rows {
		total += r.Remaining()
	}
	return total, nil
}
