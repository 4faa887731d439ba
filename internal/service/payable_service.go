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

var ErrPaymentExceedsObligation = errors.New("付款金额超过该笔债务的未付金额")

// PayableService 应付账款管理与供应商付款结算
//
// 与客户收款方向相反：付款从资金账户扣款（余额不足整体拒绝），
// 供应商余额（未付总额）随冲销减少、随新增应付增加
type PayableService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	cfg             *config.Config
	accountRepo     *repository.AccountRepository
	vendorRepo      *repository.VendorRepository
	payableRepo     *repository.PayableRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewPayableService(db *gorm.DB, redisClient *redis.Client, cfg *config.Config) *PayableService {
	return &PayableService{
		db:              db,
		redisClient:     redisClient,
		cfg:             cfg,
		accountRepo:     repository.NewAccountRepository(db),
		vendorRepo:      repository.NewVendorRepository(db),
		payableRepo:     repository.NewPayableRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type VendorPaymentRequest struct {
	VendorID    int64      `json:"vendor_id" binding:"required"`
	AccountID   int64      `json:"account_id" binding:"required"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Discount    int64      `json:"discount" binding:"gte=0"`
	ExtraCharge int64      `json:"extra_charge" binding:"gte=0"`
	Date        *time.Time `json:"date"`
	Note        string     `json:"note"`
}

// RecordPayment 记录对供应商的付款并按到期日顺序冲销未付清应付
//
// 余额检查放在条件扣款里：余额不足时事务整体回滚，绝不产生部分付款
func (s *PayableService) RecordPayment(ctx context.Context, req *VendorPaymentRequest) (*RecordPaymentResponse, error) {
	if req.Amount <= 0 || req.Discount < 0 || req.ExtraCharge < 0 {
		return nil, ErrInvalidAmount
	}

	if _, err := s.vendorRepo.GetByID(ctx, req.VendorID); err != nil {
		return nil, err
	}
	if _, err := s.accountRepo.GetByID(ctx, req.AccountID); err != nil {
		return nil, err
	}

	paymentNo := idgen.GeneratePaymentNo()
	settleDate := time.Now()
	if req.Date != nil {
		settleDate = *req.Date
	}

	settleLock := lock.NewSettleLock(s.redisClient, model.PartyTypeVendor, req.VendorID, paymentNo)
	if err := settleLock.Lock(ctx, 100*time.Millisecond, 30); err != nil {
		return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
	}
	defer settleLock.Unlock(ctx)

	var resp *RecordPaymentResponse

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.vendorRepo.GetByIDForUpdate(ctx, tx, req.VendorID); err != nil {
			return err
		}

		open, err := s.payableRepo.ListOpenByVendorForUpdate(ctx, tx, req.VendorID)
		if err != nil {
			return fmt.Errorf("查询未付清应付失败: %w", err)
		}
		model.SortPayablesByDueDate(open)

		var totalDueBefore int64
		for _, p := range open {
			totalDueBefore += p.Remaining()
		}

		plan, err := allocate(payableStates(open), req.Amount, req.Discount, req.ExtraCharge, settleDate, s.cfg.Business.ExtraChargeDueDays)
		if err != nil {
			return err
		}

		// (a) 冲销各笔应付
		for _, line := range plan.Lines {
			if err := s.payableRepo.UpdateAmounts(ctx, tx, line.ObligationID, line.NewAmount, line.NewPaidAmount, line.NewStatus); err != nil {
				return fmt.Errorf("冲销应付失败: %w", err)
			}
		}

		// (b) 逐行写支出流水
		vendorID := req.VendorID
		for _, pt := range plan.Transactions {
			trans := &model.Transaction{
				TransactionNo: idgen.GenerateTransactionNo(),
				Date:          settleDate,
				Amount:        pt.Amount,
				Type:          model.TransactionTypeExpense,
				Category:      pt.Category,
				AccountID:     req.AccountID,
				VendorID:      &vendorID,
				Description:   req.Note,
				ReferenceID:   pt.ObligationID,
			}
			if pt.ObligationID != nil {
				trans.ReferenceModel = model.ReferenceModelPayable
			}
			if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
				return fmt.Errorf("记录流水失败: %w", err)
			}
		}

		// (c) 追加费用生成新应付
		if plan.ExtraCharge > 0 {
			dueDate := plan.ExtraDueDate
			extra := &model.Payable{
				VendorID:    req.VendorID,
				Amount:      plan.ExtraCharge,
				Date:        settleDate,
				DueDate:     &dueDate,
				Status:      model.ObligationStatusUnpaid,
				Description: "结算追加费用",
			}
			if err := s.payableRepo.Create(ctx, tx, extra); err != nil {
				return fmt.Errorf("创建追加费用失败: %w", err)
			}
		}

		// (d) 资金账户扣款，余额不足在这里整体失败
		if err := s.accountRepo.Deduct(ctx, tx, req.AccountID, plan.AppliedTotal()); err != nil {
			return err
		}

		// (e) 调整供应商余额
		if err := s.vendorRepo.AddBalance(ctx, tx, req.VendorID, plan.PartyDelta()); err != nil {
			return fmt.Errorf("调整供应商余额失败: %w", err)
		}

		// (f) 结算事件
		msgPayload := map[string]interface{}{
			"payment_no": paymentNo,
			"party_type": model.PartyTypeVendor,
			"party_id":   req.VendorID,
			"account_id": req.AccountID,
			"applied":    plan.AppliedTotal(),
			"settled":    plan.SettledTotal,
			"discounted": plan.DiscountTotal,
			"advance":    plan.AdvanceTotal,
			"extra":      plan.ExtraCharge,
			"settled_at": settleDate.Format(time.RFC3339),
		}
		payloadBytes, _ := json.Marshal(msgPayload)

		outboxMsg := &model.OutboxMessage{
			MessageKey: paymentNo,
			Topic:      s.cfg.Kafka.Topic.SettlementResult,
			Payload:    string(payloadBytes),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入结算事件失败: %w", err)
		}

		resp = &RecordPaymentResponse{
			ReceiptNo:        paymentNo,
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

	log.Printf("供应商付款结算成功: paymentNo=%s, vendorID=%d, applied=%d, settled=%d",
		paymentNo, req.VendorID, resp.AppliedAmount, resp.SettledAmount)

	return resp, nil
}

type CreatePayableRequest struct {
	VendorID    int64      `json:"vendor_id" binding:"required"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Date        *time.Time `json:"date"`
	DueDate     *time.Time `json:"due_date"`
	Description string     `json:"description"`
	// 可选：建单同时付一笔首付款
	PaymentAmount    int64 `json:"payment_amount" binding:"gte=0"`
	PaymentAccountID int64 `json:"payment_account_id"`
}

// CreatePayable 新建应付，供应商未付总额同步增加
// 携带首付款时，付款与建单在同一事务内完成
func (s *PayableService) CreatePayable(ctx context.Context, req *CreatePayableRequest) (*model.Payable, error) {
	if req.Amount <= 0 || req.PaymentAmount < 0 {
		return nil, ErrInvalidAmount
	}
	if req.PaymentAmount > req.Amount {
		return nil, ErrPaymentExceedsObligation
	}
	if req.PaymentAmount > 0 && req.PaymentAccountID <= 0 {
		return nil, errors.New("payment_account_id 不能为空")
	}
	if _, err := s.vendorRepo.GetByID(ctx, req.VendorID); err != nil {
		return nil, err
	}

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}

	// 新建债务一律从 UNPAID / paidAmount=0 起步，首付款随后在同一事务内冲销
	row := &model.Payable{
		VendorID:    req.VendorID,
		Amount:      req.Amount,
		Date:        date,
		DueDate:     req.DueDate,
		Status:      model.ObligationStatusUnpaid,
		Description: req.Description,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.payableRepo.Create(ctx, tx, row); err != nil {
			return fmt.Errorf("创建应付失败: %w", err)
		}

		if req.PaymentAmount > 0 {
			if err := s.payOne(ctx, tx, row, req.PaymentAmount, req.PaymentAccountID, date, "建单首付款"); err != nil {
				return err
			}
			if err := s.payableRepo.Update(ctx, tx, row); err != nil {
				return fmt.Errorf("更新应付失败: %w", err)
			}
		}

		// 供应商敞口按建单后的未付金额增加（首付款已在上面扣除）
		if err := s.vendorRepo.AddBalance(ctx, tx, req.VendorID, row.Remaining()); err != nil {
			return fmt.Errorf("调整供应商余额失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}

type UpdatePayableRequest struct {
	ID          int64      `json:"id" binding:"required"`
	VendorID    int64      `json:"vendor_id" binding:"required"`
	Amount      int64      `json:"amount" binding:"required,gt=0"`
	Date        *time.Time `json:"date"`
	DueDate     *time.Time `json:"due_date"`
	Description string     `json:"description"`
	// 可选：编辑同时补一笔付款
	PaymentAmount    int64 `json:"payment_amount" binding:"gte=0"`
	PaymentAccountID int64 `json:"payment_account_id"`
}

// UpdatePayable 编辑应付，可同时补付款、可变更归属供应商
//
// 【关键点】换供应商是一次显式的两步补偿更新：
// 旧供应商按"变更前的未付金额"减敞口，新供应商按"变更后的未付金额"加敞口，
// 与补付款在同一事务内生效，绝不拆成两次独立调用
func (s *PayableService) UpdatePayable(ctx context.Context, req *UpdatePayableRequest) (*model.Payable, error) {
	if req.Amount <= 0 || req.PaymentAmount < 0 {
		return nil, ErrInvalidAmount
	}
	if req.PaymentAmount > 0 && req.PaymentAccountID <= 0 {
		return nil, errors.New("payment_account_id 不能为空")
	}
	if _, err := s.vendorRepo.GetByID(ctx, req.VendorID); err != nil {
		return nil, err
	}

	var row *model.Payable

	err := s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.payableRepo.GetByIDForUpdate(ctx, tx, req.ID)
		if err != nil {
			return err
		}

		oldVendorID := p.VendorID
		priorRemaining := p.Remaining()

		// 补付款不能把已付推过总额
		if p.PaidAmount+req.PaymentAmount > req.Amount {
			return ErrPaymentExceedsObligation
		}

		p.VendorID = req.VendorID
		p.Amount = req.Amount
		p.Description = req.Description
		p.DueDate = req.DueDate
		if req.Date != nil {
			p.Date = *req.Date
		}

		if req.PaymentAmount > 0 {
			if err := s.payOne(ctx, tx, p, req.PaymentAmount, req.PaymentAccountID, p.Date, "编辑补付款"); err != nil {
				return err
			}
		}

		p.Status = model.DeriveObligationStatus(p.Amount, p.PaidAmount)
		if err := s.payableRepo.Update(ctx, tx, p); err != nil {
			return fmt.Errorf("更新应付失败: %w", err)
		}

		newRemaining := p.Remaining()
		if oldVendorID != req.VendorID {
			// 换供应商：旧减新增，同一事务
			if err := s.vendorRepo.AddBalance(ctx, tx, oldVendorID, -priorRemaining); err != nil {
				return fmt.Errorf("调整原供应商余额失败: %w", err)
			}
			if err := s.vendorRepo.AddBalance(ctx, tx, req.VendorID, newRemaining); err != nil {
				return fmt.Errorf("调整新供应商余额失败: %w", err)
			}
		} else if delta := newRemaining - priorRemaining; delta != 0 {
			if err := s.vendorRepo.AddBalance(ctx, tx, req.VendorID, delta); err != nil {
				return fmt.Errorf("调整供应商余额失败: %w", err)
			}
		}

		row = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return row, nil
}

// payOne 在事务内对单笔应付记一次付款：改已付金额、写支出流水、账户扣款
// 供应商余额由调用方按"未付金额的变化量"统一调整，这里不动
func (s *PayableService) payOne(ctx context.Context, tx *gorm.DB, p *model.Payable, amount int64, accountID int64, date time.Time, note string) error {
	if p.PaidAmount+amount > p.Amount {
		return ErrPaymentExceedsObligation
	}

	if err := s.accountRepo.Deduct(ctx, tx, accountID, amount); err != nil {
		return err
	}

	p.PaidAmount += amount
	p.Status = model.DeriveObligationStatus(p.Amount, p.PaidAmount)

	vendorID := p.VendorID
	obligationID := p.ID
	trans := &model.Transaction{
		TransactionNo:  idgen.GenerateTransactionNo(),
		Date:           date,
		Amount:         amount,
		Type:           model.TransactionTypeExpense,
		Category:       model.CategorySettlement,
		AccountID:      accountID,
		VendorID:       &vendorID,
		Description:    note,
		ReferenceID:    &obligationID,
		ReferenceModel: model.ReferenceModelPayable,
	}
	if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
		return fmt.Errorf("记录流水失败: %w", err)
	}

	return nil
}

// DeletePayable 删除应付
// 删除前必须把未付敞口从供应商余额里冲回去，与删除同一事务
func (s *PayableService) DeletePayable(ctx context.Context, id int64) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		p, err := s.payableRepo.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		if remaining := p.Remaining(); remaining > 0 {
			if err := s.vendorRepo.AddBalance(ctx, tx, p.VendorID, -remaining); err != nil {
				return fmt.Errorf("冲回供应商敞口失败: %w", err)
			}
		}

		if err := s.payableRepo.Delete(ctx, tx, id); err != nil {
			return fmt.Errorf("删除应付失败: %w", err)
		}
		return nil
	})
}

func (s *PayableService) ListPayables(ctx context.Context, vendorID int64, status string) ([]*model.Payable, error) {
	return s.payableRepo.ListByVendor(ctx, vendorID, status)
}

// RecomputeVendorBalance 对账修复：以未付清应付重算供应商余额应有值
func (s *PayableService) RecomputeVendorBalance(ctx context.Context, vendorID int64) (int64, error) {
	rows, err := s.payableRepo.ListByVendor(ctx, vendorID, "")
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range rows {
		total += p.Remaining()
	}
	return total, nil
}
