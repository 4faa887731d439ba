package service

import (
	"errors"
	"time"

	"agencyledger/internal/model"
)

// ============================================================================
// 债务分摊计算
// ============================================================================
//
// 把一笔付款拆解成对多笔未结清债务的冲销计划，纯内存计算，不做任何 I/O。
// 调用方负责在事务内按计划落库，保证"计算"与"执行"分离
//
// 分摊规则：
// 1. 按到期日顺序（无到期日最前，见 model.DueDateBefore）逐笔冲销，付完即止
// 2. 冲销完所有债务仍有剩余的部分转为预存款（Advance），单独记一条收入流水
// 3. 折扣独立于付款，按同样顺序削减各债务的 amount（不动 paidAmount），
//    折扣超过冲销后的未结清总额则整体拒绝，不产生任何效果
// 4. 追加费用生成一笔新的 UNPAID 债务，到期日为结算日 + 配置天数

var (
	ErrInvalidAmount      = errors.New("金额不合法")
	ErrDiscountExceedsDue = errors.New("折扣超过未结清总额")
)

// obligationState 应收/应付在分摊计算中的统一视图
type obligationState struct {
	ID         int64
	Amount     int64
	PaidAmount int64
	DueDate    *time.Time
}

func (o *obligationState) remaining() int64 {
	return model.ObligationRemaining(o.Amount, o.PaidAmount)
}

// PlanLine 单笔债务的变更结果
type PlanLine struct {
	ObligationID  int64
	Settled       int64  // 本次冲销金额
	Discounted    int64  // 本次折扣削减金额
	NewAmount     int64
	NewPaidAmount int64
	NewStatus     string
}

// PlanTransaction 计划生成的流水行
type PlanTransaction struct {
	Amount       int64
	Category     string // Settlement / Advance
	ObligationID *int64 // 预存款行不关联债务
}

// SettlementPlan 分摊计划
type SettlementPlan struct {
	Lines         []*PlanLine
	Transactions  []*PlanTransaction
	SettledTotal  int64
	AdvanceTotal  int64
	DiscountTotal int64
	ExtraCharge   int64
	ExtraDueDate  time.Time // ExtraCharge > 0 时有效
}

// AppliedTotal 实际进出资金账户的金额 = 冲销 + 预存款
// 不变式：SettledTotal + AdvanceTotal == AppliedTotal，每一分钱都有去向
func (p *SettlementPlan) AppliedTotal() int64 {
	return p.SettledTotal + p.AdvanceTotal
}

// PartyDelta 结算对象余额的净变化量
// 冲销、预存款、折扣都减少对方的敞口，追加费用增加敞口
func (p *SettlementPlan) PartyDelta() int64 {
	return -(p.SettledTotal + p.AdvanceTotal + p.DiscountTotal) + p.ExtraCharge
}

// allocate 计算分摊计划
//
// obligations 必须已按清偿顺序排好（调用方用 model.SortXxxByDueDate 排序）
func allocate(obligations []*obligationState, payment, discount, extraCharge int64, now time.Time, extraDueDays int) (*SettlementPlan, error) {
	if payment <= 0 || discount < 0 || extraCharge < 0 {
		return nil, ErrInvalidAmount
	}

	plan := &SettlementPlan{}
	lineByID := make(map[int64]*PlanLine)

	line := func(o *obligationState) *PlanLine {
		if l, ok := lineByID[o.ID]; ok {
			return l
		}
		l := &PlanLine{
			ObligationID:  o.ID,
			NewAmount:     o.Amount,
			NewPaidAmount: o.PaidAmount,
			NewStatus:     model.DeriveObligationStatus(o.Amount, o.PaidAmount),
		}
		lineByID[o.ID] = l
		plan.Lines = append(plan.Lines, l)
		return l
	}

	// 第一轮：按顺序冲销付款
	remainingPayment := payment
	for _, o := range obligations {
		if remainingPayment <= 0 {
			break
		}
		due := model.ObligationRemaining(o.Amount, o.PaidAmount)
		if due <= 0 {
			continue
		}
		settled := due
		if remainingPayment < due {
			settled = remainingPayment
		}
		remainingPayment -= settled

		l := line(o)
		l.Settled = settled
		l.NewPaidAmount += settled
		l.NewStatus = model.DeriveObligationStatus(l.NewAmount, l.NewPaidAmount)
		plan.SettledTotal += settled

		obligationID := o.ID
		plan.Transactions = append(plan.Transactions, &PlanTransaction{
			Amount:       settled,
			Category:     model.CategorySettlement,
			ObligationID: &obligationID,
		})
	}

	// 付款冲不完的部分转为预存款
	if remainingPayment > 0 {
		plan.AdvanceTotal = remainingPayment
		plan.Transactions = append(plan.Transactions, &PlanTransaction{
			Amount:   remainingPayment,
			Category: model.CategoryAdvance,
		})
	}

	// 第二轮：按同样顺序削减折扣
	// 先校验总额，超出则整体失败，保证折扣要么全部生效要么完全不生效
	if discount > 0 {
		var totalRemaining int64
		for _, o := range obligations {
			l, ok := lineByID[o.ID]
			if ok {
				totalRemaining += model.ObligationRemaining(l.NewAmount, l.NewPaidAmount)
			} else {
				totalRemaining += o.remaining()
			}
		}
		if discount > totalRemaining {
			return nil, ErrDiscountExceedsDue
		}

		remainingDiscount := discount
		for _, o := range obligations {
			if remainingDiscount <= 0 {
				break
			}
			l := line(o)
			due := model.ObligationRemaining(l.NewAmount, l.NewPaidAmount)
			if due <= 0 {
				continue
			}
			cut := due
			if remainingDiscount < due {
				cut = remainingDiscount
			}
			remainingDiscount -= cut

			l.Discounted = cut
			l.NewAmount -= cut
			l.NewStatus = model.DeriveObligationStatus(l.NewAmount, l.NewPaidAmount)
			plan.DiscountTotal += cut
		}
	}

	// 追加费用：生成一笔新债务
	if extraCharge > 0 {
		plan.ExtraCharge = extraCharge
		plan.ExtraDueDate = now.AddDate(0, 0, extraDueDays)
	}

	return plan, nil
}

func receivableStates(rows []*model.Receivable) []*obligationState {
	states := make([]*obligationState, 0, len(rows))
	for _, r := range rows {
		states = append(states, &obligationState{
			ID:         r.ID,
			Amount:     r.Amount,
			PaidAmount: r.PaidAmount,
			DueDate:    r.DueDate,
		})
	}
	return states
}

func payableStates(rows []*model.Payable) []*obligationState {
	states := make([]*obligationState, 0, len(rows))
	for _, p := range rows {
		states = append(states, &obligationState{
			ID:         p.ID,
			Amount:     p.Amount,
			PaidAmount: p.PaidAmount,
			DueDate:    p.DueDate,
		})
	}
	return states
}
