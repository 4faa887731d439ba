package service

import (
	"testing"
	"time"

	"agencyledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dueIn(days int) *time.Time {
	t := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC).AddDate(0, 0, days)
	return &t
}

var allocNow = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

func TestAllocatePaysOldestFirst(t *testing.T) {
	// R1 逾期 10 天，R2 还有 5 天到期，付款 1200
	obligations := []*obligationState{
		{ID: 1, Amount: 1000, PaidAmount: 0, DueDate: dueIn(-10)},
		{ID: 2, Amount: 500, PaidAmount: 0, DueDate: dueIn(5)},
	}

	plan, err := allocate(obligations, 1200, 0, 0, allocNow, 7)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, int64(1000), plan.Lines[0].Settled)
	assert.Equal(t, model.ObligationStatusPaid, plan.Lines[0].NewStatus)
	assert.Equal(t, int64(200), plan.Lines[1].Settled)
	assert.Equal(t, model.ObligationStatusPartial, plan.Lines[1].NewStatus)

	assert.Equal(t, int64(1200), plan.SettledTotal)
	assert.Equal(t, int64(0), plan.AdvanceTotal)
	assert.Equal(t, int64(1200), plan.AppliedTotal())
	assert.Equal(t, int64(-1200), plan.PartyDelta())
}

func TestAllocateOverflowBecomesAdvance(t *testing.T) {
	obligations := []*obligationState{
		{ID: 1, Amount: 300, PaidAmount: 100, DueDate: dueIn(0)},
	}

	plan, err := allocate(obligations, 500, 0, 0, allocNow, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(200), plan.SettledTotal)
	assert.Equal(t, int64(300), plan.AdvanceTotal)
	assert.Equal(t, int64(500), plan.AppliedTotal())

	// 预存款单独一条流水，不关联债务
	require.Len(t, plan.Transactions, 2)
	assert.Equal(t, model.CategorySettlement, plan.Transactions[0].Category)
	require.NotNil(t, plan.Transactions[0].ObligationID)
	assert.Equal(t, int64(1), *plan.Transactions[0].ObligationID)
	assert.Equal(t, model.CategoryAdvance, plan.Transactions[1].Category)
	assert.Nil(t, plan.Transactions[1].ObligationID)
}

func TestAllocateNoObligationsAllAdvance(t *testing.T) {
	plan, err := allocate(nil, 800, 0, 0, allocNow, 7)
	require.NoError(t, err)

	assert.Empty(t, plan.Lines)
	assert.Equal(t, int64(0), plan.SettledTotal)
	assert.Equal(t, int64(800), plan.AdvanceTotal)
	assert.Equal(t, int64(-800), plan.PartyDelta())
}

func TestAllocateConservation(t *testing.T) {
	// 每一分钱都有去向：settled + advance == payment
	obligations := []*obligationState{
		{ID: 1, Amount: 700, PaidAmount: 50, DueDate: nil},
		{ID: 2, Amount: 250, PaidAmount: 0, DueDate: dueIn(-3)},
		{ID: 3, Amount: 900, PaidAmount: 900, DueDate: dueIn(1)}, // 已结清，应跳过
	}

	for _, payment := range []int64{1, 400, 650, 900, 2000} {
		plan, err := allocate(obligations, payment, 0, 0, allocNow, 7)
		require.NoError(t, err)
		assert.Equal(t, payment, plan.SettledTotal+plan.AdvanceTotal, "payment=%d", payment)

		for _, l := range plan.Lines {
			assert.NotEqual(t, int64(3), l.ObligationID, "已结清的债务不应出现在计划里")
		}
	}
}

func TestAllocateDiscountSameOrder(t *testing.T) {
	// 折扣不动 paidAmount，只削 amount，按同样顺序走
	obligations := []*obligationState{
		{ID: 1, Amount: 1000, PaidAmount: 0, DueDate: dueIn(-10)},
		{ID: 2, Amount: 500, PaidAmount: 0, DueDate: dueIn(5)},
	}

	plan, err := allocate(obligations, 400, 300, 0, allocNow, 7)
	require.NoError(t, err)

	// 付款和折扣都停在第一笔，未被触碰的债务不产生变更行
	require.Len(t, plan.Lines, 1)
	l1 := plan.Lines[0]
	assert.Equal(t, int64(400), l1.Settled)
	assert.Equal(t, int64(300), l1.Discounted)
	assert.Equal(t, int64(700), l1.NewAmount)
	assert.Equal(t, int64(400), l1.NewPaidAmount)
	assert.Equal(t, model.ObligationStatusPartial, l1.NewStatus)

	assert.Equal(t, int64(300), plan.DiscountTotal)
	assert.Equal(t, int64(-700), plan.PartyDelta())
}

func TestAllocateDiscountCanCloseObligation(t *testing.T) {
	obligations := []*obligationState{
		{ID: 1, Amount: 1000, PaidAmount: 0, DueDate: dueIn(0)},
	}

	plan, err := allocate(obligations, 600, 400, 0, allocNow, 7)
	require.NoError(t, err)

	l := plan.Lines[0]
	assert.Equal(t, int64(600), l.NewAmount)
	assert.Equal(t, int64(600), l.NewPaidAmount)
	assert.Equal(t, model.ObligationStatusPaid, l.NewStatus)
}

func TestAllocateDiscountClosesZeroAmountObligation(t *testing.T) {
	// 折扣把整笔总额削到 0：amount=0 / paid=0 视为已结清
	obligations := []*obligationState{
		{ID: 1, Amount: 100, PaidAmount: 0, DueDate: dueIn(-1)},
		{ID: 2, Amount: 50, PaidAmount: 0, DueDate: dueIn(5)},
	}

	plan, err := allocate(obligations, 100, 50, 0, allocNow, 7)
	require.NoError(t, err)

	require.Len(t, plan.Lines, 2)
	assert.Equal(t, model.ObligationStatusPaid, plan.Lines[0].NewStatus)

	l2 := plan.Lines[1]
	assert.Equal(t, int64(0), l2.NewAmount)
	assert.Equal(t, int64(0), l2.NewPaidAmount)
	assert.Equal(t, model.ObligationStatusPaid, l2.NewStatus)
}

func TestAllocateDiscountExceedsDueRejected(t *testing.T) {
	obligations := []*obligationState{
		{ID: 1, Amount: 1000, PaidAmount: 0, DueDate: dueIn(0)},
	}

	// 付款冲掉 900 后只剩 100 可折扣
	_, err := allocate(obligations, 900, 101, 0, allocNow, 7)
	assert.ErrorIs(t, err, ErrDiscountExceedsDue)

	// 恰好等于剩余额度则允许
	plan, err := allocate(obligations, 900, 100, 0, allocNow, 7)
	require.NoError(t, err)
	assert.Equal(t, model.ObligationStatusPaid, plan.Lines[0].NewStatus)
}

func TestAllocateInvalidAmounts(t *testing.T) {
	obligations := []*obligationState{
		{ID: 1, Amount: 100, PaidAmount: 0, DueDate: dueIn(0)},
	}

	_, err := allocate(obligations, 0, 0, 0, allocNow, 7)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = allocate(obligations, -5, 0, 0, allocNow, 7)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = allocate(obligations, 100, -1, 0, allocNow, 7)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = allocate(obligations, 100, 0, -1, allocNow, 7)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAllocateExtraCharge(t *testing.T) {
	obligations := []*obligationState{
		{ID: 1, Amount: 500, PaidAmount: 0, DueDate: dueIn(0)},
	}

	plan, err := allocate(obligations, 500, 0, 120, allocNow, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(120), plan.ExtraCharge)
	assert.Equal(t, allocNow.AddDate(0, 0, 7), plan.ExtraDueDate)

	// 追加费用增加对方敞口：-(500+0+0) + 120
	assert.Equal(t, int64(-380), plan.PartyDelta())
}

func TestAllocatePartialOnFirstObligation(t *testing.T) {
	obligations := []*obligationState{
		{ID: 1, Amount: 1000, PaidAmount: 200, DueDate: dueIn(-1)},
		{ID: 2, Amount: 400, PaidAmount: 0, DueDate: dueIn(3)},
	}

	plan, err := allocate(obligations, 300, 0, 0, allocNow, 7)
	require.NoError(t, err)

	// 付款不够冲第一笔，第二笔不应出现在计划里
	require.Len(t, plan.Lines, 1)
	assert.Equal(t, int64(1), plan.Lines[0].ObligationID)
	assert.Equal(t, int64(500), plan.Lines[0].NewPaidAmount)
	assert.Equal(t, model.ObligationStatusPartial, plan.Lines[0].NewStatus)
}
