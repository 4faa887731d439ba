package service

import (
	"testing"
	"time"

	"agencyledger/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

func itemAgedDays(days int, remaining int64) agingItem {
	return agingItem{Remaining: remaining, RefDate: asOf.AddDate(0, 0, -days)}
}

func TestAgingBucketBoundaries(t *testing.T) {
	snapshot := agingOf([]agingItem{
		itemAgedDays(0, 100),
		itemAgedDays(30, 200),  // 恰好 30 天仍在第一档
		itemAgedDays(31, 300),  // 第二档下界
		itemAgedDays(60, 400),  // 恰好 60 天仍在第二档
		itemAgedDays(61, 500),  // 第三档下界
		itemAgedDays(365, 600),
	}, asOf)

	assert.Equal(t, int64(300), snapshot.Bucket0To30.Amount)
	assert.Equal(t, 2, snapshot.Bucket0To30.Count)
	assert.Equal(t, int64(700), snapshot.Bucket31To60.Amount)
	assert.Equal(t, 2, snapshot.Bucket31To60.Count)
	assert.Equal(t, int64(1100), snapshot.Bucket61Plus.Amount)
	assert.Equal(t, 2, snapshot.Bucket61Plus.Count)
}

func TestAgingNotYetDueGoesToFirstBucket(t *testing.T) {
	// 未到期（负账龄）也归入 0-30 档
	snapshot := agingOf([]agingItem{itemAgedDays(-15, 900)}, asOf)

	assert.Equal(t, int64(900), snapshot.Bucket0To30.Amount)
	assert.Equal(t, int64(900), snapshot.TotalAmount)
}

func TestAgingCompleteness(t *testing.T) {
	// 三档之和恒等于总额，已结清的不参与
	items := []agingItem{
		itemAgedDays(5, 120),
		itemAgedDays(45, 340),
		itemAgedDays(90, 560),
		itemAgedDays(10, 0),   // remaining = 0，跳过
		itemAgedDays(70, -50), // 防御：负值跳过
	}

	snapshot := agingOf(items, asOf)

	sum := snapshot.Bucket0To30.Amount + snapshot.Bucket31To60.Amount + snapshot.Bucket61Plus.Amount
	assert.Equal(t, snapshot.TotalAmount, sum)
	assert.Equal(t, int64(1020), snapshot.TotalAmount)

	count := snapshot.Bucket0To30.Count + snapshot.Bucket31To60.Count + snapshot.Bucket61Plus.Count
	assert.Equal(t, snapshot.TotalCount, count)
	assert.Equal(t, 3, snapshot.TotalCount)
}

func TestReceivableAgingFallsBackToDate(t *testing.T) {
	due := asOf.AddDate(0, 0, -40)
	rows := []*model.Receivable{
		{ID: 1, Amount: 100, PaidAmount: 0, Date: asOf.AddDate(0, 0, -100), DueDate: &due},
		{ID: 2, Amount: 200, PaidAmount: 0, Date: asOf.AddDate(0, 0, -5)}, // 无到期日，用单据日期
	}

	items := receivableAgingItems(rows)
	require.Len(t, items, 2)
	assert.Equal(t, due, items[0].RefDate)
	assert.Equal(t, rows[1].Date, items[1].RefDate)

	snapshot := agingOf(items, asOf)
	assert.Equal(t, int64(100), snapshot.Bucket31To60.Amount)
	assert.Equal(t, int64(200), snapshot.Bucket0To30.Amount)
}

func TestCategorySummarySortsByAmountDesc(t *testing.T) {
	transactions := []*model.Transaction{
		{Type: model.TransactionTypeIncome, Category: "Visa", Amount: 100},
		{Type: model.TransactionTypeIncome, Category: "Ticket", Amount: 500},
		{Type: model.TransactionTypeIncome, Category: "Visa", Amount: 300},
		{Type: model.TransactionTypeExpense, Category: "Salary", Amount: 999}, // 方向不同，不计入
		{Type: model.TransactionTypeIncome, Category: "Hotel", Amount: 350},
	}

	result := categorySummary(transactions, model.TransactionTypeIncome)

	require.Len(t, result, 3)
	assert.Equal(t, "Ticket", result[0].Category)
	assert.Equal(t, int64(500), result[0].Amount)
	assert.Equal(t, "Visa", result[1].Category)
	assert.Equal(t, int64(400), result[1].Amount)
	assert.Equal(t, 2, result[1].Count)
	assert.Equal(t, "Hotel", result[2].Category)
	assert.Equal(t, int64(350), result[2].Amount)
}

func TestCategorySummaryTieBreaksByName(t *testing.T) {
	transactions := []*model.Transaction{
		{Type: model.TransactionTypeExpense, Category: "b", Amount: 100},
		{Type: model.TransactionTypeExpense, Category: "a", Amount: 100},
	}

	result := categorySummary(transactions, model.TransactionTypeExpense)
	require.Len(t, result, 2)
	assert.Equal(t, "a", result[0].Category)
	assert.Equal(t, "b", result[1].Category)
}

func TestMonthlyTrendZeroFillsEmptyMonths(t *testing.T) {
	toDate := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)
	transactions := []*model.Transaction{
		{Type: model.TransactionTypeIncome, Amount: 1000, Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)},
		{Type: model.TransactionTypeExpense, Amount: 400, Date: time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)},
	}

	trend := monthlyTrend(transactions, toDate, 6)

	require.Len(t, trend, 6)
	assert.Equal(t, 2025, trend[0].Year)
	assert.Equal(t, 1, trend[0].Month)
	assert.Equal(t, 6, trend[5].Month)

	// 1-3 月、5 月无流水也占位
	for _, i := range []int{0, 1, 2, 4} {
		assert.Zero(t, trend[i].Income, "month index %d", i)
		assert.Zero(t, trend[i].Expense, "month index %d", i)
	}

	assert.Equal(t, int64(400), trend[3].Expense)
	assert.Equal(t, int64(-400), trend[3].Net)
	assert.Equal(t, int64(1000), trend[5].Income)
	assert.Equal(t, int64(1000), trend[5].Net)
}

func TestMonthlyTrendEndsAtRequestedMonth(t *testing.T) {
	// 月末作为末端是报表最常见的用法：窗口必须覆盖 1-6 月，不滑进 7 月
	toDate := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	trend := monthlyTrend(nil, toDate, 6)

	require.Len(t, trend, 6)
	assert.Equal(t, 2025, trend[0].Year)
	assert.Equal(t, 1, trend[0].Month)
	assert.Equal(t, 6, trend[5].Month)
}

func TestMonthlyTrendCrossesYearBoundary(t *testing.T) {
	toDate := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)

	trend := monthlyTrend(nil, toDate, 6)

	require.Len(t, trend, 6)
	assert.Equal(t, 2024, trend[0].Year)
	assert.Equal(t, 9, trend[0].Month)
	assert.Equal(t, 2025, trend[5].Year)
	assert.Equal(t, 2, trend[5].Month)
}

func TestMonthlyTrendIgnoresOutOfRange(t *testing.T) {
	toDate := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	transactions := []*model.Transaction{
		{Type: model.TransactionTypeIncome, Amount: 777, Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	trend := monthlyTrend(transactions, toDate, 6)
	for _, p := range trend {
		assert.Zero(t, p.Income)
	}
}
