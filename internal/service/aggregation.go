package service

import (
	"sort"
	"time"

	"agencyledger/internal/model"
)

// ============================================================================
// 报表聚合的纯计算部分
// ============================================================================
//
// 这里只做内存折叠，不碰数据库；ReportService 负责取快照数据再调用这些函数。
// 聚合永远作用于一次性读出的快照，不会观察到进行中结算的中间状态

const secondsPerDay = 86400

// AgingBucket 单个账龄区间的汇总
type AgingBucket struct {
	Amount int64 `json:"amount"`
	Count  int   `json:"count"`
}

// AgingSnapshot 账龄快照：0-30 / 31-60 / 61+ 三档
// 不变式：三档金额之和恒等于 TotalAmount，条数同理
type AgingSnapshot struct {
	Bucket0To30  AgingBucket `json:"bucket_0_30"`
	Bucket31To60 AgingBucket `json:"bucket_31_60"`
	Bucket61Plus AgingBucket `json:"bucket_61_plus"`
	TotalAmount  int64       `json:"total_amount"`
	TotalCount   int         `json:"total_count"`
}

// agingItem 参与账龄计算的单笔债务视图
type agingItem struct {
	Remaining int64
	RefDate   time.Time // 到期日，无到期日时用单据日期
}

// agingOf 按"逾期天数"把未结清债务归档
// days = floor((asOf - refDate) / 86400s)；未到期（days < 0）归入 0-30 档
func agingOf(items []agingItem, asOf time.Time) *AgingSnapshot {
	snapshot := &AgingSnapshot{}

	for _, item := range items {
		if item.Remaining <= 0 {
			continue
		}

		days := int64(asOf.Sub(item.RefDate).Seconds()) / secondsPerDay

		var bucket *AgingBucket
		switch {
		case days <= 30:
			bucket = &snapshot.Bucket0To30
		case days <= 60:
			bucket = &snapshot.Bucket31To60
		default:
			bucket = &snapshot.Bucket61Plus
		}

		bucket.Amount += item.Remaining
		bucket.Count++
		snapshot.TotalAmount += item.Remaining
		snapshot.TotalCount++
	}

	return snapshot
}

func receivableAgingItems(rows []*model.Receivable) []agingItem {
	items := make([]agingItem, 0, len(rows))
	for _, r := range rows {
		ref := r.Date
		if r.DueDate != nil {
			ref = *r.DueDate
		}
		items = append(items, agingItem{Remaining: r.Remaining(), RefDate: ref})
	}
	return items
}

func payableAgingItems(rows []*model.Payable) []agingItem {
	items := make([]agingItem, 0, len(rows))
	for _, p := range rows {
		ref := p.Date
		if p.DueDate != nil {
			ref = *p.DueDate
		}
		items = append(items, agingItem{Remaining: p.Remaining(), RefDate: ref})
	}
	return items
}

// CategoryTotal 按分类汇总的流水金额
type CategoryTotal struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Count    int    `json:"count"`
}

// categorySummary 按分类汇总某一方向的流水，金额降序（同额按分类名稳定）
func categorySummary(transactions []*model.Transaction, txnType string) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	for _, t := range transactions {
		if t.Type != txnType {
			continue
		}
		total, ok := byCategory[t.Category]
		if !ok {
			total = &CategoryTotal{Category: t.Category}
			byCategory[t.Category] = total
		}
		total.Amount += t.Amount
		total.Count++
	}

	result := make([]CategoryTotal, 0, len(byCategory))
	for _, total := range byCategory {
		result = append(result, *total)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Amount != result[j].Amount {
			return result[i].Amount > result[j].Amount
		}
		return result[i].Category < result[j].Category
	})
	return result
}

// MonthlyPoint 单个自然月的收支汇总
type MonthlyPoint struct {
	Year    int   `json:"year"`
	Month   int   `json:"month"`
	Income  int64 `json:"income"`
	Expense int64 `json:"expense"`
	Net     int64 `json:"net"`
}

// monthlyTrend 以 toDate 所在月为末端，向前铺满 months 个自然月
// 没有流水的月份也占位（全零），保证曲线无断档
func monthlyTrend(transactions []*model.Transaction, toDate time.Time, months int) []MonthlyPoint {
	if months <= 0 {
		return nil
	}

	type ym struct {
		year  int
		month int
	}

	points := make([]MonthlyPoint, 0, months)
	index := make(map[ym]*MonthlyPoint, months)

	end := time.Date(toDate.Year(), toDate.Month(), 1, 0, 0, 0, 0, toDate.Location())
	for i := months - 1; i >= 0; i-- {
		m := end.AddDate(0, -i, 0)
		points = append(points, MonthlyPoint{Year: m.Year(), Month: int(m.Month())})
	}
	for i := range points {
		index[ym{points[i].Year, points[i].Month}] = &points[i]
	}

	for _, t := range transactions {
		point, ok := index[ym{t.Date.Year(), int(t.Date.Month())}]
		if !ok {
			continue
		}
		switch t.Type {
		case model.TransactionTypeIncome:
			point.Income += t.Amount
		case model.TransactionTypeExpense:
			point.Expense += t.Amount
		}
		point.Net = point.Income - point.Expense
	}

	return points
}
