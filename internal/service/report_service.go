package service

import (
	"context"
	"fmt"
	"time"

	"agencyledger/internal/config"
	"agencyledger/internal/model"
	"agencyledger/internal/repository"

	"gorm.io/gorm"
)

// ReportService 只读报表：账龄、分类汇总、月度趋势
// 不产生任何写入，所有数字都来自一次快照读
type ReportService struct {
	db              *gorm.DB
	cfg             *config.Config
	receivableRepo  *repository.ReceivableRepository
	payableRepo     *repository.PayableRepository
	transactionRepo *repository.TransactionRepository
}

func NewReportService(db *gorm.DB, cfg *config.Config) *ReportService {
	return &ReportService{
		db:              db,
		cfg:             cfg,
		receivableRepo:  repository.NewReceivableRepository(db),
		payableRepo:     repository.NewPayableRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
	}
}

// GetAgingSnapshot 账龄快照
// partyType: CUSTOMER 看应收账龄，VENDOR 看应付账龄
func (s *ReportService) GetAgingSnapshot(ctx context.Context, partyType string, asOf time.Time) (*AgingSnapshot, error) {
	switch partyType {
	case model.PartyTypeCustomer:
		rows, err := s.receivableRepo.ListOpen(ctx)
		if err != nil {
			return nil, fmt.Errorf("查询未结清应收失败: %w", err)
		}
		return agingOf(receivableAgingItems(rows), asOf), nil
	case model.PartyTypeVendor:
		rows, err := s.payableRepo.ListOpen(ctx)
		if err != nil {
			return nil, fmt.Errorf("查询未付清应付失败: %w", err)
		}
		return agingOf(payableAgingItems(rows), asOf), nil
	default:
		return nil, fmt.Errorf("party_type 不合法: %s", partyType)
	}
}

// ReportOverview 窗口期总览
type ReportOverview struct {
	TotalIncome           int64 `json:"total_income"`
	TotalExpense          int64 `json:"total_expense"`
	Net                   int64 `json:"net"`
	ReceivableOutstanding int64 `json:"receivable_outstanding"`
	PayableOutstanding    int64 `json:"payable_outstanding"`
}

// ReportSnapshot 综合报表
type ReportSnapshot struct {
	Overview           ReportOverview       `json:"overview"`
	IncomeByCategory   []CategoryTotal      `json:"income_by_category"`
	ExpenseByCategory  []CategoryTotal      `json:"expense_by_category"`
	Trend              []MonthlyPoint       `json:"trend"`
	ReceivableAging    *AgingSnapshot       `json:"receivable_aging"`
	PayableAging       *AgingSnapshot       `json:"payable_aging"`
	RecentTransactions []*model.Transaction `json:"recent_transactions"`
}

type ReportRequest struct {
	From        time.Time
	To          time.Time // 含当天
	Category    string    // 可选：只统计某个业务分类
	TrendMonths int       // 6 或 12
}

// GetReportSnapshot 综合报表：总览 + 分类汇总 + 趋势 + 双向账龄 + 最近流水
//
// To 是闭区间端点：流水查询转成半开区间 [From, To+1d)，
// 趋势和账龄直接用 To，保证月末报表的趋势窗口和账龄档位不漂移一天
func (s *ReportService) GetReportSnapshot(ctx context.Context, req *ReportRequest) (*ReportSnapshot, error) {
	if req.To.Before(req.From) {
		return nil, fmt.Errorf("日期窗口不合法: from=%s to=%s", req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
	}
	trendMonths := req.TrendMonths
	if trendMonths != 6 && trendMonths != 12 {
		trendMonths = 6
	}

	transactions, err := s.transactionRepo.ListByDateRange(ctx, req.From, req.To.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("查询流水失败: %w", err)
	}
	if req.Category != "" {
		filtered := transactions[:0]
		for _, t := range transactions {
			if t.Category == req.Category {
				filtered = append(filtered, t)
			}
		}
		transactions = filtered
	}

	snapshot := &ReportSnapshot{}
	for _, t := range transactions {
		switch t.Type {
		case model.TransactionTypeIncome:
			snapshot.Overview.TotalIncome += t.Amount
		case model.TransactionTypeExpense:
			snapshot.Overview.TotalExpense += t.Amount
		}
	}
	snapshot.Overview.Net = snapshot.Overview.TotalIncome - snapshot.Overview.TotalExpense

	openReceivables, err := s.receivableRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询未结清应收失败: %w", err)
	}
	for _, r := range openReceivables {
		snapshot.Overview.ReceivableOutstanding += r.Remaining()
	}

	openPayables, err := s.payableRepo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询未付清应付失败: %w", err)
	}
	for _, p := range openPayables {
		snapshot.Overview.PayableOutstanding += p.Remaining()
	}

	snapshot.IncomeByCategory = categorySummary(transactions, model.TransactionTypeIncome)
	snapshot.ExpenseByCategory = categorySummary(transactions, model.TransactionTypeExpense)
	snapshot.Trend = monthlyTrend(transactions, req.To, trendMonths)
	snapshot.ReceivableAging = agingOf(receivableAgingItems(openReceivables), req.To)
	snapshot.PayableAging = agingOf(payableAgingItems(openPayables), req.To)

	recent, err := s.transactionRepo.ListRecent(ctx, s.cfg.Business.RecentTxnLimit)
	if err != nil {
		return nil, fmt.Errorf("查询最近流水失败: %w", err)
	}
	snapshot.RecentTransactions = recent

	return snapshot, nil
}
