package model

import (
	"sort"
	"time"
)

// ============================================================================
// 债务状态常量
// ============================================================================

const (
	ObligationStatusUnpaid  = "UNPAID"
	ObligationStatusPartial = "PARTIAL"
	ObligationStatusPaid    = "PAID"
)

// DeriveObligationStatus 由 (amount, paidAmount) 推导债务状态
//
// 【重要】状态是金额的纯函数，任何写路径变更金额后必须用它重算，
// 不允许手工设置状态造成金额与状态不一致
//
// 已付 >= 总额 即 PAID，优先于未付判断：总额被折扣削到 0 的债务视为已结清
func DeriveObligationStatus(amount, paidAmount int64) string {
	switch {
	case paidAmount >= amount:
		return ObligationStatusPaid
	case paidAmount <= 0:
		return ObligationStatusUnpaid
	default:
		return ObligationStatusPartial
	}
}

// ObligationRemaining 未结清金额，不会为负
func ObligationRemaining(amount, paidAmount int64) int64 {
	if remaining := amount - paidAmount; remaining > 0 {
		return remaining
	}
	return 0
}

// ============================================================================
// 应收 / 应付实体
// ============================================================================

// Receivable 应收账款表（客户欠代理商）
// 不变式：0 ≤ paid_amount ≤ amount；status 由金额推导
type Receivable struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID  int64      `gorm:"index;not null" json:"customer_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	PaidAmount  int64      `gorm:"not null;default:0" json:"paid_amount"`
	Date        time.Time  `gorm:"not null" json:"date"`
	DueDate     *time.Time `gorm:"index" json:"due_date"` // 可为空，视为最早到期
	Status      string     `gorm:"type:varchar(20);index;not null;default:UNPAID" json:"status"`
	Description string     `gorm:"type:varchar(256)" json:"description"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Receivable) TableName() string {
	return "receivable"
}

// Remaining 未收金额
func (r *Receivable) Remaining() int64 {
	return ObligationRemaining(r.Amount, r.PaidAmount)
}

// Payable 应付账款表（代理商欠供应商）
type Payable struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	VendorID    int64      `gorm:"index;not null" json:"vendor_id"`
	Amount      int64      `gorm:"not null" json:"amount"`
	PaidAmount  int64      `gorm:"not null;default:0" json:"paid_amount"`
	Date        time.Time  `gorm:"not null" json:"date"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	Status      string     `gorm:"type:varchar(20);index;not null;default:UNPAID" json:"status"`
	Description string     `gorm:"type:varchar(256)" json:"description"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Payable) TableName() string {
	return "payable"
}

// Remaining 未付金额
func (p *Payable) Remaining() int64 {
	return ObligationRemaining(p.Amount, p.PaidAmount)
}

// ============================================================================
// 到期日排序
// ============================================================================

// DueDateBefore 债务清偿顺序的全序比较器：
//  1. 无到期日视为最早到期，排最前
//  2. 到期日早的在前
//  3. 到期日相同按创建顺序（ID 升序）
//
// 分摊付款时始终按该顺序优先冲销最久/最逾期的债务
func DueDateBefore(aDue *time.Time, aID int64, bDue *time.Time, bID int64) bool {
	switch {
	case aDue == nil && bDue != nil:
		return true
	case aDue != nil && bDue == nil:
		return false
	case aDue != nil && bDue != nil && !aDue.Equal(*bDue):
		return aDue.Before(*bDue)
	default:
		return aID < bID
	}
}

// SortReceivablesByDueDate 按清偿顺序原地排序
func SortReceivablesByDueDate(rows []*Receivable) {
	sort.SliceStable(rows, func(i, j int) bool {
		return DueDateBefore(rows[i].DueDate, rows[i].ID, rows[j].DueDate, rows[j].ID)
	})
}

// SortPayablesByDueDate 按清偿顺序原地排序
func SortPayablesByDueDate(rows []*Payable) {
	sort.SliceStable(rows, func(i, j int) bool {
		return DueDateBefore(rows[i].DueDate, rows[i].ID, rows[j].DueDate, rows[j].ID)
	})
}
