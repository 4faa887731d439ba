package model

import (
	"time"
)

// ============================================================================
// 交易类型常量
// ============================================================================

const (
	TransactionTypeIncome  = "INCOME"  // 收入（客户付款、预收等）
	TransactionTypeExpense = "EXPENSE" // 支出（供应商付款、工资等）
)

const (
	CategorySettlement = "Settlement" // 冲销债务的结算款
	CategoryAdvance    = "Advance"    // 超额付款形成的预存款
	CategorySalary     = "Salary"     // 工资发放
)

const (
	ReferenceModelReceivable = "receivable"
	ReferenceModelPayable    = "payable"
	ReferenceModelSalary     = "salary"
)

// ============================================================================
// 交易流水实体
// ============================================================================

// Transaction 交易流水表
// 记录每一笔资金变动，是对账和报表的核心依据
//
// 【重要】流水表设计原则：
// 1. 只追加，不修改 —— 保证审计可追溯；删除仅允许通过显式冲正流程
// 2. 每笔流水关联资金账户，可选关联客户/供应商及来源单据 —— 便于对账
// 3. 金额恒为正数，方向由 type 表达
type Transaction struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo  string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"` // 流水号（全局唯一）
	Date           time.Time `gorm:"index;not null" json:"date"`
	Amount         int64     `gorm:"not null" json:"amount"`                          // 金额（恒为正）
	Type           string    `gorm:"type:varchar(20);index;not null" json:"type"`     // INCOME/EXPENSE
	Category       string    `gorm:"type:varchar(64);index;not null" json:"category"` // 业务分类
	AccountID      int64     `gorm:"index;not null" json:"account_id"`
	CustomerID     *int64    `gorm:"index" json:"customer_id"`
	VendorID       *int64    `gorm:"index" json:"vendor_id"`
	Description    string    `gorm:"type:varchar(256)" json:"description"`
	ReferenceID    *int64    `json:"reference_id"`                                // 来源单据ID（弱引用，仅用于审计）
	ReferenceModel string    `gorm:"type:varchar(32)" json:"reference_model"`     // receivable/payable/salary
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transaction"
}
