package model

import (
	"time"
)

const (
	AccountTypeCash          = "CASH"
	AccountTypeBank          = "BANK"
	AccountTypeMobileBanking = "MOBILE_BANKING"
)

// IsValidAccountType 校验账户类型是否合法
func IsValidAccountType(t string) bool {
	switch t {
	case AccountTypeCash, AccountTypeBank, AccountTypeMobileBanking:
		return true
	}
	return false
}

// Account 资金账户表
// 记录代理商各渠道（现金/银行/移动支付）的资金余额，是整个结算系统的核心数据
// 余额只允许通过结算服务在事务内变更
type Account struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(64);not null" json:"name"`
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`  // CASH/BANK/MOBILE_BANKING
	Balance       int64     `gorm:"not null;default:0" json:"balance"`      // 当前余额（最小货币单位）
	BankName      string    `gorm:"type:varchar(64)" json:"bank_name"`      // 银行名称（仅银行账户）
	AccountNumber string    `gorm:"type:varchar(64)" json:"account_number"` // 账号（仅银行/移动支付账户）
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
