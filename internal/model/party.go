package model

import (
	"time"
)

const (
	PartyTypeCustomer = "CUSTOMER"
	PartyTypeVendor   = "VENDOR"
)

// Customer 客户表
// balance 为有符号余额：正数表示客户欠代理商（应收），负数表示客户预存款
type Customer struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32);index" json:"phone"`
	Email     string    `gorm:"type:varchar(64)" json:"email"`
	Address   string    `gorm:"type:varchar(256)" json:"address"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Customer) TableName() string {
	return "customer"
}

// Vendor 供应商表
// balance 为未付清的应付总额，正常业务下非负
type Vendor struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(32);index" json:"phone"`
	Email     string    `gorm:"type:varchar(64)" json:"email"`
	Address   string    `gorm:"type:varchar(256)" json:"address"`
	Balance   int64     `gorm:"not null;default:0" json:"balance"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Vendor) TableName() string {
	return "vendor"
}
