package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RechargeOrder 充值订单表
type RechargeOrder struct {
	OrderID                 string          `gorm:"primaryKey;type:varchar(32)"`
	UserID                  string          `gorm:"type:varchar(36);not null;index:idx_user_created,priority:1"`
	PackageID               string          `gorm:"type:varchar(64);not null"`
	Coins                   int64           `gorm:"not null"`
	Amount                  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Currency                string          `gorm:"type:varchar(8);not null"`
	PaymentMethod           string          `gorm:"type:varchar(16);not null"`
	Status                  string          `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_status_created,priority:1"`
	ThirdPartyTransactionID string          `gorm:"type:varchar(64)"`
	ChargeID                string          `gorm:"type:varchar(64)"`
	ExpiredAt               time.Time       `gorm:"not null;index"`
	PaidAt                  *time.Time
	CreatedAt               time.Time `gorm:"index:idx_user_created,priority:2;index:idx_status_created,priority:2"`
	UpdatedAt               time.Time
}

// TableName 指定表名
func (RechargeOrder) TableName() string {
	return "recharge_order"
}
