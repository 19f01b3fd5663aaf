package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RechargeReview 充值人工复核记录
type RechargeReview struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	OrderID       string          `gorm:"type:varchar(32);not null;uniqueIndex:uk_order_reason_txn,priority:1"`
	Reason        string          `gorm:"type:varchar(32);not null;uniqueIndex:uk_order_reason_txn,priority:2"`
	TransactionID string          `gorm:"type:varchar(64);not null;default:'';uniqueIndex:uk_order_reason_txn,priority:3"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Detail        string          `gorm:"type:varchar(255)"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (RechargeReview) TableName() string {
	return "recharge_review"
}

// All 需要迁移的表
func All() []interface{} {
	return []interface{}{
		&RechargeOrder{},
		&Wallet{},
		&WalletTransaction{},
		&RechargeReview{},
	}
}
