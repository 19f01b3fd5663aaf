package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet 钱包表
type Wallet struct {
	UserID       string          `gorm:"primaryKey;type:varchar(36)"`
	Balance      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0.00"`
	FrozenAmount decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0.00"`
	Currency     string          `gorm:"type:varchar(8);not null"`
	Version      int64           `gorm:"not null;default:0"` // 乐观锁版本号
	CreatedAt    time.Time       `gorm:"autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Wallet) TableName() string {
	return "wallet"
}

// WalletTransaction 钱包流水表（只追加）
type WalletTransaction struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	UserID       string          `gorm:"type:varchar(36);not null;index:idx_user_id,priority:1"`
	Type         string          `gorm:"type:varchar(16);not null;uniqueIndex:uk_type_related,priority:1"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,2);not null"`
	Description  string          `gorm:"type:varchar(255)"`
	RelatedID    string          `gorm:"type:varchar(64);not null;uniqueIndex:uk_type_related,priority:2"`
	CreatedAt    time.Time       `gorm:"autoCreateTime;index:idx_user_id,priority:2"`
}

// TableName 指定表名
func (WalletTransaction) TableName() string {
	return "wallet_transaction"
}
