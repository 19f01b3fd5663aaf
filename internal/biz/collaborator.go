package biz

//go:generate mockgen -source=collaborator.go -destination=mock_collaborator_test.go -package=biz

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UserChecker 用户服务（判断用户是否存在）
type UserChecker interface {
	Exists(ctx context.Context, userID string) (bool, error)
}

// RechargeSucceededEvent 充值成功事件，供财富等级等下游更新
type RechargeSucceededEvent struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Coins         int64           `json:"coins"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	PaidAt        time.Time       `json:"paid_at"`
}

// WealthNotifier 充值成功后的下游通知，失败不影响入账
type WealthNotifier interface {
	RechargeSucceeded(ctx context.Context, event *RechargeSucceededEvent)
}
