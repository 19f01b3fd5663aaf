package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateOrderRequest 创建充值订单
type CreateOrderRequest struct {
	UserID        string          `json:"user_id"`
	PackageID     string          `json:"package_id"`
	Coins         int64           `json:"coins"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

// OrderRequest 按订单号操作（查询 / 取消 / 重新下单）
type OrderRequest struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

// ListOrdersRequest 分页查询订单
type ListOrdersRequest struct {
	UserID   string `json:"user_id"`
	Page     int32  `json:"page"`
	PageSize int32  `json:"page_size"`
}

// OrderInfo 订单信息
type OrderInfo struct {
	OrderID                 string     `json:"order_id"`
	UserID                  string     `json:"user_id"`
	PackageID               string     `json:"package_id"`
	Coins                   int64      `json:"coins"`
	Amount                  string     `json:"amount"`
	Currency                string     `json:"currency"`
	PaymentMethod           string     `json:"payment_method"`
	Status                  string     `json:"status"`
	ThirdPartyTransactionID string     `json:"third_party_transaction_id,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	ExpiredAt               time.Time  `json:"expired_at"`
	PaidAt                  *time.Time `json:"paid_at,omitempty"`
}

// ChargeInfo 客户端拉起支付所需参数
type ChargeInfo struct {
	ChargeID string            `json:"charge_id,omitempty"`
	Params   map[string]string `json:"params"`
}

// OrderReply 单个订单
type OrderReply struct {
	Order  *OrderInfo  `json:"order"`
	Charge *ChargeInfo `json:"charge,omitempty"`
}

// ListOrdersReply 订单列表
type ListOrdersReply struct {
	Total  int64        `json:"total"`
	Orders []*OrderInfo `json:"orders"`
}

// CancelOrderReply 取消结果；订单已是 SUCCESS / FAILED 时 Cancelled 为 false
type CancelOrderReply struct {
	Cancelled bool `json:"cancelled"`
}

// WalletRequest 按用户操作钱包
type WalletRequest struct {
	UserID string `json:"user_id"`
}

// WalletReply 钱包信息
type WalletReply struct {
	UserID       string `json:"user_id"`
	Balance      string `json:"balance"`
	FrozenAmount string `json:"frozen_amount"`
	Currency     string `json:"currency"`
}

// BalanceReply 余额
type BalanceReply struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
}

// ListTransactionsRequest 分页查询流水
type ListTransactionsRequest struct {
	UserID   string `json:"user_id"`
	Page     int32  `json:"page"`
	PageSize int32  `json:"page_size"`
}

// TransactionInfo 流水
type TransactionInfo struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Description  string    `json:"description"`
	RelatedID    string    `json:"related_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// ListTransactionsReply 流水列表
type ListTransactionsReply struct {
	Total        int64              `json:"total"`
	Transactions []*TransactionInfo `json:"transactions"`
}

// DebitRequest 扣币（送礼等）
type DebitRequest struct {
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	RelatedID   string          `json:"related_id"`
}

// DebitReply 扣币结果
type DebitReply struct {
	BalanceAfter string `json:"balance_after"`
}

// AuditReply 账本核对结果
type AuditReply struct {
	UserID      string `json:"user_id"`
	Balance     string `json:"balance"`
	Replayed    string `json:"replayed"`
	Entries     int    `json:"entries"`
	Consistent  bool   `json:"consistent"`
	FirstBadRow int64  `json:"first_bad_row,omitempty"`
}

// ListReviewsRequest 分页查询复核记录
type ListReviewsRequest struct {
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

// ReviewInfo 复核记录
type ReviewInfo struct {
	ID            int64     `json:"id"`
	OrderID       string    `json:"order_id"`
	Reason        string    `json:"reason"`
	TransactionID string    `json:"transaction_id"`
	PaidAmount    string    `json:"paid_amount"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListReviewsReply 复核记录列表
type ListReviewsReply struct {
	Total   int64         `json:"total"`
	Reviews []*ReviewInfo `json:"reviews"`
}
