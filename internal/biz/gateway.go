package biz

//go:generate mockgen -source=gateway.go -destination=mock_gateway_test.go -package=biz

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

// ChargeStatus 渠道侧支付状态
type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "SUCCEEDED"
	ChargeFailed    ChargeStatus = "FAILED"
	ChargePending   ChargeStatus = "PENDING"
	ChargeUnknown   ChargeStatus = "UNKNOWN"
)

// ChargeToken 客户端完成支付所需的渠道参数
type ChargeToken struct {
	ChargeID string            // 渠道侧预支付单号（微信为空，Razorpay 为 order_xxx）
	Params   map[string]string // 透传给客户端的参数，如 code_url / key_id
}

// ChargeResult 主动查询的结果
type ChargeResult struct {
	Status        ChargeStatus
	TransactionID string
	PaidAmount    decimal.Decimal
}

// RawNotification 渠道异步通知原文
type RawNotification struct {
	Header http.Header
	Body   []byte
}

// VerifiedNotification 验签通过后的通知内容
type VerifiedNotification struct {
	OrderID       string
	TransactionID string
	PaidAmount    decimal.Decimal
	Outcome       ChargeStatus
}

// NotifyReply 渠道要求的应答
type NotifyReply struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// PaymentGateway 支付渠道适配器
//
// CreateCharge 不修改订单状态；QueryStatus 可重复调用；
// VerifyNotification 验签失败必须返回错误，未通过验签的通知不会进入状态机。
type PaymentGateway interface {
	Method() string
	// Currency 渠道下单使用的币种
	Currency() string
	CreateCharge(ctx context.Context, order *RechargeOrder) (*ChargeToken, error)
	QueryStatus(ctx context.Context, orderID string) (*ChargeResult, error)
	VerifyNotification(ctx context.Context, raw *RawNotification) (*VerifiedNotification, error)
	NotifyReply(accepted bool) *NotifyReply
}

// Gateways 支付方式 -> 适配器
type Gateways map[string]PaymentGateway

// NewGateways 以 Method() 为键注册适配器
func NewGateways(gateways ...PaymentGateway) Gateways {
	g := make(Gateways, len(gateways))
	for _, gw := range gateways {
		if gw == nil {
			continue
		}
		g[gw.Method()] = gw
	}
	return g
}

// Get 获取适配器
func (g Gateways) Get(method string) (PaymentGateway, bool) {
	gw, ok := g[method]
	return gw, ok
}
