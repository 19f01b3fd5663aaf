package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"
	"recharge-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
	"github.com/shopspring/decimal"
)

const (
	razorpaySignatureHeader = "X-Razorpay-Signature"
	defaultRazorpayCurrency = "INR"
)

// RazorpayOrders Razorpay Orders API
type RazorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	All(queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Payments(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayGateway Razorpay 订单 + Checkout
type RazorpayGateway struct {
	orders        RazorpayOrders
	keyID         string
	webhookSecret string
	currency      string
	log           *log.Helper
}

// NewRazorpayGateway 创建 Razorpay 适配器
func NewRazorpayGateway(c *conf.Payment_Razorpay, logger log.Logger) *RazorpayGateway {
	client := razorpay.NewClient(c.KeyID, c.KeySecret)
	return newRazorpayGateway(client.Order, c, logger)
}

func newRazorpayGateway(orders RazorpayOrders, c *conf.Payment_Razorpay, logger log.Logger) *RazorpayGateway {
	currency := c.Currency
	if currency == "" {
		currency = defaultRazorpayCurrency
	}
	return &RazorpayGateway{
		orders:        orders,
		keyID:         c.KeyID,
		webhookSecret: c.WebhookSecret,
		currency:      currency,
		log:           log.NewHelper(logger),
	}
}

// Method 支付方式
func (g *RazorpayGateway) Method() string {
	return constants.PaymentMethodRazorpay
}

// Currency 下单币种，取自 payment.razorpay.currency
func (g *RazorpayGateway) Currency() string {
	return g.currency
}

// CreateCharge 创建 Razorpay order，receipt 为充值订单号
func (g *RazorpayGateway) CreateCharge(ctx context.Context, order *biz.RechargeOrder) (*biz.ChargeToken, error) {
	currency := order.Currency
	if currency == "" {
		currency = g.currency
	}
	amount := toFen(order.Amount)
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  order.OrderID,
		"notes": map[string]interface{}{
			"user_id":    order.UserID,
			"package_id": order.PackageID,
		},
	}

	resp, err := withContext(ctx, func() (map[string]interface{}, error) {
		return g.orders.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}
	rzpOrderID, _ := resp["id"].(string)
	if rzpOrderID == "" {
		return nil, errors.New("razorpay order create returned empty id")
	}
	return &biz.ChargeToken{
		ChargeID: rzpOrderID,
		Params: map[string]string{
			"key_id":   g.keyID,
			"order_id": rzpOrderID,
			"amount":   fmt.Sprintf("%d", amount),
			"currency": currency,
		},
	}, nil
}

// QueryStatus 按 receipt 查询 Razorpay order，任一 order 已支付即视为成功
func (g *RazorpayGateway) QueryStatus(ctx context.Context, orderID string) (*biz.ChargeResult, error) {
	resp, err := withContext(ctx, func() (map[string]interface{}, error) {
		return g.orders.All(map[string]interface{}{"receipt": orderID}, nil)
	})
	if err != nil {
		return nil, err
	}

	items, _ := resp["items"].([]interface{})
	if len(items) == 0 {
		return &biz.ChargeResult{Status: biz.ChargeUnknown}, nil
	}
	for _, item := range items {
		rzpOrder, ok := item.(map[string]interface{})
		if !ok || rzpOrder["status"] != "paid" {
			continue
		}
		rzpOrderID, _ := rzpOrder["id"].(string)
		return &biz.ChargeResult{
			Status:        biz.ChargeSucceeded,
			TransactionID: g.capturedPaymentID(ctx, rzpOrderID),
			PaidAmount:    minorUnits(rzpOrder["amount_paid"]),
		}, nil
	}
	// created / attempted：用户仍可在同一 order 上重试支付
	return &biz.ChargeResult{Status: biz.ChargePending}, nil
}

// capturedPaymentID 查询已捕获的 payment id，查不到时退回 order id
func (g *RazorpayGateway) capturedPaymentID(ctx context.Context, rzpOrderID string) string {
	resp, err := withContext(ctx, func() (map[string]interface{}, error) {
		return g.orders.Payments(rzpOrderID, nil, nil)
	})
	if err != nil {
		g.log.Warnf("razorpay list payments failed: order_id=%s, error=%v", rzpOrderID, err)
		return rzpOrderID
	}
	items, _ := resp["items"].([]interface{})
	for _, item := range items {
		p, ok := item.(map[string]interface{})
		if ok && p["status"] == "captured" {
			if id, _ := p["id"].(string); id != "" {
				return id
			}
		}
	}
	return rzpOrderID
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
				Amount  int64  `json:"amount"`
			} `json:"entity"`
		} `json:"payment"`
		Order *struct {
			Entity struct {
				ID         string `json:"id"`
				Receipt    string `json:"receipt"`
				Status     string `json:"status"`
				AmountPaid int64  `json:"amount_paid"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// VerifyNotification 校验 webhook 签名；只有 order.paid 代表终态
func (g *RazorpayGateway) VerifyNotification(_ context.Context, raw *biz.RawNotification) (*biz.VerifiedNotification, error) {
	signature := raw.Header.Get(razorpaySignatureHeader)
	if signature == "" {
		return nil, errors.New("razorpay webhook missing signature")
	}
	if !utils.VerifyWebhookSignature(string(raw.Body), signature, g.webhookSecret) {
		return nil, errors.New("razorpay webhook signature mismatch")
	}

	var hook razorpayWebhook
	if err := json.Unmarshal(raw.Body, &hook); err != nil {
		return nil, fmt.Errorf("decode razorpay webhook: %w", err)
	}

	n := &biz.VerifiedNotification{Outcome: biz.ChargePending, PaidAmount: decimal.Zero}
	if hook.Payload.Order != nil {
		n.OrderID = hook.Payload.Order.Entity.Receipt
	}
	if hook.Event == "order.paid" && hook.Payload.Order != nil {
		n.Outcome = biz.ChargeSucceeded
		n.PaidAmount = fromFen(hook.Payload.Order.Entity.AmountPaid)
		n.TransactionID = hook.Payload.Order.Entity.ID
		if hook.Payload.Payment != nil && hook.Payload.Payment.Entity.ID != "" {
			n.TransactionID = hook.Payload.Payment.Entity.ID
		}
	}
	g.log.Infof("Razorpay webhook: event=%s, order_id=%s, outcome=%s", hook.Event, n.OrderID, n.Outcome)
	return n, nil
}

// NotifyReply Razorpay 只看状态码，非 2xx 会重试
func (g *RazorpayGateway) NotifyReply(accepted bool) *biz.NotifyReply {
	if accepted {
		return &biz.NotifyReply{StatusCode: http.StatusOK, ContentType: "text/plain", Body: []byte("ok")}
	}
	return &biz.NotifyReply{StatusCode: http.StatusBadRequest, ContentType: "text/plain", Body: []byte("rejected")}
}

// withContext razorpay-go 不支持 ctx，超时后放弃等待
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case r := <-ch:
		return r.v, r.err
	}
}

// minorUnits JSON 数字（最小货币单位）-> 金额
func minorUnits(v interface{}) decimal.Decimal {
	switch n := v.(type) {
	case float64:
		return fromFen(int64(n))
	case json.Number:
		i, _ := n.Int64()
		return fromFen(i)
	case int64:
		return fromFen(n)
	case int:
		return fromFen(int64(n))
	default:
		return decimal.Zero
	}
}

var _ biz.PaymentGateway = (*RazorpayGateway)(nil)
