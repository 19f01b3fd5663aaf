package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRazorpayOrders struct {
	created  map[string]interface{}
	all      map[string]interface{}
	payments map[string]interface{}
	err      error
	delay    time.Duration
}

func (f *fakeRazorpayOrders) Create(data map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	f.created = data
	if f.err != nil {
		return nil, f.err
	}
	return map[string]interface{}{"id": "order_Rzp1", "status": "created"}, nil
}

func (f *fakeRazorpayOrders) All(_ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	time.Sleep(f.delay)
	return f.all, f.err
}

func (f *fakeRazorpayOrders) Payments(_ string, _ map[string]interface{}, _ map[string]string) (map[string]interface{}, error) {
	return f.payments, nil
}

const testWebhookSecret = "whsec_test"

func newTestRazorpay(orders RazorpayOrders) *RazorpayGateway {
	return newRazorpayGateway(orders, &conf.Payment_Razorpay{
		KeyID:         "rzp_test_key",
		WebhookSecret: testWebhookSecret,
		Currency:      "INR",
	}, log.DefaultLogger)
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestRazorpay_CreateCharge(t *testing.T) {
	orders := &fakeRazorpayOrders{}
	gw := newTestRazorpay(orders)

	token, err := gw.CreateCharge(context.Background(), &biz.RechargeOrder{
		OrderID:  "RC0101",
		UserID:   "u1",
		Amount:   decimal.RequireFromString("99.50"),
		Currency: "INR",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_Rzp1", token.ChargeID)
	assert.Equal(t, "rzp_test_key", token.Params["key_id"])
	assert.Equal(t, "9950", token.Params["amount"])
	assert.Equal(t, int64(9950), orders.created["amount"])
	assert.Equal(t, "RC0101", orders.created["receipt"])

	orders.err = errors.New("BAD_REQUEST_ERROR")
	_, err = gw.CreateCharge(context.Background(), &biz.RechargeOrder{OrderID: "RC0102", Amount: decimal.NewFromInt(1)})
	assert.Error(t, err)
}

func TestRazorpay_Currency(t *testing.T) {
	assert.Equal(t, "INR", newTestRazorpay(&fakeRazorpayOrders{}).Currency())

	gw := newRazorpayGateway(&fakeRazorpayOrders{}, &conf.Payment_Razorpay{KeyID: "rzp_test_key"}, log.DefaultLogger)
	assert.Equal(t, "INR", gw.Currency())
}

func TestRazorpay_QueryStatus(t *testing.T) {
	t.Run("paid", func(t *testing.T) {
		gw := newTestRazorpay(&fakeRazorpayOrders{
			all: map[string]interface{}{"items": []interface{}{
				map[string]interface{}{"id": "order_old", "status": "attempted", "amount_paid": float64(0)},
				map[string]interface{}{"id": "order_new", "status": "paid", "amount_paid": float64(9950)},
			}},
			payments: map[string]interface{}{"items": []interface{}{
				map[string]interface{}{"id": "pay_failed", "status": "failed"},
				map[string]interface{}{"id": "pay_ok", "status": "captured"},
			}},
		})
		res, err := gw.QueryStatus(context.Background(), "RC0103")
		require.NoError(t, err)
		assert.Equal(t, biz.ChargeSucceeded, res.Status)
		assert.Equal(t, "pay_ok", res.TransactionID)
		assert.True(t, res.PaidAmount.Equal(decimal.RequireFromString("99.5")))
	})

	t.Run("attempted", func(t *testing.T) {
		gw := newTestRazorpay(&fakeRazorpayOrders{all: map[string]interface{}{"items": []interface{}{
			map[string]interface{}{"id": "order_a", "status": "attempted"},
		}}})
		res, err := gw.QueryStatus(context.Background(), "RC0104")
		require.NoError(t, err)
		assert.Equal(t, biz.ChargePending, res.Status)
	})

	t.Run("unknown", func(t *testing.T) {
		gw := newTestRazorpay(&fakeRazorpayOrders{all: map[string]interface{}{"count": float64(0), "items": []interface{}{}}})
		res, err := gw.QueryStatus(context.Background(), "RC0105")
		require.NoError(t, err)
		assert.Equal(t, biz.ChargeUnknown, res.Status)
	})

	t.Run("timeout", func(t *testing.T) {
		gw := newTestRazorpay(&fakeRazorpayOrders{delay: 200 * time.Millisecond})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := gw.QueryStatus(ctx, "RC0106")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRazorpay_VerifyNotification(t *testing.T) {
	gw := newTestRazorpay(&fakeRazorpayOrders{})
	paid := []byte(`{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured","amount":9950}},"order":{"entity":{"id":"order_1","receipt":"RC0107","status":"paid","amount_paid":9950}}}}`)

	header := http.Header{}
	header.Set(razorpaySignatureHeader, sign(paid))
	n, err := gw.VerifyNotification(context.Background(), &biz.RawNotification{Header: header, Body: paid})
	require.NoError(t, err)
	assert.Equal(t, "RC0107", n.OrderID)
	assert.Equal(t, "pay_1", n.TransactionID)
	assert.Equal(t, biz.ChargeSucceeded, n.Outcome)
	assert.True(t, n.PaidAmount.Equal(decimal.RequireFromString("99.50")))

	failed := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_1","status":"failed","amount":9950}}}}`)
	header.Set(razorpaySignatureHeader, sign(failed))
	n, err = gw.VerifyNotification(context.Background(), &biz.RawNotification{Header: header, Body: failed})
	require.NoError(t, err)
	assert.Equal(t, biz.ChargePending, n.Outcome)

	header.Set(razorpaySignatureHeader, sign([]byte("tampered")))
	_, err = gw.VerifyNotification(context.Background(), &biz.RawNotification{Header: header, Body: paid})
	assert.Error(t, err)

	_, err = gw.VerifyNotification(context.Background(), &biz.RawNotification{Header: http.Header{}, Body: paid})
	assert.Error(t, err)
}
