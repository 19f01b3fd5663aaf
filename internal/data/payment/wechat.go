package payment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"
	"recharge-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/wechatpay-apiv3/wechatpay-go/core"
	"github.com/wechatpay-apiv3/wechatpay-go/core/auth/verifiers"
	"github.com/wechatpay-apiv3/wechatpay-go/core/downloader"
	"github.com/wechatpay-apiv3/wechatpay-go/core/notify"
	"github.com/wechatpay-apiv3/wechatpay-go/core/option"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments"
	"github.com/wechatpay-apiv3/wechatpay-go/services/payments/native"
	"github.com/wechatpay-apiv3/wechatpay-go/utils"
)

// NativeAPI 微信 Native 支付接口
type NativeAPI interface {
	Prepay(ctx context.Context, req native.PrepayRequest) (*native.PrepayResponse, *core.APIResult, error)
	QueryOrderByOutTradeNo(ctx context.Context, req native.QueryOrderByOutTradeNoRequest) (*payments.Transaction, *core.APIResult, error)
}

// NotifyParser 微信支付通知验签解密
type NotifyParser interface {
	ParseNotifyRequest(ctx context.Context, request *http.Request, content interface{}) (*notify.Request, error)
}

// WechatGateway 微信支付 Native 下单
type WechatGateway struct {
	api         NativeAPI
	parser      NotifyParser
	appID       string
	mchID       string
	notifyURL   string
	description string
	log         *log.Helper
}

// NewWechatGateway 使用商户私钥、APIv3 密钥初始化微信支付客户端，平台证书自动下载更新
func NewWechatGateway(ctx context.Context, c *conf.Payment_Wechat, logger log.Logger) (*WechatGateway, error) {
	privateKey, err := utils.LoadPrivateKeyWithPath(c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load wechat merchant private key: %w", err)
	}
	client, err := core.NewClient(ctx,
		option.WithWechatPayAutoAuthCipher(c.MchID, c.MchSerialNum, privateKey, c.MchKey),
	)
	if err != nil {
		return nil, fmt.Errorf("init wechat pay client: %w", err)
	}
	visitor := downloader.MgrInstance().GetCertificateVisitor(c.MchID)
	handler, err := notify.NewRSANotifyHandler(c.MchKey, verifiers.NewSHA256WithRSAVerifier(visitor))
	if err != nil {
		return nil, fmt.Errorf("init wechat notify handler: %w", err)
	}
	return newWechatGateway(&native.NativeApiService{Client: client}, handler, c, logger), nil
}

func newWechatGateway(api NativeAPI, parser NotifyParser, c *conf.Payment_Wechat, logger log.Logger) *WechatGateway {
	description := c.Description
	if description == "" {
		description = "金币充值"
	}
	return &WechatGateway{
		api:         api,
		parser:      parser,
		appID:       c.AppID,
		mchID:       c.MchID,
		notifyURL:   c.NotifyURL,
		description: description,
		log:         log.NewHelper(logger),
	}
}

// Method 支付方式
func (g *WechatGateway) Method() string {
	return constants.PaymentMethodWechat
}

// Currency Native 支付只支持人民币
func (g *WechatGateway) Currency() string {
	return "CNY"
}

// CreateCharge Native 下单，返回二维码链接
func (g *WechatGateway) CreateCharge(ctx context.Context, order *biz.RechargeOrder) (*biz.ChargeToken, error) {
	req := native.PrepayRequest{
		Appid:       core.String(g.appID),
		Mchid:       core.String(g.mchID),
		Description: core.String(g.description),
		OutTradeNo:  core.String(order.OrderID),
		TimeExpire:  core.Time(order.ExpiredAt),
		Attach:      core.String(order.UserID),
		NotifyUrl:   core.String(g.notifyURL),
		Amount: &native.Amount{
			Total:    core.Int64(toFen(order.Amount)),
			Currency: core.String(order.Currency),
		},
	}
	if order.ClientIP != "" {
		req.SceneInfo = &native.SceneInfo{PayerClientIp: core.String(order.ClientIP)}
	}

	resp, _, err := g.api.Prepay(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.CodeUrl == nil {
		return nil, errors.New("wechat prepay returned empty code_url")
	}
	return &biz.ChargeToken{
		Params: map[string]string{
			"code_url": *resp.CodeUrl,
		},
	}, nil
}

// QueryStatus 按商户订单号查询
func (g *WechatGateway) QueryStatus(ctx context.Context, orderID string) (*biz.ChargeResult, error) {
	txn, _, err := g.api.QueryOrderByOutTradeNo(ctx, native.QueryOrderByOutTradeNoRequest{
		OutTradeNo: core.String(orderID),
		Mchid:      core.String(g.mchID),
	})
	if err != nil {
		var apiErr *core.APIError
		if errors.As(err, &apiErr) && apiErr.Code == "ORDER_NOT_EXIST" {
			return &biz.ChargeResult{Status: biz.ChargeUnknown}, nil
		}
		return nil, err
	}
	return transactionResult(txn), nil
}

// VerifyNotification 验签并解密支付通知
func (g *WechatGateway) VerifyNotification(ctx context.Context, raw *biz.RawNotification) (*biz.VerifiedNotification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.notifyURL, bytes.NewReader(raw.Body))
	if err != nil {
		return nil, err
	}
	req.Header = raw.Header.Clone()

	txn := new(payments.Transaction)
	notifyReq, err := g.parser.ParseNotifyRequest(ctx, req, txn)
	if err != nil {
		return nil, err
	}
	if txn.OutTradeNo == nil {
		return nil, errors.New("wechat notification missing out_trade_no")
	}

	res := transactionResult(txn)
	g.log.Infof("Wechat notification: event=%s, order_id=%s, trade_state=%s",
		notifyReq.EventType, *txn.OutTradeNo, stringValue(txn.TradeState))
	return &biz.VerifiedNotification{
		OrderID:       *txn.OutTradeNo,
		TransactionID: res.TransactionID,
		PaidAmount:    res.PaidAmount,
		Outcome:       res.Status,
	}, nil
}

// NotifyReply 微信要求的应答格式
func (g *WechatGateway) NotifyReply(accepted bool) *biz.NotifyReply {
	if accepted {
		return &biz.NotifyReply{
			StatusCode:  http.StatusOK,
			ContentType: "application/json",
			Body:        []byte(`{"code":"SUCCESS","message":"成功"}`),
		}
	}
	return &biz.NotifyReply{
		StatusCode:  http.StatusInternalServerError,
		ContentType: "application/json",
		Body:        []byte(`{"code":"FAIL","message":"失败"}`),
	}
}

func transactionResult(txn *payments.Transaction) *biz.ChargeResult {
	res := &biz.ChargeResult{
		Status:        tradeStateToStatus(stringValue(txn.TradeState)),
		TransactionID: stringValue(txn.TransactionId),
		PaidAmount:    decimal.Zero,
	}
	if txn.Amount != nil && txn.Amount.Total != nil {
		res.PaidAmount = fromFen(*txn.Amount.Total)
	}
	return res
}

func tradeStateToStatus(state string) biz.ChargeStatus {
	switch state {
	case "SUCCESS":
		return biz.ChargeSucceeded
	case "PAYERROR", "CLOSED", "REVOKED":
		return biz.ChargeFailed
	case "NOTPAY", "USERPAYING":
		return biz.ChargePending
	default:
		return biz.ChargeUnknown
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toFen 元 -> 分
func toFen(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// fromFen 分 -> 元
func fromFen(fen int64) decimal.Decimal {
	return decimal.New(fen, -2)
}

var _ biz.PaymentGateway = (*WechatGateway)(nil)
