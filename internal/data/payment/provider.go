package payment

import (
	"context"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// NewGateways 按配置初始化启用的支付渠道
func NewGateways(c *conf.Bootstrap, logger log.Logger) (biz.Gateways, error) {
	var gateways []biz.PaymentGateway
	if c.Payment != nil {
		if wc := c.Payment.Wechat; wc != nil && wc.Enabled {
			gw, err := NewWechatGateway(context.Background(), wc, logger)
			if err != nil {
				return nil, err
			}
			gateways = append(gateways, gw)
		}
		if rc := c.Payment.Razorpay; rc != nil && rc.Enabled {
			gateways = append(gateways, NewRazorpayGateway(rc, logger))
		}
	}
	if len(gateways) == 0 {
		log.NewHelper(logger).Warn("no payment gateway enabled, recharge orders cannot be created")
	}
	return biz.NewGateways(gateways...), nil
}
