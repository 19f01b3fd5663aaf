package biz

import (
	"time"

	"recharge-service/internal/conf"
)

// RechargeConfig 充值配置
type RechargeConfig struct {
	ExpireAfter    time.Duration // 订单有效期
	ReconcileGrace time.Duration // 下单后多久才开始主动对账
	GatewayTimeout time.Duration // 单次渠道调用超时
	SweepBatch     int           // 每批扫描订单数
	Currency       string        // 实付币种
	WalletCurrency string        // 钱包币种
}

// NewRechargeConfig 从配置创建 RechargeConfig
func NewRechargeConfig(c *conf.Bootstrap) *RechargeConfig {
	config := &RechargeConfig{
		ExpireAfter:    24 * time.Hour,
		ReconcileGrace: 3 * time.Minute,
		GatewayTimeout: 5 * time.Second,
		SweepBatch:     100,
		Currency:       "CNY",
		WalletCurrency: "COIN",
	}
	if c == nil || c.Recharge == nil {
		return config
	}
	r := c.Recharge
	if d := r.ExpireAfter.AsDuration(); d > 0 {
		config.ExpireAfter = d
	}
	if d := r.ReconcileGrace.AsDuration(); d > 0 {
		config.ReconcileGrace = d
	}
	if d := r.GatewayTimeout.AsDuration(); d > 0 {
		config.GatewayTimeout = d
	}
	if r.SweepBatch > 0 {
		config.SweepBatch = int(r.SweepBatch)
	}
	if r.Currency != "" {
		config.Currency = r.Currency
	}
	if r.WalletCurrency != "" {
		config.WalletCurrency = r.WalletCurrency
	}
	return config
}
