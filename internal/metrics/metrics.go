package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RechargeMetrics 充值与钱包指标
type RechargeMetrics struct {
	// 订单相关指标
	RechargeOrderTotal          *prometheus.CounterVec // 充值订单状态迁移次数（按状态）
	RechargeOrderCreateDuration prometheus.Histogram   // 订单创建耗时
	RechargeAmount              *prometheus.CounterVec // 充值金额（按支付方式）

	// 回调相关指标
	NotifyTotal    *prometheus.CounterVec   // 回调处理次数（按渠道、结果）
	NotifyDuration *prometheus.HistogramVec // 回调处理耗时
	ReviewTotal    *prometheus.CounterVec   // 人工复核告警（按原因）

	// 对账相关指标
	ReconcileTotal *prometheus.CounterVec // 对账处理次数（按结果）
	ExpireTotal    prometheus.Counter     // 超时关闭订单数

	// 支付渠道相关指标
	GatewayDuration *prometheus.HistogramVec // 渠道调用耗时（按渠道、操作）
	GatewayErrors   *prometheus.CounterVec   // 渠道调用失败（按渠道、操作）

	// 钱包相关指标
	WalletMutationTotal  *prometheus.CounterVec // 余额变动次数（按类型、结果）
	WalletMutationAmount *prometheus.CounterVec // 余额变动金额（按类型）

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewRechargeMetrics 创建指标
func NewRechargeMetrics() *RechargeMetrics {
	return &RechargeMetrics{
		RechargeOrderTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_order_total",
				Help: "Total number of recharge order transitions",
			},
			[]string{"status"}, // status: PENDING/SUCCESS/FAILED/CANCELLED
		),
		RechargeOrderCreateDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recharge_order_create_duration_seconds",
				Help:    "Duration of recharge order creation",
				Buckets: prometheus.DefBuckets,
			},
		),
		RechargeAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_amount_total",
				Help: "Total real-money amount of successful recharges",
			},
			[]string{"method"},
		),

		NotifyTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_notify_total",
				Help: "Total number of payment notifications",
			},
			[]string{"method", "result"},
		),
		NotifyDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recharge_notify_duration_seconds",
				Help:    "Duration of payment notification handling",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		ReviewTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_review_total",
				Help: "Total number of recharge orders flagged for manual review",
			},
			[]string{"reason"},
		),

		ReconcileTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_reconcile_total",
				Help: "Total number of reconciled pending orders",
			},
			[]string{"result"},
		),
		ExpireTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "recharge_expire_total",
				Help: "Total number of pending orders cancelled by expiry",
			},
		),

		GatewayDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recharge_gateway_duration_seconds",
				Help:    "Duration of payment gateway calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "operation"}, // operation: create/query/verify
		),
		GatewayErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_gateway_errors_total",
				Help: "Total number of failed payment gateway calls",
			},
			[]string{"method", "operation"},
		),

		WalletMutationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_mutation_total",
				Help: "Total number of wallet balance mutations",
			},
			[]string{"type", "result"},
		),
		WalletMutationAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_mutation_amount_total",
				Help: "Absolute amount of wallet balance mutations",
			},
			[]string{"type"},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recharge_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recharge_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例（promauto 注册到默认 registry，只能创建一次）
var (
	defaultMetrics *RechargeMetrics
	initOnce       sync.Once
)

// InitMetrics 初始化全局指标
func InitMetrics() {
	initOnce.Do(func() {
		defaultMetrics = NewRechargeMetrics()
	})
}

// GetMetrics 获取全局指标实例
func GetMetrics() *RechargeMetrics {
	InitMetrics()
	return defaultMetrics
}
