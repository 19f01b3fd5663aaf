package constants

// Redis Key 前缀常量
const (
	// RedisKeyBalance 钱包余额缓存 key 前缀
	RedisKeyBalance = "wallet:balance:"
	// RedisKeyOrderLock 充值订单锁 key 前缀
	RedisKeyOrderLock = "recharge:order:lock:"
)

// 订单状态常量
const (
	// OrderStatusPending 待支付
	OrderStatusPending = "PENDING"
	// OrderStatusSuccess 支付成功
	OrderStatusSuccess = "SUCCESS"
	// OrderStatusFailed 支付失败
	OrderStatusFailed = "FAILED"
	// OrderStatusCancelled 已取消（用户取消或超时）
	OrderStatusCancelled = "CANCELLED"
)

// 支付方式常量
const (
	// PaymentMethodWechat 微信支付
	PaymentMethodWechat = "wechatpay"
	// PaymentMethodRazorpay Razorpay
	PaymentMethodRazorpay = "razorpay"
)

// 钱包流水类型常量
const (
	// TransactionTypeRecharge 充值入账
	TransactionTypeRecharge = "RECHARGE"
	// TransactionTypeConsume 消费扣减（送礼等）
	TransactionTypeConsume = "CONSUME"
	// TransactionTypeEarn 收益入账（收礼等）
	TransactionTypeEarn = "EARN"
)

// 人工复核原因常量
const (
	// ReviewReasonAmountMismatch 回调金额与订单金额不一致
	ReviewReasonAmountMismatch = "AMOUNT_MISMATCH"
	// ReviewReasonLatePayment 订单终态后收到支付成功
	ReviewReasonLatePayment = "LATE_PAYMENT"
)

// 回调处理结果常量（用于指标）
const (
	NotifyResultAccepted  = "accepted"
	NotifyResultReplayed  = "replayed"
	NotifyResultIgnored   = "ignored"
	NotifyResultBadSign   = "bad_signature"
	NotifyResultNotFound  = "not_found"
	NotifyResultMismatch  = "amount_mismatch"
	NotifyResultLate      = "late_payment"
	NotifyResultError     = "error"
	ReconcileResultSkip   = "skipped"
	ReconcileResultApply  = "applied"
	ReconcileResultFailed = "failed"
)

// 订单ID前缀常量
const (
	// OrderIDPrefixRecharge 充值订单ID前缀
	OrderIDPrefixRecharge = "RC"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
