package errors

import (
	"fmt"

	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// Recharge Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Recharge 固定为 20
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块
//   01: 钱包模块
//   02: 充值订单模块
//   03: 支付渠道模块
//   04: 回调模块

// 通用模块错误码 (200000-200099)
const (
	// ErrCodeInvalidArgument 参数错误
	ErrCodeInvalidArgument = 200001
	// ErrCodeUserNotFound 用户不存在
	ErrCodeUserNotFound = 200002
	// ErrCodeUserServiceUnavailable 用户服务不可用
	ErrCodeUserServiceUnavailable = 200003
	// ErrCodeLockFailed 获取锁失败
	ErrCodeLockFailed = 200004
	// ErrCodeStorageFailed 存储失败
	ErrCodeStorageFailed = 200005
)

// 钱包模块错误码 (200100-200199)
const (
	// ErrCodeInsufficientBalance 余额不足
	ErrCodeInsufficientBalance = 200101
	// ErrCodeWalletCreditFailed 入账失败
	ErrCodeWalletCreditFailed = 200102
	// ErrCodeWalletDebitFailed 扣款失败
	ErrCodeWalletDebitFailed = 200103
	// ErrCodeLedgerMismatch 流水与余额不一致
	ErrCodeLedgerMismatch = 200104
)

// 充值订单模块错误码 (200200-200299)
const (
	// ErrCodeRechargeOrderNotFound 充值订单不存在
	ErrCodeRechargeOrderNotFound = 200201
	// ErrCodeRechargeOrderCreateFailed 充值订单创建失败
	ErrCodeRechargeOrderCreateFailed = 200202
	// ErrCodeRechargeOrderNotPending 订单不是待支付状态
	ErrCodeRechargeOrderNotPending = 200203
	// ErrCodeRechargeOrderForbidden 订单不属于当前用户
	ErrCodeRechargeOrderForbidden = 200204
	// ErrCodeRechargeOrderExpired 订单已过期
	ErrCodeRechargeOrderExpired = 200205
)

// 支付渠道模块错误码 (200300-200399)
const (
	// ErrCodeUnsupportedPaymentMethod 不支持的支付方式
	ErrCodeUnsupportedPaymentMethod = 200301
	// ErrCodeGatewayUnavailable 支付渠道不可用
	ErrCodeGatewayUnavailable = 200302
)

// 回调模块错误码 (200400-200499)
const (
	// ErrCodeSignatureInvalid 回调验签失败
	ErrCodeSignatureInvalid = 200401
	// ErrCodeAmountMismatch 回调金额不一致
	ErrCodeAmountMismatch = 200402
	// ErrCodeLatePayment 订单终态后的支付
	ErrCodeLatePayment = 200403
)

type codeInfo struct {
	status  int
	reason  string
	message string
}

var codes = map[int]codeInfo{
	ErrCodeInvalidArgument:           {400, "VALIDATION", "invalid argument"},
	ErrCodeUserNotFound:              {400, "VALIDATION", "user not found"},
	ErrCodeUserServiceUnavailable:    {503, "USER_SERVICE_UNAVAILABLE", "user service unavailable"},
	ErrCodeLockFailed:                {503, "LOCK_FAILED", "resource is busy, retry later"},
	ErrCodeStorageFailed:             {500, "STORAGE_FAILED", "storage unavailable"},
	ErrCodeInsufficientBalance:       {409, "INSUFFICIENT_BALANCE", "insufficient balance"},
	ErrCodeWalletCreditFailed:        {500, "WALLET_CREDIT_FAILED", "wallet credit failed"},
	ErrCodeWalletDebitFailed:         {500, "WALLET_DEBIT_FAILED", "wallet debit failed"},
	ErrCodeLedgerMismatch:            {500, "LEDGER_MISMATCH", "ledger does not reproduce wallet balance"},
	ErrCodeRechargeOrderNotFound:     {404, "NOT_FOUND", "recharge order not found"},
	ErrCodeRechargeOrderCreateFailed: {500, "RECHARGE_ORDER_CREATE_FAILED", "recharge order create failed"},
	ErrCodeRechargeOrderNotPending:   {409, "ORDER_NOT_PENDING", "recharge order is not pending"},
	ErrCodeRechargeOrderForbidden:    {403, "FORBIDDEN", "recharge order belongs to another user"},
	ErrCodeRechargeOrderExpired:      {409, "ORDER_EXPIRED", "recharge order expired"},
	ErrCodeUnsupportedPaymentMethod:  {400, "VALIDATION", "unsupported payment method"},
	ErrCodeGatewayUnavailable:        {503, "GATEWAY_UNAVAILABLE", "payment gateway unavailable, retry later"},
	ErrCodeSignatureInvalid:          {400, "SIGNATURE_INVALID", "notification signature invalid"},
	ErrCodeAmountMismatch:            {409, "AMOUNT_MISMATCH", "paid amount does not match order amount"},
	ErrCodeLatePayment:               {409, "LATE_PAYMENT", "payment arrived after the order reached a terminal state"},
}

// New 根据业务错误码创建 kratos 错误
func New(code int) *kerrors.Error {
	info, ok := codes[code]
	if !ok {
		info = codeInfo{500, "UNKNOWN", "unknown error"}
	}
	return kerrors.New(info.status, info.reason, info.message).
		WithMetadata(map[string]string{"code": fmt.Sprintf("%d", code)})
}

// Newf 创建带自定义描述的错误
func Newf(code int, format string, args ...interface{}) *kerrors.Error {
	e := New(code)
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Wrap 创建错误并附带原始错误
func Wrap(err error, code int) *kerrors.Error {
	return New(code).WithCause(err)
}

// Code 返回错误携带的业务错误码，非业务错误返回 0
func Code(err error) int {
	if err == nil {
		return 0
	}
	e := kerrors.FromError(err)
	if e == nil || e.Metadata == nil {
		return 0
	}
	var code int
	if _, scanErr := fmt.Sscanf(e.Metadata["code"], "%d", &code); scanErr != nil {
		return 0
	}
	return code
}

// Is 判断错误是否为指定业务错误码
func Is(err error, code int) bool {
	return Code(err) == code
}
