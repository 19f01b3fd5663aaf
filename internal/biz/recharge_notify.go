package biz

import (
	"context"
	"fmt"
	"time"

	"recharge-service/internal/constants"
	rechargeErrors "recharge-service/internal/errors"

	"github.com/shopspring/decimal"
)

type applyResult int

const (
	applyResultIgnored  applyResult = iota // 非终态结果，不处理
	applyResultApplied                     // 状态已迁移
	applyResultReplayed                    // 订单已是对应终态，重复通知
	applyResultMismatch                    // 金额不一致，订单保持 PENDING
	applyResultLate                        // 订单已关闭后收到支付成功
)

// outcome 渠道确认的最终结果
type outcome struct {
	status        ChargeStatus
	transactionID string
	paidAmount    decimal.Decimal
	source        string // notify / reconcile
}

// HandleNotification 处理渠道异步通知，返回是否向渠道确认已处理
//
// 验签失败、订单不存在、金额不一致、终态后支付都返回 false，渠道会按自身策略重试。
func (uc *RechargeOrderUseCase) HandleNotification(ctx context.Context, method string, raw *RawNotification) (bool, error) {
	startTime := time.Now()
	defer func() {
		uc.metrics.NotifyDuration.WithLabelValues(method).Observe(time.Since(startTime).Seconds())
	}()

	gw, ok := uc.gateways.Get(method)
	if !ok {
		return false, rechargeErrors.New(rechargeErrors.ErrCodeUnsupportedPaymentMethod)
	}

	n, err := uc.verifyNotification(ctx, gw, raw)
	if err != nil {
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultBadSign).Inc()
		uc.log.Warnf("Notification rejected: method=%s, error=%v", method, err)
		return false, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeSignatureInvalid)
	}

	order, err := uc.repo.GetOrderByID(ctx, n.OrderID)
	if err != nil {
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultError).Inc()
		return false, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	if order == nil || order.PaymentMethod != method {
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultNotFound).Inc()
		uc.log.Warnf("Notification for unknown order: method=%s, order_id=%s", method, n.OrderID)
		return false, rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderNotFound)
	}

	if n.Outcome != ChargeSucceeded && n.Outcome != ChargeFailed {
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultIgnored).Inc()
		uc.log.Infof("Notification ignored: method=%s, order_id=%s, outcome=%s", method, n.OrderID, n.Outcome)
		return true, nil
	}

	result, err := uc.applyOutcome(ctx, order.OrderID, &outcome{
		status:        n.Outcome,
		transactionID: n.TransactionID,
		paidAmount:    n.PaidAmount,
		source:        "notify",
	})
	if err != nil {
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultError).Inc()
		return false, err
	}

	switch result {
	case applyResultMismatch:
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultMismatch).Inc()
		return false, rechargeErrors.New(rechargeErrors.ErrCodeAmountMismatch)
	case applyResultLate:
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultLate).Inc()
		return false, rechargeErrors.New(rechargeErrors.ErrCodeLatePayment)
	case applyResultReplayed:
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultReplayed).Inc()
	default:
		uc.metrics.NotifyTotal.WithLabelValues(method, constants.NotifyResultAccepted).Inc()
	}
	return true, nil
}

// verifyNotification 验签（带超时）
func (uc *RechargeOrderUseCase) verifyNotification(ctx context.Context, gw PaymentGateway, raw *RawNotification) (*VerifiedNotification, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.conf.GatewayTimeout)
	defer cancel()

	start := time.Now()
	n, err := gw.VerifyNotification(callCtx, raw)
	uc.metrics.GatewayDuration.WithLabelValues(gw.Method(), "verify").Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.GatewayErrors.WithLabelValues(gw.Method(), "verify").Inc()
		return nil, err
	}
	return n, nil
}

// NotifyReply 渠道应答
func (uc *RechargeOrderUseCase) NotifyReply(method string, accepted bool) *NotifyReply {
	if gw, ok := uc.gateways.Get(method); ok {
		return gw.NotifyReply(accepted)
	}
	return &NotifyReply{StatusCode: 404}
}

// applyOutcome 在订单锁 + 数据库事务内迁移订单状态
//
// 成功时订单 SUCCESS 与钱包 RECHARGE 流水在同一事务内提交，任一失败整体回滚；
// 复核告警、缓存刷新、下游通知都在事务提交后执行。
func (uc *RechargeOrderUseCase) applyOutcome(ctx context.Context, orderID string, oc *outcome) (applyResult, error) {
	unlock, err := uc.lock(ctx, orderID)
	if err != nil {
		return applyResultIgnored, err
	}
	defer unlock()

	var (
		result  = applyResultIgnored
		order   *RechargeOrder
		balance decimal.Decimal
	)
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := uc.repo.GetOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		if o == nil {
			return rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderNotFound)
		}
		order = o

		if o.IsTerminal() {
			result = terminalResult(o, oc)
			return nil
		}

		now := uc.now()
		switch oc.status {
		case ChargeSucceeded:
			if !oc.paidAmount.Equal(o.Amount) {
				result = applyResultMismatch
				return nil
			}
			if err := o.MarkSuccess(oc.transactionID, now); err != nil {
				return err
			}
			if err := uc.repo.SaveOrder(ctx, o); err != nil {
				return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
			}
			balance, err = uc.wallet.CreditTx(ctx, o.UserID, decimal.NewFromInt(o.Coins),
				constants.TransactionTypeRecharge, fmt.Sprintf("recharge %s", o.PackageID), o.OrderID)
			if err != nil {
				return err
			}
		case ChargeFailed:
			if err := o.MarkFailed(oc.transactionID, now); err != nil {
				return err
			}
			if err := uc.repo.SaveOrder(ctx, o); err != nil {
				return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
			}
		default:
			return nil
		}
		result = applyResultApplied
		return nil
	})
	if err != nil {
		uc.log.Errorf("Apply outcome failed: order_id=%s, source=%s, status=%s, error=%v", orderID, oc.source, oc.status, err)
		return applyResultIgnored, err
	}

	switch result {
	case applyResultMismatch:
		uc.review.Flag(ctx, &ReviewRecord{
			OrderID:       orderID,
			Reason:        constants.ReviewReasonAmountMismatch,
			TransactionID: oc.transactionID,
			PaidAmount:    oc.paidAmount,
			Detail:        fmt.Sprintf("source=%s expected=%s", oc.source, order.Amount),
		})
	case applyResultLate:
		uc.review.Flag(ctx, &ReviewRecord{
			OrderID:       orderID,
			Reason:        constants.ReviewReasonLatePayment,
			TransactionID: oc.transactionID,
			PaidAmount:    oc.paidAmount,
			Detail:        fmt.Sprintf("source=%s status=%s", oc.source, order.Status),
		})
	case applyResultApplied:
		uc.metrics.RechargeOrderTotal.WithLabelValues(order.Status).Inc()
		uc.log.Infof("Recharge order %s: order_id=%s, user_id=%s, source=%s, transaction_id=%s",
			order.Status, order.OrderID, order.UserID, oc.source, oc.transactionID)
		if order.Status == constants.OrderStatusSuccess {
			uc.afterSuccess(ctx, order, balance)
		}
	}
	return result, nil
}

// terminalResult 终态订单收到通知：同结果视为重放，其余成功通知需要人工复核
func terminalResult(o *RechargeOrder, oc *outcome) applyResult {
	if oc.status != ChargeSucceeded {
		return applyResultReplayed
	}
	if o.Status != constants.OrderStatusSuccess {
		return applyResultLate
	}
	// 同一订单出现第二笔渠道交易，疑似重复支付
	if oc.transactionID != "" && o.ThirdPartyTransactionID != "" && oc.transactionID != o.ThirdPartyTransactionID {
		return applyResultLate
	}
	return applyResultReplayed
}

func (uc *RechargeOrderUseCase) afterSuccess(ctx context.Context, order *RechargeOrder, balance decimal.Decimal) {
	uc.wallet.RefreshBalanceCache(ctx, order.UserID, balance)
	uc.metrics.RechargeAmount.WithLabelValues(order.PaymentMethod).Add(order.Amount.InexactFloat64())

	paidAt := uc.now()
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}
	uc.notifier.RechargeSucceeded(ctx, &RechargeSucceededEvent{
		OrderID:       order.OrderID,
		UserID:        order.UserID,
		Coins:         order.Coins,
		Amount:        order.Amount,
		PaymentMethod: order.PaymentMethod,
		BalanceAfter:  balance,
		PaidAt:        paidAt,
	})
}
