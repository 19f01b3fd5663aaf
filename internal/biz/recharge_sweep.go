package biz

import (
	"context"
	"time"

	"recharge-service/internal/constants"
	rechargeErrors "recharge-service/internal/errors"
)

// ReconcileStats 一轮对账的统计
type ReconcileStats struct {
	Scanned int
	Applied int
	Skipped int
	Failed  int
}

// Reconcile 主动查询处于宽限期之后、过期之前的 PENDING 订单
//
// 渠道调用在订单锁之外进行；单笔失败只记录，不影响同批其他订单。
func (uc *RechargeOrderUseCase) Reconcile(ctx context.Context, now time.Time) (*ReconcileStats, error) {
	stats := &ReconcileStats{}
	createdBefore := now.Add(-uc.conf.ReconcileGrace)

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		batch, err := uc.repo.FindPendingForReconcile(ctx, createdBefore, now, afterID, uc.conf.SweepBatch)
		if err != nil {
			return stats, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		for _, o := range batch {
			stats.Scanned++
			result, err := uc.reconcileOne(ctx, o)
			switch {
			case err != nil:
				stats.Failed++
				uc.metrics.ReconcileTotal.WithLabelValues(constants.ReconcileResultFailed).Inc()
				uc.log.Warnf("Reconcile order failed: order_id=%s, error=%v", o.OrderID, err)
			case result == applyResultApplied:
				stats.Applied++
				uc.metrics.ReconcileTotal.WithLabelValues(constants.ReconcileResultApply).Inc()
			default:
				stats.Skipped++
				uc.metrics.ReconcileTotal.WithLabelValues(constants.ReconcileResultSkip).Inc()
			}
		}
		if len(batch) < uc.conf.SweepBatch {
			break
		}
		afterID = batch[len(batch)-1].OrderID
	}

	if stats.Scanned > 0 {
		uc.log.Infof("Reconcile finished: scanned=%d, applied=%d, skipped=%d, failed=%d",
			stats.Scanned, stats.Applied, stats.Skipped, stats.Failed)
	}
	return stats, nil
}

// reconcileOne 查询单笔订单并按结果迁移状态；渠道无终态结果时不处理
func (uc *RechargeOrderUseCase) reconcileOne(ctx context.Context, o *RechargeOrder) (applyResult, error) {
	gw, ok := uc.gateways.Get(o.PaymentMethod)
	if !ok {
		return applyResultIgnored, rechargeErrors.New(rechargeErrors.ErrCodeUnsupportedPaymentMethod)
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.conf.GatewayTimeout)
	start := time.Now()
	res, err := gw.QueryStatus(callCtx, o.OrderID)
	cancel()
	uc.metrics.GatewayDuration.WithLabelValues(gw.Method(), "query").Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.GatewayErrors.WithLabelValues(gw.Method(), "query").Inc()
		return applyResultIgnored, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeGatewayUnavailable)
	}
	if res.Status != ChargeSucceeded && res.Status != ChargeFailed {
		return applyResultIgnored, nil
	}

	return uc.applyOutcome(ctx, o.OrderID, &outcome{
		status:        res.Status,
		transactionID: res.TransactionID,
		paidAmount:    res.PaidAmount,
		source:        "reconcile",
	})
}

// ExpireStalePending 关闭已过期的 PENDING 订单，返回关闭数量
//
// 不查询渠道；调度方应先跑一轮 Reconcile。之后到达的支付成功按终态后支付处理。
func (uc *RechargeOrderUseCase) ExpireStalePending(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		batch, err := uc.repo.FindExpiredPending(ctx, now, afterID, uc.conf.SweepBatch)
		if err != nil {
			return expired, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		for _, o := range batch {
			ok, err := uc.expireOne(ctx, o.OrderID, now)
			if err != nil {
				uc.log.Warnf("Expire order failed: order_id=%s, error=%v", o.OrderID, err)
				continue
			}
			if ok {
				expired++
			}
		}
		if len(batch) < uc.conf.SweepBatch {
			break
		}
		afterID = batch[len(batch)-1].OrderID
	}

	if expired > 0 {
		uc.metrics.ExpireTotal.Add(float64(expired))
		uc.metrics.RechargeOrderTotal.WithLabelValues(constants.OrderStatusCancelled).Add(float64(expired))
		uc.log.Infof("Expired %d stale pending recharge orders", expired)
	}
	return expired, nil
}

func (uc *RechargeOrderUseCase) expireOne(ctx context.Context, orderID string, now time.Time) (bool, error) {
	unlock, err := uc.lock(ctx, orderID)
	if err != nil {
		return false, err
	}
	defer unlock()

	var expired bool
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := uc.repo.GetOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		// 加锁期间可能已被回调或对账处理
		if o == nil || o.Status != constants.OrderStatusPending || !o.IsExpired(now) {
			return nil
		}
		if err := o.MarkCancelled(now); err != nil {
			return err
		}
		if err := uc.repo.SaveOrder(ctx, o); err != nil {
			return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		expired = true
		return nil
	})
	return expired, err
}
