package main

import (
	"context"
	"time"

	"recharge-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// CronApp Cron 应用结构
type CronApp struct {
	recharge *biz.RechargeOrderUseCase
}

// sweeper 定时任务用到的订单能力
type sweeper interface {
	Reconcile(ctx context.Context, now time.Time) (*biz.ReconcileStats, error)
	ExpireStalePending(ctx context.Context, now time.Time) (int, error)
}

type sweepJobs struct {
	uc      sweeper
	timeout time.Duration
	log     *log.Helper
	now     func() time.Time
}

func newSweepJobs(uc sweeper, timeout time.Duration, logHelper *log.Helper) *sweepJobs {
	return &sweepJobs{uc: uc, timeout: timeout, log: logHelper, now: time.Now}
}

func (j *sweepJobs) reconcile() {
	j.log.Info("[CRON] Starting recharge reconcile...")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	stats, err := j.uc.Reconcile(ctx, j.now())
	if err != nil {
		j.log.Errorf("[CRON] Error reconciling recharge orders: %v", err)
		return
	}
	j.log.Infof("[CRON] Reconcile completed: scanned=%d, applied=%d, skipped=%d, failed=%d",
		stats.Scanned, stats.Applied, stats.Skipped, stats.Failed)
}

// expire 过期后才到达的支付成功会进入人工复核
func (j *sweepJobs) expire() {
	j.log.Info("[CRON] Starting stale order expiry...")
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	count, err := j.uc.ExpireStalePending(ctx, j.now())
	if err != nil {
		j.log.Errorf("[CRON] Error expiring recharge orders: %v", err)
		return
	}
	j.log.Infof("[CRON] Expired %d stale recharge orders", count)
}
