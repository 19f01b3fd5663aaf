package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
)

type fakeSweeper struct {
	reconcileAt []time.Time
	expireAt    []time.Time
	deadline    bool
	err         error
}

func (f *fakeSweeper) Reconcile(ctx context.Context, now time.Time) (*biz.ReconcileStats, error) {
	_, f.deadline = ctx.Deadline()
	f.reconcileAt = append(f.reconcileAt, now)
	if f.err != nil {
		return nil, f.err
	}
	return &biz.ReconcileStats{Scanned: 3, Applied: 1, Skipped: 2}, nil
}

func (f *fakeSweeper) ExpireStalePending(ctx context.Context, now time.Time) (int, error) {
	_, f.deadline = ctx.Deadline()
	f.expireAt = append(f.expireAt, now)
	return 2, f.err
}

func TestSweepJobs(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeSweeper{}
	jobs := newSweepJobs(f, time.Minute, log.NewHelper(log.DefaultLogger))
	jobs.now = func() time.Time { return now }

	jobs.reconcile()
	jobs.expire()
	assert.Equal(t, []time.Time{now}, f.reconcileAt)
	assert.Equal(t, []time.Time{now}, f.expireAt)
	assert.True(t, f.deadline)

	f.err = errors.New("db down")
	assert.NotPanics(t, jobs.reconcile)
	assert.NotPanics(t, jobs.expire)
}

func TestNewSchedule(t *testing.T) {
	s := newSchedule(nil)
	assert.Equal(t, "*/30 * * * * *", s.reconcileSpec)
	assert.Equal(t, 5*time.Minute, s.runTimeout)

	s = newSchedule(&conf.Cron{ExpireSpec: "0 */5 * * * *", RunTimeout: conf.Duration{Duration: time.Minute}})
	assert.Equal(t, "0 */5 * * * *", s.expireSpec)
	assert.Equal(t, "*/30 * * * * *", s.reconcileSpec)
	assert.Equal(t, time.Minute, s.runTimeout)
}
