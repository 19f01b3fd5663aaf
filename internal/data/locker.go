package data

import (
	"context"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// orderLocker 基于 redsync 的订单锁
type orderLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
	log    *log.Helper
}

// NewOrderLocker 创建订单锁（返回 biz.Locker 接口）
func NewOrderLocker(rs *redsync.Redsync, c *conf.Bootstrap, logger log.Logger) biz.Locker {
	expiry := 10 * time.Second
	if c.Recharge != nil {
		if d := c.Recharge.LockExpiry.AsDuration(); d > 0 {
			expiry = d
		}
	}
	return &orderLocker{
		rs:     rs,
		expiry: expiry,
		log:    log.NewHelper(logger),
	}
}

// Lock 获取锁，失败时按固定间隔重试，直到 ctx 结束或重试次数用完
func (l *orderLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(20),
		redsync.WithRetryDelay(100*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		if ok, err := mutex.UnlockContext(context.WithoutCancel(ctx)); !ok || err != nil {
			l.log.Warnf("Failed to unlock: key=%s, error=%v", key, err)
		}
	}, nil
}
