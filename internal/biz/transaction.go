package biz

import "context"

// Transaction 数据层事务抽象（事务通过 context 传递，嵌套调用复用外层事务）
type Transaction interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker 按 key 加互斥锁，返回的 unlock 必须调用
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
