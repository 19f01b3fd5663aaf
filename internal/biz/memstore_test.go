package biz

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var errInjected = errors.New("injected storage failure")

type memTxKey struct{}

// memStore 内存版订单/钱包/复核存储，事务失败时整体回滚
type memStore struct {
	txMu sync.Mutex // 串行化事务，模拟行锁

	mu        sync.Mutex
	orders    map[string]*RechargeOrder
	wallets   map[string]*Wallet
	txns      []*WalletTransaction
	reviews   []*ReviewRecord
	cache     map[string]decimal.Decimal
	nextTxnID int64

	failCreateTransaction bool
	failSaveOrder         bool
}

func newMemStore() *memStore {
	return &memStore{
		orders:  make(map[string]*RechargeOrder),
		wallets: make(map[string]*Wallet),
		cache:   make(map[string]decimal.Decimal),
	}
}

type memSnapshot struct {
	orders  map[string]*RechargeOrder
	wallets map[string]*Wallet
	txns    []*WalletTransaction
	nextID  int64
}

func (s *memStore) snapshot() *memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &memSnapshot{
		orders:  make(map[string]*RechargeOrder, len(s.orders)),
		wallets: make(map[string]*Wallet, len(s.wallets)),
		txns:    append([]*WalletTransaction(nil), s.txns...),
		nextID:  s.nextTxnID,
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.wallets {
		w := *v
		snap.wallets[k] = &w
	}
	return snap
}

func (s *memStore) restore(snap *memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.wallets = snap.wallets
	s.txns = snap.txns
	s.nextTxnID = snap.nextID
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()
	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func cloneOrder(o *RechargeOrder) *RechargeOrder {
	c := *o
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	return &c
}

// --- RechargeOrderRepo ---

func (s *memStore) CreateOrder(_ context.Context, o *RechargeOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.OrderID]; ok {
		return errors.New("duplicate order id")
	}
	s.orders[o.OrderID] = cloneOrder(o)
	return nil
}

func (s *memStore) SaveOrder(_ context.Context, o *RechargeOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveOrder {
		return errInjected
	}
	stored, ok := s.orders[o.OrderID]
	if !ok {
		return errors.New("order not found")
	}
	stored.Status = o.Status
	stored.ThirdPartyTransactionID = o.ThirdPartyTransactionID
	stored.PaidAt = o.PaidAt
	stored.UpdatedAt = o.UpdatedAt
	return nil
}

func (s *memStore) UpdateChargeID(_ context.Context, orderID, chargeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		o.ChargeID = chargeID
	}
	return nil
}

func (s *memStore) GetOrderByID(_ context.Context, orderID string) (*RechargeOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok {
		return cloneOrder(o), nil
	}
	return nil, nil
}

func (s *memStore) GetOrderByIDForUpdate(ctx context.Context, orderID string) (*RechargeOrder, error) {
	if ctx.Value(memTxKey{}) == nil {
		return nil, errors.New("for update outside transaction")
	}
	return s.GetOrderByID(ctx, orderID)
}

func (s *memStore) ListOrdersByUserID(_ context.Context, userID string, page, pageSize int) ([]*RechargeOrder, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*RechargeOrder
	for _, o := range s.orders {
		if o.UserID == userID {
			list = append(list, cloneOrder(o))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	total := int64(len(list))
	start := (page - 1) * pageSize
	if start >= len(list) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end], total, nil
}

func (s *memStore) pendingSorted(match func(o *RechargeOrder) bool, afterID string, limit int) []*RechargeOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*RechargeOrder
	for _, o := range s.orders {
		if o.Status == "PENDING" && o.OrderID > afterID && match(o) {
			list = append(list, cloneOrder(o))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].OrderID < list[j].OrderID })
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func (s *memStore) FindPendingForReconcile(_ context.Context, createdBefore, expiredAfter time.Time, afterID string, limit int) ([]*RechargeOrder, error) {
	return s.pendingSorted(func(o *RechargeOrder) bool {
		return o.CreatedAt.Before(createdBefore) && o.ExpiredAt.After(expiredAfter)
	}, afterID, limit), nil
}

func (s *memStore) FindExpiredPending(_ context.Context, before time.Time, afterID string, limit int) ([]*RechargeOrder, error) {
	return s.pendingSorted(func(o *RechargeOrder) bool {
		return !o.ExpiredAt.After(before)
	}, afterID, limit), nil
}

// --- WalletRepo ---

func (s *memStore) GetOrCreateForUpdate(ctx context.Context, userID, currency string) (*Wallet, error) {
	if ctx.Value(memTxKey{}) == nil {
		return nil, errors.New("for update outside transaction")
	}
	if _, err := s.CreateWallet(ctx, userID, currency); err != nil {
		return nil, err
	}
	return s.GetWallet(ctx, userID)
}

func (s *memStore) GetWallet(_ context.Context, userID string) (*Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[userID]; ok {
		c := *w
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) CreateWallet(_ context.Context, userID, currency string) (*Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	if !ok {
		w = &Wallet{UserID: userID, Balance: decimal.Zero, FrozenAmount: decimal.Zero, Currency: currency, CreatedAt: time.Now()}
		s.wallets[userID] = w
	}
	c := *w
	return &c, nil
}

func (s *memStore) UpdateBalance(_ context.Context, w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.wallets[w.UserID]
	if !ok || stored.Version != w.Version {
		return ErrWalletVersionConflict
	}
	stored.Balance = w.Balance
	stored.Version++
	w.Version = stored.Version
	return nil
}

func (s *memStore) FindTransaction(_ context.Context, txType, relatedID string) (*WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.txns {
		if t.Type == txType && t.RelatedID == relatedID {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (s *memStore) CreateTransaction(_ context.Context, t *WalletTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreateTransaction {
		return errInjected
	}
	for _, existing := range s.txns {
		if existing.Type == t.Type && existing.RelatedID == t.RelatedID {
			return errors.New("duplicate transaction")
		}
	}
	s.nextTxnID++
	c := *t
	c.ID = s.nextTxnID
	c.CreatedAt = time.Now()
	s.txns = append(s.txns, &c)
	t.ID = c.ID
	return nil
}

func (s *memStore) ListTransactions(_ context.Context, userID string, page, pageSize int) ([]*WalletTransaction, int64, error) {
	all, _ := s.ListAllTransactions(context.Background(), userID)
	// 倒序
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *memStore) ListAllTransactions(_ context.Context, userID string) ([]*WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*WalletTransaction
	for _, t := range s.txns {
		if t.UserID == userID {
			c := *t
			list = append(list, &c)
		}
	}
	return list, nil
}

func (s *memStore) GetCachedBalance(_ context.Context, userID string) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.cache[userID]
	return b, ok
}

func (s *memStore) SetCachedBalance(_ context.Context, userID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[userID] = balance
}

// --- ReviewRepo ---

func (s *memStore) CreateReview(_ context.Context, r *ReviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.OrderID == r.OrderID && existing.Reason == r.Reason && existing.TransactionID == r.TransactionID {
			return nil
		}
	}
	c := *r
	c.ID = int64(len(s.reviews) + 1)
	s.reviews = append(s.reviews, &c)
	return nil
}

func (s *memStore) ListReviews(_ context.Context, page, pageSize int) ([]*ReviewRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := int64(len(s.reviews))
	start := (page - 1) * pageSize
	if start >= len(s.reviews) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(s.reviews) {
		end = len(s.reviews)
	}
	return append([]*ReviewRecord(nil), s.reviews[start:end]...), total, nil
}

// --- helpers ---

func (s *memStore) order(orderID string) *RechargeOrder {
	o, _ := s.GetOrderByID(context.Background(), orderID)
	return o
}

func (s *memStore) balance(userID string) decimal.Decimal {
	w, _ := s.GetWallet(context.Background(), userID)
	if w == nil {
		return decimal.Zero
	}
	return w.Balance
}

func (s *memStore) transactionsOf(userID string) []*WalletTransaction {
	list, _ := s.ListAllTransactions(context.Background(), userID)
	return list
}

func (s *memStore) reviewsOf(orderID string) []*ReviewRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var list []*ReviewRecord
	for _, r := range s.reviews {
		if r.OrderID == orderID {
			list = append(list, r)
		}
	}
	return list
}

// memLocker 按 key 互斥
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
	fail  bool
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) Lock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.fail {
		l.mu.Unlock()
		return nil, errors.New("lock busy")
	}
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock, nil
}
