package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recharge-service/internal/constants"
	rechargeErrors "recharge-service/internal/errors"
	"recharge-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
)

// ErrWalletVersionConflict 钱包行在锁外被并发修改
var ErrWalletVersionConflict = errors.New("wallet version conflict")

// Wallet 钱包领域对象
type Wallet struct {
	UserID       string
	Balance      decimal.Decimal
	FrozenAmount decimal.Decimal
	Currency     string
	Version      int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WalletTransaction 钱包流水（只追加）
type WalletTransaction struct {
	ID           int64 // 自增，决定重放顺序
	UserID       string
	Type         string          // RECHARGE / CONSUME / EARN
	Amount       decimal.Decimal // 入账为正，扣减为负
	BalanceAfter decimal.Decimal
	Description  string
	RelatedID    string // 与 Type 组合唯一
	CreatedAt    time.Time
}

// LedgerAudit 流水重放结果
type LedgerAudit struct {
	UserID      string
	Balance     decimal.Decimal
	Replayed    decimal.Decimal
	Entries     int
	Consistent  bool
	FirstBadRow int64 // 第一条 balance_after 对不上的流水ID，0 表示没有
}

// WalletRepo 钱包数据层接口
type WalletRepo interface {
	// GetOrCreateForUpdate 锁定钱包行，不存在时先创建零余额钱包；必须在事务内调用
	GetOrCreateForUpdate(ctx context.Context, userID, currency string) (*Wallet, error)
	GetWallet(ctx context.Context, userID string) (*Wallet, error)
	CreateWallet(ctx context.Context, userID, currency string) (*Wallet, error)
	// UpdateBalance 以 Version 为条件写入余额并递增版本
	UpdateBalance(ctx context.Context, w *Wallet) error
	FindTransaction(ctx context.Context, txType, relatedID string) (*WalletTransaction, error)
	CreateTransaction(ctx context.Context, t *WalletTransaction) error
	ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*WalletTransaction, int64, error)
	ListAllTransactions(ctx context.Context, userID string) ([]*WalletTransaction, error)

	GetCachedBalance(ctx context.Context, userID string) (decimal.Decimal, bool)
	SetCachedBalance(ctx context.Context, userID string, balance decimal.Decimal)
}

// WalletUseCase 钱包账本业务逻辑
type WalletUseCase struct {
	repo    WalletRepo
	tx      Transaction
	conf    *RechargeConfig
	log     *log.Helper
	metrics *metrics.RechargeMetrics
}

// NewWalletUseCase 创建钱包 UseCase
func NewWalletUseCase(repo WalletRepo, tx Transaction, conf *RechargeConfig, logger log.Logger) *WalletUseCase {
	return &WalletUseCase{
		repo:    repo,
		tx:      tx,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// GetOrCreate 获取钱包，不存在时创建零余额钱包
func (uc *WalletUseCase) GetOrCreate(ctx context.Context, userID string) (*Wallet, error) {
	if userID == "" {
		return nil, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "user_id is required")
	}
	w, err := uc.repo.GetWallet(ctx, userID)
	if err != nil {
		return nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	if w != nil {
		return w, nil
	}
	w, err = uc.repo.CreateWallet(ctx, userID, uc.conf.WalletCurrency)
	if err != nil {
		return nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	return w, nil
}

// GetBalance 读取余额（优先缓存）
func (uc *WalletUseCase) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	if balance, ok := uc.repo.GetCachedBalance(ctx, userID); ok {
		return balance, nil
	}
	w, err := uc.GetOrCreate(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	uc.repo.SetCachedBalance(ctx, userID, w.Balance)
	return w.Balance, nil
}

// Credit 入账（RECHARGE / EARN），独立事务
func (uc *WalletUseCase) Credit(ctx context.Context, userID string, amount decimal.Decimal, txType, description, relatedID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		balance, err = uc.CreditTx(ctx, userID, amount, txType, description, relatedID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	uc.repo.SetCachedBalance(ctx, userID, balance)
	return balance, nil
}

// CreditTx 入账，必须在 Transaction.InTx 内调用，由调用方在提交后刷新缓存
func (uc *WalletUseCase) CreditTx(ctx context.Context, userID string, amount decimal.Decimal, txType, description, relatedID string) (decimal.Decimal, error) {
	if txType != constants.TransactionTypeRecharge && txType != constants.TransactionTypeEarn {
		return decimal.Zero, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "transaction type %s is not a credit", txType)
	}
	if !amount.IsPositive() {
		return decimal.Zero, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "credit amount must be positive")
	}
	return uc.mutate(ctx, userID, amount, txType, description, relatedID)
}

// Debit 扣减（CONSUME），余额不足时拒绝，不做截断
func (uc *WalletUseCase) Debit(ctx context.Context, userID string, amount decimal.Decimal, description, relatedID string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "debit amount must be positive")
	}
	var balance decimal.Decimal
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		balance, err = uc.mutate(ctx, userID, amount.Neg(), constants.TransactionTypeConsume, description, relatedID)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	uc.repo.SetCachedBalance(ctx, userID, balance)
	return balance, nil
}

// mutate 锁钱包行 -> 幂等检查 -> 校验非负 -> 写余额 -> 追加流水
func (uc *WalletUseCase) mutate(ctx context.Context, userID string, amount decimal.Decimal, txType, description, relatedID string) (decimal.Decimal, error) {
	if userID == "" || relatedID == "" {
		return decimal.Zero, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "user_id and related_id are required")
	}

	w, err := uc.repo.GetOrCreateForUpdate(ctx, userID, uc.conf.WalletCurrency)
	if err != nil {
		return decimal.Zero, uc.storageError(err, amount, txType)
	}

	existing, err := uc.repo.FindTransaction(ctx, txType, relatedID)
	if err != nil {
		return decimal.Zero, uc.storageError(err, amount, txType)
	}
	if existing != nil {
		uc.log.Infof("Wallet mutation already applied: user_id=%s, type=%s, related_id=%s", userID, txType, relatedID)
		uc.metrics.WalletMutationTotal.WithLabelValues(txType, "replayed").Inc()
		return w.Balance, nil
	}

	newBalance := w.Balance.Add(amount)
	if newBalance.IsNegative() {
		uc.metrics.WalletMutationTotal.WithLabelValues(txType, "insufficient").Inc()
		return decimal.Zero, rechargeErrors.New(rechargeErrors.ErrCodeInsufficientBalance)
	}

	w.Balance = newBalance
	if err := uc.repo.UpdateBalance(ctx, w); err != nil {
		return decimal.Zero, uc.storageError(err, amount, txType)
	}
	if err := uc.repo.CreateTransaction(ctx, &WalletTransaction{
		UserID:       userID,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: newBalance,
		Description:  description,
		RelatedID:    relatedID,
	}); err != nil {
		return decimal.Zero, uc.storageError(err, amount, txType)
	}

	uc.metrics.WalletMutationTotal.WithLabelValues(txType, "success").Inc()
	uc.metrics.WalletMutationAmount.WithLabelValues(txType).Add(amount.Abs().InexactFloat64())
	return newBalance, nil
}

func (uc *WalletUseCase) storageError(err error, amount decimal.Decimal, txType string) error {
	uc.metrics.WalletMutationTotal.WithLabelValues(txType, "error").Inc()
	if amount.IsNegative() {
		return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeWalletDebitFailed)
	}
	return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeWalletCreditFailed)
}

// RefreshBalanceCache 事务提交后刷新余额缓存
func (uc *WalletUseCase) RefreshBalanceCache(ctx context.Context, userID string, balance decimal.Decimal) {
	uc.repo.SetCachedBalance(ctx, userID, balance)
}

// ListTransactions 分页查询流水
func (uc *WalletUseCase) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*WalletTransaction, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := uc.repo.ListTransactions(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	return list, total, nil
}

// Audit 从零按创建顺序重放流水，核对每条 balance_after 与当前余额
//
// 不一致时同时返回核对结果和 LEDGER_MISMATCH 错误。
func (uc *WalletUseCase) Audit(ctx context.Context, userID string) (*LedgerAudit, error) {
	w, err := uc.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := uc.repo.ListAllTransactions(ctx, userID)
	if err != nil {
		return nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}

	result := &LedgerAudit{UserID: userID, Balance: w.Balance, Replayed: decimal.Zero, Entries: len(entries)}
	for _, e := range entries {
		result.Replayed = result.Replayed.Add(e.Amount)
		if result.FirstBadRow == 0 && !result.Replayed.Equal(e.BalanceAfter) {
			result.FirstBadRow = e.ID
		}
	}
	result.Consistent = result.FirstBadRow == 0 && result.Replayed.Equal(w.Balance)
	if !result.Consistent {
		uc.log.Errorf("[LEDGER] mismatch: user_id=%s, balance=%s, replayed=%s, first_bad_row=%d",
			userID, w.Balance, result.Replayed, result.FirstBadRow)
		e := rechargeErrors.Newf(rechargeErrors.ErrCodeLedgerMismatch,
			"balance %s, replayed %s", w.Balance.StringFixed(2), result.Replayed.StringFixed(2))
		e.Metadata["user_id"] = userID
		e.Metadata["first_bad_row"] = fmt.Sprintf("%d", result.FirstBadRow)
		return result, e
	}
	return result, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = constants.DefaultPageSize
	}
	if pageSize > constants.MaxPageSize {
		pageSize = constants.MaxPageSize
	}
	return page, pageSize
}
