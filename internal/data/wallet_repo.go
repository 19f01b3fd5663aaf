package data

import (
	"context"
	"errors"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/constants"
	"recharge-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const balanceCacheTTL = 5 * time.Minute

// walletRepo 钱包与流水数据访问
type walletRepo struct {
	data *Data
	log  *log.Helper
}

// NewWalletRepo 创建钱包 repo（返回 biz.WalletRepo 接口）
func NewWalletRepo(data *Data, logger log.Logger) biz.WalletRepo {
	return &walletRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetOrCreateForUpdate 不存在时插入零余额钱包，再加行锁读取
func (r *walletRepo) GetOrCreateForUpdate(ctx context.Context, userID, currency string) (*biz.Wallet, error) {
	db := r.data.DB(ctx)
	init := newWalletModel(userID, currency)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(init).Error; err != nil {
		return nil, err
	}

	var m model.Wallet
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&m).Error; err != nil {
		return nil, err
	}
	return toWalletBiz(&m), nil
}

// GetWallet 获取钱包，不存在返回 nil
func (r *walletRepo) GetWallet(ctx context.Context, userID string) (*biz.Wallet, error) {
	var m model.Wallet
	if err := r.data.DB(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetWallet failed: user_id=%s, error=%v", userID, err)
		return nil, err
	}
	return toWalletBiz(&m), nil
}

// CreateWallet 创建零余额钱包，并发创建时返回已存在的钱包
func (r *walletRepo) CreateWallet(ctx context.Context, userID, currency string) (*biz.Wallet, error) {
	db := r.data.DB(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(newWalletModel(userID, currency)).Error; err != nil {
		return nil, err
	}
	var m model.Wallet
	if err := db.Where("user_id = ?", userID).First(&m).Error; err != nil {
		return nil, err
	}
	return toWalletBiz(&m), nil
}

// UpdateBalance 以版本号为条件更新余额
func (r *walletRepo) UpdateBalance(ctx context.Context, w *biz.Wallet) error {
	res := r.data.DB(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND version = ?", w.UserID, w.Version).
		Updates(map[string]interface{}{
			"balance":    w.Balance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return biz.ErrWalletVersionConflict
	}
	w.Version++
	return nil
}

// FindTransaction 按 (type, related_id) 查询流水，不存在返回 nil
func (r *walletRepo) FindTransaction(ctx context.Context, txType, relatedID string) (*biz.WalletTransaction, error) {
	var m model.WalletTransaction
	if err := r.data.DB(ctx).Where("type = ? AND related_id = ?", txType, relatedID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toTransactionBiz(&m), nil
}

// CreateTransaction 追加流水
func (r *walletRepo) CreateTransaction(ctx context.Context, t *biz.WalletTransaction) error {
	m := &model.WalletTransaction{
		UserID:       t.UserID,
		Type:         t.Type,
		Amount:       t.Amount,
		BalanceAfter: t.BalanceAfter,
		Description:  t.Description,
		RelatedID:    t.RelatedID,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		return err
	}
	t.ID = m.ID
	t.CreatedAt = m.CreatedAt
	return nil
}

// ListTransactions 分页查询流水（新的在前）
func (r *walletRepo) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*biz.WalletTransaction, int64, error) {
	db := r.data.DB(ctx).Model(&model.WalletTransaction{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []*model.WalletTransaction
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return toTransactionBizList(list), total, nil
}

// ListAllTransactions 按写入顺序返回全部流水
func (r *walletRepo) ListAllTransactions(ctx context.Context, userID string) ([]*biz.WalletTransaction, error) {
	var list []*model.WalletTransaction
	if err := r.data.DB(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return toTransactionBizList(list), nil
}

// GetCachedBalance 读取余额缓存
func (r *walletRepo) GetCachedBalance(ctx context.Context, userID string) (decimal.Decimal, bool) {
	val, err := r.data.rdb.Get(ctx, constants.RedisKeyBalance+userID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warnf("get balance cache failed: user_id=%s, error=%v", userID, err)
		}
		return decimal.Zero, false
	}
	balance, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false
	}
	return balance, true
}

// SetCachedBalance 写余额缓存（设置超时避免阻塞）
func (r *walletRepo) SetCachedBalance(ctx context.Context, userID string, balance decimal.Decimal) {
	cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := r.data.rdb.Set(cacheCtx, constants.RedisKeyBalance+userID, balance.String(), balanceCacheTTL).Err(); err != nil {
		// 缓存更新失败不影响主流程，只记录日志
		r.log.Warnf("set balance cache failed: user_id=%s, error=%v", userID, err)
	}
}

func newWalletModel(userID, currency string) *model.Wallet {
	return &model.Wallet{
		UserID:       userID,
		Balance:      decimal.Zero,
		FrozenAmount: decimal.Zero,
		Currency:     currency,
	}
}

func toWalletBiz(m *model.Wallet) *biz.Wallet {
	return &biz.Wallet{
		UserID:       m.UserID,
		Balance:      m.Balance,
		FrozenAmount: m.FrozenAmount,
		Currency:     m.Currency,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toTransactionBiz(m *model.WalletTransaction) *biz.WalletTransaction {
	return &biz.WalletTransaction{
		ID:           m.ID,
		UserID:       m.UserID,
		Type:         m.Type,
		Amount:       m.Amount,
		BalanceAfter: m.BalanceAfter,
		Description:  m.Description,
		RelatedID:    m.RelatedID,
		CreatedAt:    m.CreatedAt,
	}
}

func toTransactionBizList(list []*model.WalletTransaction) []*biz.WalletTransaction {
	result := make([]*biz.WalletTransaction, 0, len(list))
	for _, m := range list {
		result = append(result, toTransactionBiz(m))
	}
	return result
}
