package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"recharge-service/internal/constants"
	rechargeErrors "recharge-service/internal/errors"
	"recharge-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RechargeOrder 充值订单领域对象
//
// 状态只会 PENDING -> SUCCESS / FAILED / CANCELLED，终态不可逆；
// PaidAt 当且仅当 SUCCESS 时有值。
type RechargeOrder struct {
	OrderID                 string
	UserID                  string
	PackageID               string
	Coins                   int64           // 入账金币数
	Amount                  decimal.Decimal // 实付金额
	Currency                string
	PaymentMethod           string
	Status                  string
	ThirdPartyTransactionID string // 渠道交易号，渠道确认后才有
	ChargeID                string // 渠道预支付单号
	ClientIP                string // 仅下单时使用，不落库
	CreatedAt               time.Time
	ExpiredAt               time.Time
	PaidAt                  *time.Time
	UpdatedAt               time.Time
}

// IsTerminal 是否终态
func (o *RechargeOrder) IsTerminal() bool {
	return o.Status == constants.OrderStatusSuccess ||
		o.Status == constants.OrderStatusFailed ||
		o.Status == constants.OrderStatusCancelled
}

// IsExpired 是否已过有效期
func (o *RechargeOrder) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiredAt)
}

func (o *RechargeOrder) transition(to string, now time.Time) error {
	if o.Status != constants.OrderStatusPending {
		return fmt.Errorf("illegal transition %s -> %s for order %s", o.Status, to, o.OrderID)
	}
	o.Status = to
	o.UpdatedAt = now
	return nil
}

// MarkSuccess PENDING -> SUCCESS
func (o *RechargeOrder) MarkSuccess(transactionID string, now time.Time) error {
	if err := o.transition(constants.OrderStatusSuccess, now); err != nil {
		return err
	}
	paidAt := now
	o.PaidAt = &paidAt
	o.ThirdPartyTransactionID = transactionID
	return nil
}

// MarkFailed PENDING -> FAILED
func (o *RechargeOrder) MarkFailed(transactionID string, now time.Time) error {
	if err := o.transition(constants.OrderStatusFailed, now); err != nil {
		return err
	}
	if transactionID != "" {
		o.ThirdPartyTransactionID = transactionID
	}
	return nil
}

// MarkCancelled PENDING -> CANCELLED
func (o *RechargeOrder) MarkCancelled(now time.Time) error {
	return o.transition(constants.OrderStatusCancelled, now)
}

// RechargeOrderRepo 订单数据层接口，只做持久化，状态迁移由 RechargeOrderUseCase 负责
type RechargeOrderRepo interface {
	CreateOrder(ctx context.Context, o *RechargeOrder) error
	// SaveOrder 写入状态、支付时间、渠道交易号
	SaveOrder(ctx context.Context, o *RechargeOrder) error
	// UpdateChargeID 只写渠道预支付单号，不触碰状态
	UpdateChargeID(ctx context.Context, orderID, chargeID string) error
	GetOrderByID(ctx context.Context, orderID string) (*RechargeOrder, error)
	// GetOrderByIDForUpdate 行锁读取，必须在事务内调用
	GetOrderByIDForUpdate(ctx context.Context, orderID string) (*RechargeOrder, error)
	ListOrdersByUserID(ctx context.Context, userID string, page, pageSize int) ([]*RechargeOrder, int64, error)
	// FindPendingForReconcile created_at < createdBefore 且 expired_at > expiredAfter，按 order_id 升序游标分页
	FindPendingForReconcile(ctx context.Context, createdBefore, expiredAfter time.Time, afterID string, limit int) ([]*RechargeOrder, error)
	// FindExpiredPending expired_at <= before，按 order_id 升序游标分页
	FindExpiredPending(ctx context.Context, before time.Time, afterID string, limit int) ([]*RechargeOrder, error)
}

// CreateOrderRequest 下单参数
type CreateOrderRequest struct {
	UserID        string
	PackageID     string
	Coins         int64
	Amount        decimal.Decimal
	PaymentMethod string
	ClientIP      string
}

// RechargeOrderUseCase 充值订单业务逻辑，唯一允许迁移订单状态、为订单入账的组件
type RechargeOrderUseCase struct {
	repo     RechargeOrderRepo
	tx       Transaction
	locker   Locker
	gateways Gateways
	users    UserChecker
	wallet   *WalletUseCase
	review   *ReviewUseCase
	notifier WealthNotifier
	conf     *RechargeConfig
	log      *log.Helper
	metrics  *metrics.RechargeMetrics
	now      func() time.Time
}

// NewRechargeOrderUseCase 创建充值订单 UseCase
func NewRechargeOrderUseCase(
	repo RechargeOrderRepo,
	tx Transaction,
	locker Locker,
	gateways Gateways,
	users UserChecker,
	wallet *WalletUseCase,
	review *ReviewUseCase,
	notifier WealthNotifier,
	conf *RechargeConfig,
	logger log.Logger,
) *RechargeOrderUseCase {
	return &RechargeOrderUseCase{
		repo:     repo,
		tx:       tx,
		locker:   locker,
		gateways: gateways,
		users:    users,
		wallet:   wallet,
		review:   review,
		notifier: notifier,
		conf:     conf,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
		now:      time.Now,
	}
}

// NewOrderID 生成充值订单号（32 位，满足微信 out_trade_no 与 Razorpay receipt 长度限制）
func NewOrderID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return constants.OrderIDPrefixRecharge + id[:32-len(constants.OrderIDPrefixRecharge)]
}

// CreateOrder 创建充值订单并向渠道下单
//
// 渠道下单失败时订单保持 PENDING，错误返回给调用方重试，过期后由扫描任务关闭。
func (uc *RechargeOrderUseCase) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*RechargeOrder, *ChargeToken, error) {
	startTime := time.Now()

	gw, err := uc.validateCreate(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	now := uc.now()
	order := &RechargeOrder{
		OrderID:       NewOrderID(),
		UserID:        req.UserID,
		PackageID:     req.PackageID,
		Coins:         req.Coins,
		Amount:        req.Amount,
		Currency:      uc.orderCurrency(gw),
		PaymentMethod: req.PaymentMethod,
		Status:        constants.OrderStatusPending,
		ClientIP:      req.ClientIP,
		CreatedAt:     now,
		ExpiredAt:     now.Add(uc.conf.ExpireAfter),
		UpdatedAt:     now,
	}
	if err := uc.repo.CreateOrder(ctx, order); err != nil {
		uc.log.Errorf("CreateOrder failed: user_id=%s, error=%v", req.UserID, err)
		return nil, nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeRechargeOrderCreateFailed)
	}
	uc.metrics.RechargeOrderCreateDuration.Observe(time.Since(startTime).Seconds())
	uc.metrics.RechargeOrderTotal.WithLabelValues(constants.OrderStatusPending).Inc()

	token, err := uc.createCharge(ctx, gw, order)
	if err != nil {
		return order, nil, err
	}

	uc.log.Infof("Recharge order created: order_id=%s, user_id=%s, coins=%d, amount=%s, method=%s",
		order.OrderID, order.UserID, order.Coins, order.Amount, order.PaymentMethod)
	return order, token, nil
}

// orderCurrency 订单币种跟随渠道，渠道未指定时使用默认币种
func (uc *RechargeOrderUseCase) orderCurrency(gw PaymentGateway) string {
	if c := gw.Currency(); c != "" {
		return c
	}
	return uc.conf.Currency
}

func (uc *RechargeOrderUseCase) validateCreate(ctx context.Context, req *CreateOrderRequest) (PaymentGateway, error) {
	if req == nil || req.UserID == "" || req.PackageID == "" {
		return nil, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "user_id and package_id are required")
	}
	if req.Coins <= 0 {
		return nil, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "coins must be positive")
	}
	if !req.Amount.IsPositive() {
		return nil, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "amount must be positive")
	}
	if !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "amount supports at most 2 decimal places")
	}
	gw, ok := uc.gateways.Get(req.PaymentMethod)
	if !ok {
		return nil, rechargeErrors.New(rechargeErrors.ErrCodeUnsupportedPaymentMethod)
	}

	exists, err := uc.users.Exists(ctx, req.UserID)
	if err != nil {
		uc.log.Errorf("check user failed: user_id=%s, error=%v", req.UserID, err)
		return nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeUserServiceUnavailable)
	}
	if !exists {
		return nil, rechargeErrors.New(rechargeErrors.ErrCodeUserNotFound)
	}
	return gw, nil
}

// createCharge 调用渠道下单（带超时），成功后记录渠道预支付单号
func (uc *RechargeOrderUseCase) createCharge(ctx context.Context, gw PaymentGateway, order *RechargeOrder) (*ChargeToken, error) {
	callCtx, cancel := context.WithTimeout(ctx, uc.conf.GatewayTimeout)
	defer cancel()

	start := time.Now()
	token, err := gw.CreateCharge(callCtx, order)
	uc.metrics.GatewayDuration.WithLabelValues(gw.Method(), "create").Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.GatewayErrors.WithLabelValues(gw.Method(), "create").Inc()
		uc.log.Errorf("CreateCharge failed: order_id=%s, method=%s, error=%v", order.OrderID, gw.Method(), err)
		e := rechargeErrors.Wrap(err, rechargeErrors.ErrCodeGatewayUnavailable)
		e.Metadata["order_id"] = order.OrderID
		return nil, e
	}

	if token.ChargeID != "" && token.ChargeID != order.ChargeID {
		if err := uc.repo.UpdateChargeID(ctx, order.OrderID, token.ChargeID); err != nil {
			// 渠道单号只用于排查，查询走商户订单号
			uc.log.Warnf("UpdateChargeID failed: order_id=%s, charge_id=%s, error=%v", order.OrderID, token.ChargeID, err)
		} else {
			order.ChargeID = token.ChargeID
		}
	}
	return token, nil
}

// RetryCharge 对仍在有效期内的 PENDING 订单重新向渠道下单
func (uc *RechargeOrderUseCase) RetryCharge(ctx context.Context, orderID, userID string) (*RechargeOrder, *ChargeToken, error) {
	order, err := uc.loadOwned(ctx, orderID, userID)
	if err != nil {
		return nil, nil, err
	}
	if order.Status != constants.OrderStatusPending {
		return order, nil, rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderNotPending)
	}
	if order.IsExpired(uc.now()) {
		return order, nil, rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderExpired)
	}
	gw, ok := uc.gateways.Get(order.PaymentMethod)
	if !ok {
		return order, nil, rechargeErrors.New(rechargeErrors.ErrCodeUnsupportedPaymentMethod)
	}
	token, err := uc.createCharge(ctx, gw, order)
	if err != nil {
		return order, nil, err
	}
	return order, token, nil
}

// GetOrder 查询订单；PENDING 且未过期时顺带向渠道主动查询一次
func (uc *RechargeOrderUseCase) GetOrder(ctx context.Context, orderID, userID string) (*RechargeOrder, error) {
	order, err := uc.loadOwned(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status != constants.OrderStatusPending || order.IsExpired(uc.now()) {
		return order, nil
	}

	result, err := uc.reconcileOne(ctx, order)
	if err != nil {
		uc.log.Warnf("opportunistic reconcile failed: order_id=%s, error=%v", orderID, err)
		return order, nil
	}
	if result == applyResultApplied {
		if fresh, err := uc.repo.GetOrderByID(ctx, orderID); err == nil && fresh != nil {
			return fresh, nil
		}
	}
	return order, nil
}

// ListOrders 分页查询用户订单
func (uc *RechargeOrderUseCase) ListOrders(ctx context.Context, userID string, page, pageSize int) ([]*RechargeOrder, int64, error) {
	if userID == "" {
		return nil, 0, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "user_id is required")
	}
	page, pageSize = normalizePage(page, pageSize)
	list, total, err := uc.repo.ListOrdersByUserID(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	return list, total, nil
}

// CancelOrder 用户取消订单，仅 PENDING 可取消；与回调处理共用订单锁
func (uc *RechargeOrderUseCase) CancelOrder(ctx context.Context, orderID, userID string) (bool, error) {
	if orderID == "" || userID == "" {
		return false, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "order_id and user_id are required")
	}
	unlock, err := uc.lock(ctx, orderID)
	if err != nil {
		return false, err
	}
	defer unlock()

	var cancelled bool
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		order, err := uc.repo.GetOrderByIDForUpdate(ctx, orderID)
		if err != nil {
			return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		if order == nil {
			return rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderNotFound)
		}
		if order.UserID != userID {
			return rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderForbidden)
		}
		switch order.Status {
		case constants.OrderStatusCancelled:
			cancelled = true
			return nil
		case constants.OrderStatusPending:
		default:
			return nil
		}
		if err := order.MarkCancelled(uc.now()); err != nil {
			return err
		}
		if err := uc.repo.SaveOrder(ctx, order); err != nil {
			return rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
		}
		cancelled = true
		uc.metrics.RechargeOrderTotal.WithLabelValues(constants.OrderStatusCancelled).Inc()
		return nil
	})
	if err != nil {
		return false, err
	}
	if cancelled {
		uc.log.Infof("Recharge order cancelled by user: order_id=%s, user_id=%s", orderID, userID)
	}
	return cancelled, nil
}

// loadOwned 读取订单并校验归属；userID 为空时不校验（内部调用）
func (uc *RechargeOrderUseCase) loadOwned(ctx context.Context, orderID, userID string) (*RechargeOrder, error) {
	if orderID == "" {
		return nil, rechargeErrors.Newf(rechargeErrors.ErrCodeInvalidArgument, "order_id is required")
	}
	order, err := uc.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeStorageFailed)
	}
	if order == nil {
		return nil, rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderNotFound)
	}
	if userID != "" && order.UserID != userID {
		return nil, rechargeErrors.New(rechargeErrors.ErrCodeRechargeOrderForbidden)
	}
	return order, nil
}

// lock 获取订单锁
func (uc *RechargeOrderUseCase) lock(ctx context.Context, orderID string) (func(), error) {
	start := time.Now()
	unlock, err := uc.locker.Lock(ctx, constants.RedisKeyOrderLock+orderID)
	uc.metrics.LockAcquireDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		uc.metrics.LockAcquireTotal.WithLabelValues("failed").Inc()
		uc.log.Errorf("Failed to acquire order lock: order_id=%s, error=%v", orderID, err)
		return nil, rechargeErrors.Wrap(err, rechargeErrors.ErrCodeLockFailed)
	}
	uc.metrics.LockAcquireTotal.WithLabelValues("success").Inc()
	return unlock, nil
}
