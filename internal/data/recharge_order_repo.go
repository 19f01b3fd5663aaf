package data

import (
	"context"
	"errors"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/constants"
	"recharge-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// rechargeOrderRepo 充值订单相关数据访问
type rechargeOrderRepo struct {
	data *Data
	log  *log.Helper
}

// NewRechargeOrderRepo 创建充值订单 repo（返回 biz.RechargeOrderRepo 接口）
func NewRechargeOrderRepo(data *Data, logger log.Logger) biz.RechargeOrderRepo {
	return &rechargeOrderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateOrder 创建充值订单记录
func (r *rechargeOrderRepo) CreateOrder(ctx context.Context, o *biz.RechargeOrder) error {
	m := toOrderModel(o)
	return r.data.DB(ctx).Create(m).Error
}

// SaveOrder 更新订单状态
func (r *rechargeOrderRepo) SaveOrder(ctx context.Context, o *biz.RechargeOrder) error {
	updates := map[string]interface{}{
		"status":                     o.Status,
		"third_party_transaction_id": o.ThirdPartyTransactionID,
		"paid_at":                    o.PaidAt,
		"updated_at":                 o.UpdatedAt,
	}
	res := r.data.DB(ctx).Model(&model.RechargeOrder{}).
		Where("order_id = ?", o.OrderID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateChargeID 记录渠道预支付单号
func (r *rechargeOrderRepo) UpdateChargeID(ctx context.Context, orderID, chargeID string) error {
	return r.data.DB(ctx).Model(&model.RechargeOrder{}).
		Where("order_id = ?", orderID).
		Update("charge_id", chargeID).Error
}

// GetOrderByID 通过订单ID查询充值订单，不存在返回 nil
func (r *rechargeOrderRepo) GetOrderByID(ctx context.Context, orderID string) (*biz.RechargeOrder, error) {
	return r.first(r.data.DB(ctx), orderID)
}

// GetOrderByIDForUpdate 行锁读取
func (r *rechargeOrderRepo) GetOrderByIDForUpdate(ctx context.Context, orderID string) (*biz.RechargeOrder, error) {
	return r.first(r.data.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), orderID)
}

func (r *rechargeOrderRepo) first(db *gorm.DB, orderID string) (*biz.RechargeOrder, error) {
	var m model.RechargeOrder
	if err := db.Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toOrderBiz(&m), nil
}

// ListOrdersByUserID 分页查询用户订单（按创建时间倒序）
func (r *rechargeOrderRepo) ListOrdersByUserID(ctx context.Context, userID string, page, pageSize int) ([]*biz.RechargeOrder, int64, error) {
	db := r.data.DB(ctx).Model(&model.RechargeOrder{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []*model.RechargeOrder
	if err := db.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return toOrderBizList(list), total, nil
}

// FindPendingForReconcile 待对账订单
func (r *rechargeOrderRepo) FindPendingForReconcile(ctx context.Context, createdBefore, expiredAfter time.Time, afterID string, limit int) ([]*biz.RechargeOrder, error) {
	var list []*model.RechargeOrder
	err := r.data.DB(ctx).
		Where("status = ? AND created_at < ? AND expired_at > ? AND order_id > ?",
			constants.OrderStatusPending, createdBefore, expiredAfter, afterID).
		Order("order_id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return toOrderBizList(list), nil
}

// FindExpiredPending 已过期仍未支付的订单
func (r *rechargeOrderRepo) FindExpiredPending(ctx context.Context, before time.Time, afterID string, limit int) ([]*biz.RechargeOrder, error) {
	var list []*model.RechargeOrder
	err := r.data.DB(ctx).
		Where("status = ? AND expired_at <= ? AND order_id > ?", constants.OrderStatusPending, before, afterID).
		Order("order_id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return toOrderBizList(list), nil
}

func toOrderModel(o *biz.RechargeOrder) *model.RechargeOrder {
	return &model.RechargeOrder{
		OrderID:                 o.OrderID,
		UserID:                  o.UserID,
		PackageID:               o.PackageID,
		Coins:                   o.Coins,
		Amount:                  o.Amount,
		Currency:                o.Currency,
		PaymentMethod:           o.PaymentMethod,
		Status:                  o.Status,
		ThirdPartyTransactionID: o.ThirdPartyTransactionID,
		ChargeID:                o.ChargeID,
		ExpiredAt:               o.ExpiredAt,
		PaidAt:                  o.PaidAt,
		CreatedAt:               o.CreatedAt,
		UpdatedAt:               o.UpdatedAt,
	}
}

func toOrderBiz(m *model.RechargeOrder) *biz.RechargeOrder {
	return &biz.RechargeOrder{
		OrderID:                 m.OrderID,
		UserID:                  m.UserID,
		PackageID:               m.PackageID,
		Coins:                   m.Coins,
		Amount:                  m.Amount,
		Currency:                m.Currency,
		PaymentMethod:           m.PaymentMethod,
		Status:                  m.Status,
		ThirdPartyTransactionID: m.ThirdPartyTransactionID,
		ChargeID:                m.ChargeID,
		ExpiredAt:               m.ExpiredAt,
		PaidAt:                  m.PaidAt,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func toOrderBizList(list []*model.RechargeOrder) []*biz.RechargeOrder {
	result := make([]*biz.RechargeOrder, 0, len(list))
	for _, m := range list {
		result = append(result, toOrderBiz(m))
	}
	return result
}
