package service

import (
	"context"

	"recharge-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// RechargeService 面向客户端的充值订单服务，以及渠道回调入口
type RechargeService struct {
	uc  *biz.RechargeOrderUseCase
	log *log.Helper
}

// NewRechargeService 创建 RechargeService
func NewRechargeService(uc *biz.RechargeOrderUseCase, logger log.Logger) *RechargeService {
	return &RechargeService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// CreateOrder 创建充值订单并返回拉起支付的参数
func (s *RechargeService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderReply, error) {
	order, token, err := s.uc.CreateOrder(ctx, &biz.CreateOrderRequest{
		UserID:        req.UserID,
		PackageID:     req.PackageID,
		Coins:         req.Coins,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		ClientIP:      clientIP(ctx),
	})
	if err != nil {
		s.log.Errorf("CreateOrder failed: user_id=%s, error=%v", req.UserID, err)
		return nil, err
	}
	return &OrderReply{Order: toOrderInfo(order), Charge: toChargeInfo(token)}, nil
}

// GetOrder 查询订单
func (s *RechargeService) GetOrder(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	order, err := s.uc.GetOrder(ctx, req.OrderID, req.UserID)
	if err != nil {
		return nil, err
	}
	return &OrderReply{Order: toOrderInfo(order)}, nil
}

// ListOrders 分页查询订单
func (s *RechargeService) ListOrders(ctx context.Context, req *ListOrdersRequest) (*ListOrdersReply, error) {
	orders, total, err := s.uc.ListOrders(ctx, req.UserID, int(req.Page), int(req.PageSize))
	if err != nil {
		s.log.Errorf("ListOrders failed: %v", err)
		return nil, err
	}
	reply := &ListOrdersReply{
		Total:  total,
		Orders: make([]*OrderInfo, 0, len(orders)),
	}
	for _, o := range orders {
		reply.Orders = append(reply.Orders, toOrderInfo(o))
	}
	return reply, nil
}

// CancelOrder 取消订单
func (s *RechargeService) CancelOrder(ctx context.Context, req *OrderRequest) (*CancelOrderReply, error) {
	cancelled, err := s.uc.CancelOrder(ctx, req.OrderID, req.UserID)
	if err != nil {
		return nil, err
	}
	return &CancelOrderReply{Cancelled: cancelled}, nil
}

// RetryCharge 重新向渠道下单
func (s *RechargeService) RetryCharge(ctx context.Context, req *OrderRequest) (*OrderReply, error) {
	order, token, err := s.uc.RetryCharge(ctx, req.OrderID, req.UserID)
	if err != nil {
		s.log.Errorf("RetryCharge failed: order_id=%s, error=%v", req.OrderID, err)
		return nil, err
	}
	return &OrderReply{Order: toOrderInfo(order), Charge: toChargeInfo(token)}, nil
}

// HandleNotify 处理渠道回调，返回渠道要求的应答
func (s *RechargeService) HandleNotify(ctx context.Context, provider string, raw *biz.RawNotification) *biz.NotifyReply {
	accepted, err := s.uc.HandleNotification(ctx, provider, raw)
	if err != nil {
		s.log.Warnf("HandleNotify: provider=%s, accepted=%v, error=%v", provider, accepted, err)
	}
	return s.uc.NotifyReply(provider, accepted)
}

func toOrderInfo(o *biz.RechargeOrder) *OrderInfo {
	if o == nil {
		return nil
	}
	return &OrderInfo{
		OrderID:                 o.OrderID,
		UserID:                  o.UserID,
		PackageID:               o.PackageID,
		Coins:                   o.Coins,
		Amount:                  o.Amount.StringFixed(2),
		Currency:                o.Currency,
		PaymentMethod:           o.PaymentMethod,
		Status:                  o.Status,
		ThirdPartyTransactionID: o.ThirdPartyTransactionID,
		CreatedAt:               o.CreatedAt,
		ExpiredAt:               o.ExpiredAt,
		PaidAt:                  o.PaidAt,
	}
}

func toChargeInfo(t *biz.ChargeToken) *ChargeInfo {
	if t == nil {
		return nil
	}
	return &ChargeInfo{ChargeID: t.ChargeID, Params: t.Params}
}
