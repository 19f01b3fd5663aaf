package server

import (
	"context"
	"io"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"
	"recharge-service/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 回调请求体上限，渠道通知都在几 KB 以内
const maxNotifyBodySize = 64 << 10

const (
	OperationCreateOrder      = "/recharge.v1.RechargeService/CreateOrder"
	OperationGetOrder         = "/recharge.v1.RechargeService/GetOrder"
	OperationListOrders       = "/recharge.v1.RechargeService/ListOrders"
	OperationCancelOrder      = "/recharge.v1.RechargeService/CancelOrder"
	OperationRetryCharge      = "/recharge.v1.RechargeService/RetryCharge"
	OperationHandleNotify     = "/recharge.v1.RechargeService/HandleNotify"
	OperationGetWallet        = "/recharge.v1.WalletService/GetWallet"
	OperationGetBalance       = "/recharge.v1.WalletService/GetBalance"
	OperationListTransactions = "/recharge.v1.WalletService/ListTransactions"
	OperationDebit            = "/recharge.v1.InternalService/Debit"
	OperationAudit            = "/recharge.v1.InternalService/Audit"
	OperationListReviews      = "/recharge.v1.InternalService/ListReviews"
)

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	c *conf.Bootstrap,
	recharge *service.RechargeService,
	wallet *service.WalletService,
	internal *service.InternalService,
	logger log.Logger,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			logging.Server(logger),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if d := c.Server.Http.Timeout.AsDuration(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)
	srv.Handle("/metrics", promhttp.Handler())
	RegisterRechargeHTTPServer(srv, recharge)
	RegisterWalletHTTPServer(srv, wallet)
	RegisterInternalHTTPServer(srv, internal)
	return srv
}

// RegisterRechargeHTTPServer 充值订单与渠道回调路由
func RegisterRechargeHTTPServer(s *http.Server, svc *service.RechargeService) {
	r := s.Route("/")
	r.POST("/v1/recharge/orders", handle(OperationCreateOrder, bindBody[service.CreateOrderRequest], svc.CreateOrder))
	r.GET("/v1/recharge/orders", handle(OperationListOrders, bindQuery[service.ListOrdersRequest], svc.ListOrders))
	r.GET("/v1/recharge/orders/{order_id}", handle(OperationGetOrder, bindQuery[service.OrderRequest], svc.GetOrder))
	r.POST("/v1/recharge/orders/{order_id}/cancel", handle(OperationCancelOrder, bindBody[service.OrderRequest], svc.CancelOrder))
	r.POST("/v1/recharge/orders/{order_id}/charge", handle(OperationRetryCharge, bindBody[service.OrderRequest], svc.RetryCharge))
	r.POST("/v1/recharge/notify/{provider}", notifyHandler(svc))
}

// RegisterWalletHTTPServer 钱包查询路由
func RegisterWalletHTTPServer(s *http.Server, svc *service.WalletService) {
	r := s.Route("/")
	r.GET("/v1/wallets/{user_id}", handle(OperationGetWallet, bindQuery[service.WalletRequest], svc.GetWallet))
	r.GET("/v1/wallets/{user_id}/balance", handle(OperationGetBalance, bindQuery[service.WalletRequest], svc.GetBalance))
	r.GET("/v1/wallets/{user_id}/transactions", handle(OperationListTransactions, bindQuery[service.ListTransactionsRequest], svc.ListTransactions))
}

// RegisterInternalHTTPServer 内部接口路由
func RegisterInternalHTTPServer(s *http.Server, svc *service.InternalService) {
	r := s.Route("/")
	r.POST("/internal/v1/wallets/{user_id}/debit", handle(OperationDebit, bindBody[service.DebitRequest], svc.Debit))
	r.GET("/internal/v1/wallets/{user_id}/audit", handle(OperationAudit, bindQuery[service.WalletRequest], svc.Audit))
	r.GET("/internal/v1/recharge/reviews", handle(OperationListReviews, bindQuery[service.ListReviewsRequest], svc.ListReviews))
}

// bindBody 读取 JSON 请求体，路径参数优先
func bindBody[T any](ctx http.Context, in *T) error {
	if err := ctx.Bind(in); err != nil {
		return err
	}
	return ctx.BindVars(in)
}

// bindQuery 读取查询参数，路径参数优先
func bindQuery[T any](ctx http.Context, in *T) error {
	if err := ctx.BindQuery(in); err != nil {
		return err
	}
	return ctx.BindVars(in)
}

func handle[Req, Reply any](
	operation string,
	bind func(http.Context, *Req) error,
	call func(context.Context, *Req) (*Reply, error),
) http.HandlerFunc {
	return func(ctx http.Context) error {
		var in Req
		if err := bind(ctx, &in); err != nil {
			return err
		}
		http.SetOperation(ctx, operation)
		h := ctx.Middleware(func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(ctx, req.(*Req))
		})
		out, err := h(ctx, &in)
		if err != nil {
			return err
		}
		return ctx.Result(200, out)
	}
}

// notifyHandler 渠道回调需要原始请求体验签，应答格式由渠道决定
func notifyHandler(svc *service.RechargeService) http.HandlerFunc {
	return func(ctx http.Context) error {
		req := ctx.Request()
		body, err := io.ReadAll(io.LimitReader(req.Body, maxNotifyBodySize))
		if err != nil {
			return err
		}
		provider := ctx.Vars().Get("provider")
		raw := &biz.RawNotification{Header: req.Header.Clone(), Body: body}

		http.SetOperation(ctx, OperationHandleNotify)
		h := ctx.Middleware(func(ctx context.Context, _ interface{}) (interface{}, error) {
			return svc.HandleNotify(ctx, provider, raw), nil
		})
		out, err := h(ctx, raw)
		if err != nil {
			return err
		}
		reply := out.(*biz.NotifyReply)

		w := ctx.Response()
		if reply.ContentType != "" {
			w.Header().Set("Content-Type", reply.ContentType)
		}
		w.WriteHeader(reply.StatusCode)
		if len(reply.Body) > 0 {
			_, err = w.Write(reply.Body)
		}
		return err
	}
}
