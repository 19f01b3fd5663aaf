package data

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// userClient user-service HTTP 客户端
type userClient struct {
	conn *http.Client
	log  *log.Helper
}

type getUserReply struct {
	UserID string `json:"user_id"`
}

// NewUserClient 创建 user-service 客户端
func NewUserClient(c *conf.Bootstrap, logger log.Logger) (biz.UserChecker, func(), error) {
	if c.UserService == nil || c.UserService.Endpoint == "" {
		return nil, nil, fmt.Errorf("user service config is nil")
	}
	timeout := c.UserService.Timeout.AsDuration()
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	conn, err := http.NewClient(
		context.Background(),
		http.WithEndpoint(c.UserService.Endpoint),
		http.WithTimeout(timeout),
		http.WithMiddleware(
			recovery.Recovery(),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	logHelper := log.NewHelper(logger)
	cleanup := func() {
		if err := conn.Close(); err != nil {
			logHelper.Warnf("close user service client: %v", err)
		}
	}
	return &userClient{conn: conn, log: logHelper}, cleanup, nil
}

// Exists 用户是否存在；user-service 返回 404 视为不存在
func (c *userClient) Exists(ctx context.Context, userID string) (bool, error) {
	var reply getUserReply
	err := c.conn.Invoke(ctx, "GET", "/v1/users/"+url.PathEscape(userID), nil, &reply)
	if err != nil {
		if kerrors.IsNotFound(err) {
			return false, nil
		}
		c.log.Errorf("GetUser failed: user_id=%s, error=%v", userID, err)
		return false, err
	}
	return true, nil
}
