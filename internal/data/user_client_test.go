package data

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"recharge-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBootstrap() *conf.Bootstrap {
	return &conf.Bootstrap{
		Data: &conf.Data{Rocketmq: &conf.Data_Rocketmq{Enabled: false}},
	}
}

func TestUserClient_Exists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/users/u1":
			_, _ = w.Write([]byte(`{"user_id":"u1"}`))
		case "/v1/users/ghost":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":404,"reason":"USER_NOT_FOUND","message":"user not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"code":500,"reason":"INTERNAL","message":"boom"}`))
		}
	}))
	defer srv.Close()

	c := testBootstrap()
	c.UserService = &conf.UserService{Endpoint: srv.URL}
	users, cleanup, err := NewUserClient(c, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()

	ok, err := users.Exists(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = users.Exists(context.Background(), "broken")
	assert.Error(t, err)
}

func TestNewUserClient_MissingConfig(t *testing.T) {
	_, _, err := NewUserClient(&conf.Bootstrap{}, log.DefaultLogger)
	assert.Error(t, err)
}
