package data

import (
	"context"
	"testing"
	"time"

	"recharge-service/internal/biz"
	"recharge-service/internal/constants"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderColumns = []string{
	"order_id", "user_id", "package_id", "coins", "amount", "currency", "payment_method", "status",
	"third_party_transaction_id", "charge_id", "expired_at", "paid_at", "created_at", "updated_at",
}

func TestRechargeOrderRepo_GetOrderByID(t *testing.T) {
	d, mock, _ := newMockData(t)
	repo := NewRechargeOrderRepo(d, log.DefaultLogger)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT \\* FROM `recharge_order` WHERE order_id = \\?").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			"RC1", "u1", "pkg_60", 60, "6.00", "CNY", constants.PaymentMethodWechat, constants.OrderStatusPending,
			"", "", now.Add(24*time.Hour), nil, now, now,
		))

	o, err := repo.GetOrderByID(context.Background(), "RC1")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(60), o.Coins)
	assert.True(t, o.Amount.Equal(decimal.RequireFromString("6")))
	assert.Nil(t, o.PaidAt)

	mock.ExpectQuery("SELECT \\* FROM `recharge_order` WHERE order_id = \\?").
		WillReturnRows(sqlmock.NewRows(orderColumns))
	o, err = repo.GetOrderByID(context.Background(), "RC2")
	require.NoError(t, err)
	assert.Nil(t, o)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRechargeOrderRepo_ForUpdateInTx(t *testing.T) {
	d, mock, _ := newMockData(t)
	repo := NewRechargeOrderRepo(d, log.DefaultLogger)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `recharge_order` WHERE order_id = \\? .*FOR UPDATE").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			"RC1", "u1", "pkg_60", 60, "6.00", "CNY", constants.PaymentMethodWechat, constants.OrderStatusPending,
			"", "", now.Add(time.Hour), nil, now, now,
		))
	mock.ExpectExec("UPDATE `recharge_order` SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := d.InTx(context.Background(), func(ctx context.Context) error {
		o, err := repo.GetOrderByIDForUpdate(ctx, "RC1")
		if err != nil {
			return err
		}
		if err := o.MarkSuccess("wx_1", now); err != nil {
			return err
		}
		return repo.SaveOrder(ctx, o)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRechargeOrderRepo_SaveOrderMissing(t *testing.T) {
	d, mock, _ := newMockData(t)
	repo := NewRechargeOrderRepo(d, log.DefaultLogger)

	mock.ExpectExec("UPDATE `recharge_order` SET").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.SaveOrder(context.Background(), &biz.RechargeOrder{OrderID: "RC404", Status: constants.OrderStatusCancelled})
	assert.Error(t, err)
}

func TestRechargeOrderRepo_CreateAndList(t *testing.T) {
	d, mock, _ := newMockData(t)
	repo := NewRechargeOrderRepo(d, log.DefaultLogger)
	now := time.Now()

	mock.ExpectExec("INSERT INTO `recharge_order`").WillReturnResult(sqlmock.NewResult(0, 1))
	err := repo.CreateOrder(context.Background(), &biz.RechargeOrder{
		OrderID: "RC1", UserID: "u1", PackageID: "p", Coins: 10, Amount: decimal.NewFromInt(1),
		Currency: "CNY", PaymentMethod: constants.PaymentMethodWechat, Status: constants.OrderStatusPending,
		CreatedAt: now, ExpiredAt: now.Add(time.Hour), UpdatedAt: now,
	})
	require.NoError(t, err)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `recharge_order` WHERE user_id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT \\* FROM `recharge_order` WHERE user_id = \\? ORDER BY created_at DESC").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			"RC1", "u1", "p", 10, "1.00", "CNY", constants.PaymentMethodWechat, constants.OrderStatusPending,
			"", "", now.Add(time.Hour), nil, now, now,
		))
	list, total, err := repo.ListOrdersByUserID(context.Background(), "u1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "RC1", list[0].OrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRechargeOrderRepo_Sweeps(t *testing.T) {
	d, mock, _ := newMockData(t)
	repo := NewRechargeOrderRepo(d, log.DefaultLogger)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `recharge_order` WHERE status = \\? AND created_at < \\? AND expired_at > \\? AND order_id > \\? ORDER BY order_id ASC").
		WillReturnRows(sqlmock.NewRows(orderColumns))
	list, err := repo.FindPendingForReconcile(context.Background(), now.Add(-3*time.Minute), now, "", 100)
	require.NoError(t, err)
	assert.Empty(t, list)

	mock.ExpectQuery("SELECT \\* FROM `recharge_order` WHERE status = \\? AND expired_at <= \\? AND order_id > \\? ORDER BY order_id ASC").
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(
			"RC9", "u1", "p", 10, "1.00", "CNY", constants.PaymentMethodRazorpay, constants.OrderStatusPending,
			"", "order_x", now.Add(-time.Minute), nil, now.Add(-25*time.Hour), now,
		))
	list, err = repo.FindExpiredPending(context.Background(), now, "RC1", 100)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "order_x", list[0].ChargeID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
