package biz

import (
	"context"
	"time"

	"recharge-service/internal/constants"
	rechargeErrors "recharge-service/internal/errors"

	"github.com/shopspring/decimal"
)

// WalletEvent 其他服务投递的钱包变动消息（送礼扣币、收礼入账）
type WalletEvent struct {
	EventID     string          `json:"event_id"` // 作为流水 related_id，重复投递只入账一次
	UserID      string          `json:"user_id"`
	Type        string          `json:"type"` // CONSUME / EARN
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// ApplyEvent 应用钱包变动消息
//
// 参数错误、余额不足属于不可重试错误，记录后丢弃返回 nil；其余错误返回给消费者稍后重试。
func (uc *WalletUseCase) ApplyEvent(ctx context.Context, e *WalletEvent) error {
	if e == nil || e.EventID == "" || e.UserID == "" {
		uc.log.Errorf("Drop invalid wallet event: %+v", e)
		return nil
	}

	var err error
	switch e.Type {
	case constants.TransactionTypeConsume:
		_, err = uc.Debit(ctx, e.UserID, e.Amount, e.Description, e.EventID)
	case constants.TransactionTypeEarn:
		_, err = uc.Credit(ctx, e.UserID, e.Amount, constants.TransactionTypeEarn, e.Description, e.EventID)
	default:
		uc.log.Errorf("Drop wallet event with unknown type: event_id=%s, type=%s", e.EventID, e.Type)
		return nil
	}
	if err == nil {
		return nil
	}

	if rechargeErrors.Is(err, rechargeErrors.ErrCodeInsufficientBalance) ||
		rechargeErrors.Is(err, rechargeErrors.ErrCodeInvalidArgument) {
		uc.log.Warnf("Drop wallet event: event_id=%s, user_id=%s, type=%s, amount=%s, error=%v",
			e.EventID, e.UserID, e.Type, e.Amount, err)
		return nil
	}
	return err
}
