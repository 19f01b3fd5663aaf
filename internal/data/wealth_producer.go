package data

import (
	"context"
	"encoding/json"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
)

// asyncSender rocketmq.Producer 中用到的部分
type asyncSender interface {
	SendAsync(ctx context.Context, callback func(ctx context.Context, result *primitive.SendResult, err error), msgs ...*primitive.Message) error
}

// wealthProducer 充值成功事件投递到财富等级服务
type wealthProducer struct {
	sender asyncSender
	topic  string
	log    *log.Helper
}

// NewWealthProducer 创建充值成功事件生产者；RocketMQ 未启用时只记日志
func NewWealthProducer(c *conf.Bootstrap, logger log.Logger) (biz.WealthNotifier, func(), error) {
	logHelper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &wealthProducer{log: logHelper}, func() {}, nil
	}
	mq := c.Data.Rocketmq

	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
		producer.WithGroupName(mq.GroupName),
		producer.WithRetry(int(mq.RetryTimes)),
	)
	if err != nil {
		return nil, nil, err
	}
	if err := p.Start(); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := p.Shutdown(); err != nil {
			logHelper.Errorf("shutdown wealth producer: %v", err)
		}
	}
	return &wealthProducer{sender: p, topic: mq.WealthTopic, log: logHelper}, cleanup, nil
}

// RechargeSucceeded 异步投递，失败只记日志，不影响已提交的入账
func (p *wealthProducer) RechargeSucceeded(ctx context.Context, event *biz.RechargeSucceededEvent) {
	if p.sender == nil {
		p.log.Infof("RocketMQ disabled, skip wealth event: order_id=%s, user_id=%s", event.OrderID, event.UserID)
		return
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.Errorf("marshal wealth event failed: order_id=%s, error=%v", event.OrderID, err)
		return
	}
	msg := primitive.NewMessage(p.topic, body)
	msg.WithKeys([]string{event.OrderID})
	msg.WithShardingKey(event.UserID)

	err = p.sender.SendAsync(context.WithoutCancel(ctx), func(_ context.Context, result *primitive.SendResult, err error) {
		if err != nil {
			p.log.Errorf("Send wealth event failed: order_id=%s, error=%v", event.OrderID, err)
			return
		}
		p.log.Infof("Wealth event sent: order_id=%s, msg_id=%s", event.OrderID, result.MsgID)
	}, msg)
	if err != nil {
		p.log.Errorf("Send wealth event failed: order_id=%s, error=%v", event.OrderID, err)
	}
}
