package server

import (
	"context"
	"encoding/json"

	"recharge-service/internal/biz"
	"recharge-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// walletEventApplier 消费者需要的钱包能力
type walletEventApplier interface {
	ApplyEvent(ctx context.Context, e *biz.WalletEvent) error
}

// MQConsumerServer 消费钱包变动事件（送礼扣币 / 收礼入账）
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	wallet  walletEventApplier
	topic   string
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer 创建 RocketMQ 消费者；未启用或初始化失败时降级为空实现
func NewMQConsumerServer(c *conf.Bootstrap, wallet *biz.WalletUseCase, logger log.Logger) *MQConsumerServer {
	logHelper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{log: logHelper, enabled: false}
	}
	mq := c.Data.Rocketmq

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(mq.NameServers)),
		consumer.WithGroupName(mq.GroupName),
		consumer.WithRetry(int(mq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(32),
	)
	if err != nil {
		logHelper.Errorf("init consumer error: %v", err)
		return &MQConsumerServer{log: logHelper, enabled: false}
	}

	return &MQConsumerServer{
		c:       r,
		wallet:  wallet,
		topic:   mq.WalletTopic,
		log:     logHelper,
		enabled: true,
	}
}

// Start starts the consumer
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.topic)

	if err := s.c.Subscribe(s.topic, consumer.MessageSelector{}, s.handler); err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.topic, err)
		// 不返回错误，避免 RocketMQ 不可用时整个应用启动失败
		return nil
	}
	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}
	return nil
}

// Stop stops the consumer
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

// handler 逐条应用；任一条需要重试时整批稍后重投，已应用的按 event_id 幂等跳过
func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	for _, msg := range msgs {
		var event biz.WalletEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			s.log.Errorf("Unmarshal wallet event failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		if err := s.wallet.ApplyEvent(ctx, &event); err != nil {
			s.log.Errorf("ApplyEvent failed: event_id=%s, msg_id=%s, error=%v", event.EventID, msg.MsgId, err)
			return consumer.ConsumeRetryLater, nil
		}
	}
	return consumer.ConsumeSuccess, nil
}
