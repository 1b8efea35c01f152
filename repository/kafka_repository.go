package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"campus_market/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ErrEventNotObserved 在ctx结束前没有读到期望的订单事件
var ErrEventNotObserved = errors.New("order event not observed")

// MessageReader 订单事件消费者，*kafka.Reader 满足该接口
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	SetOffsetAt(ctx context.Context, t time.Time) error
	Close() error
}

// KafkaRepository 读取订单事件主题
type KafkaRepository struct {
	reader MessageReader
	logger *zap.Logger
}

// NewKafkaRepository 创建Kafka仓库实例
func NewKafkaRepository(reader MessageReader, logger *zap.Logger) *KafkaRepository {
	return &KafkaRepository{reader: reader, logger: logger}
}

// ConsumeOrderEvents 持续消费订单事件，直到ctx结束或handler返回false
func (k *KafkaRepository) ConsumeOrderEvents(ctx context.Context, handler func(key string, event model.OrderEvent) bool) error {
	for {
		msg, err := k.reader.ReadMessage(ctx)
		if err != nil {
			return fmt.Errorf("read kafka message failed: %w", err)
		}

		var event model.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			k.logger.Warn("Failed to unmarshal order event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			continue // 跳过无法解析的消息
		}

		k.logger.Debug("Received order event",
			zap.String("key", string(msg.Key)),
			zap.String("event_type", event.EventType),
			zap.Int64("offset", msg.Offset),
		)
		if !handler(string(msg.Key), event) {
			return nil
		}
	}
}

// WaitForOrderEvent 等待指定key的订单事件
// since非零时先把读取位置移到该时间点，避免错过在开始读取前已写入的事件
// 只有不属于消费者组的reader支持移动位置
func (k *KafkaRepository) WaitForOrderEvent(ctx context.Context, key string, since time.Time) (model.OrderEvent, error) {
	if !since.IsZero() {
		if err := k.reader.SetOffsetAt(ctx, since); err != nil {
			return model.OrderEvent{}, fmt.Errorf("seek order events to %s failed: %w", since.Format(time.RFC3339), err)
		}
	}
	var found *model.OrderEvent
	err := k.ConsumeOrderEvents(ctx, func(msgKey string, event model.OrderEvent) bool {
		if msgKey != key {
			return true
		}
		found = &event
		return false
	})
	if found != nil {
		return *found, nil
	}
	if ctx.Err() != nil {
		return model.OrderEvent{}, fmt.Errorf("%w: key %s: %v", ErrEventNotObserved, key, ctx.Err())
	}
	return model.OrderEvent{}, err
}

// Close 关闭消费者
func (k *KafkaRepository) Close() error {
	if err := k.reader.Close(); err != nil {
		return fmt.Errorf("close kafka reader failed: %w", err)
	}
	return nil
}
