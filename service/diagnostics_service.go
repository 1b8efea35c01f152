package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus_market/config"
	"campus_market/global"
	"campus_market/model"
	"campus_market/repository"

	"go.uber.org/zap"
)

// ErrKafkaNotConfigured 未配置broker时无法确认事件
var ErrKafkaNotConfigured = errors.New("kafka brokers not configured")

// seekSkew 回溯读取位置的余量，吸收客户端与broker的时钟偏差
const seekSkew = 5 * time.Second

// DiagnosticsTrigger 服务端诊断接口
type DiagnosticsTrigger interface {
	KafkaOrderEvent(ctx context.Context, req model.KafkaDiagnosticsRequest) (model.KafkaDiagnosticsResponse, error)
}

// EventSource 每次确认创建一个新的事件读取器，用完由调用方关闭
type EventSource func() (*repository.KafkaRepository, error)

// KafkaEvents 基于配置的事件读取器，不加入消费者组
func KafkaEvents(cfg config.KafkaConfig, logger *zap.Logger) EventSource {
	return func() (*repository.KafkaRepository, error) {
		if len(cfg.GetKafkaBrokers()) == 0 {
			return nil, ErrKafkaNotConfigured
		}
		return repository.NewKafkaRepository(global.NewKafkaReader(cfg, ""), logger.Named("kafka")), nil
	}
}

// DiagnosticsService 触发服务端的订单事件，并可从Kafka确认事件已写入
type DiagnosticsService struct {
	api    DiagnosticsTrigger
	events EventSource
	logger *zap.Logger
	now    func() time.Time
}

// NewDiagnosticsService 创建诊断服务，events为nil时只能触发不能确认
func NewDiagnosticsService(api DiagnosticsTrigger, events EventSource, logger *zap.Logger) *DiagnosticsService {
	return &DiagnosticsService{api: api, events: events, logger: logger, now: time.Now}
}

// TriggerOrderEvent 请求服务端发送一条订单事件
func (d *DiagnosticsService) TriggerOrderEvent(ctx context.Context, req model.KafkaDiagnosticsRequest) (model.KafkaDiagnosticsResponse, error) {
	resp, err := d.api.KafkaOrderEvent(ctx, req)
	if err != nil {
		return model.KafkaDiagnosticsResponse{}, err
	}
	d.logger.Info("Order event dispatched",
		zap.String("topic", resp.Topic),
		zap.String("key", resp.Key),
	)
	return resp, nil
}

// TriggerAndConfirm 触发事件后在主题中等待同key的消息，直到ctx结束
func (d *DiagnosticsService) TriggerAndConfirm(ctx context.Context, req model.KafkaDiagnosticsRequest) (model.KafkaDiagnosticsResponse, model.OrderEvent, error) {
	if d.events == nil {
		return model.KafkaDiagnosticsResponse{}, model.OrderEvent{}, ErrKafkaNotConfigured
	}
	since := d.now()

	resp, err := d.TriggerOrderEvent(ctx, req)
	if err != nil {
		return model.KafkaDiagnosticsResponse{}, model.OrderEvent{}, err
	}
	if !resp.DispatchedAt.IsZero() && resp.DispatchedAt.Before(since) {
		since = resp.DispatchedAt.Time
	}

	repo, err := d.events()
	if err != nil {
		return resp, model.OrderEvent{}, err
	}
	defer func() {
		if err := repo.Close(); err != nil {
			d.logger.Warn("Failed to close kafka reader", zap.Error(err))
		}
	}()

	event, err := repo.WaitForOrderEvent(ctx, resp.Key, since.Add(-seekSkew))
	if err != nil {
		return resp, model.OrderEvent{}, fmt.Errorf("confirm order event %s: %w", resp.Key, err)
	}
	return resp, event, nil
}
