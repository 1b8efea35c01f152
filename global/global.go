package global

import (
	"context"
	"fmt"
	"time"

	"campus_market/config"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 客户端不持有全局可变状态，这里只提供基础设施的构造与关闭

// NewLogger 根据配置创建zap日志
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}

// NewRedisClient 初始化Redis连接并检查可用性
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,     // 服务地址
		Password:     cfg.Password, // 访问密码
		DB:           cfg.DB,       // 数据库编号
		PoolSize:     10,           // 客户端进程，连接池不需要太大
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect redis %s: %w", cfg.Addr, err)
	}

	logger.Info("Redis connected successfully", zap.String("addr", cfg.Addr))
	return client, nil
}

// NewEtcdClient 初始化Etcd客户端并检查服务状态
func NewEtcdClient(ctx context.Context, cfg config.EtcdConfig, logger *zap.Logger) (*clientv3.Client, error) {
	endpoints := cfg.GetEtcdEndpoints()

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            endpoints,                                    // 服务端点
		DialTimeout:          time.Duration(cfg.DialTimeout) * time.Second, // 连接超时时间
		Username:             cfg.Username,                                 // 认证用户名
		Password:             cfg.Password,                                 // 认证密码
		DialKeepAliveTime:    10 * time.Second,
		DialKeepAliveTimeout: 3 * time.Second,
		Logger:               logger.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect etcd %v: %w", endpoints, err)
	}

	statusCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if _, err := client.Status(statusCtx, endpoints[0]); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get etcd status: %w", err)
	}

	logger.Info("Etcd connected successfully", zap.Strings("endpoints", endpoints))
	return client, nil
}

// NewKafkaReader 创建订单事件消费者
// groupID为空时不加入消费者组，从最新位置开始读取，适合一次性诊断
func NewKafkaReader(cfg config.KafkaConfig, groupID string) *kafka.Reader {
	rc := kafka.ReaderConfig{
		Brokers:  cfg.GetKafkaBrokers(), // broker地址
		Topic:    cfg.OrderTopic,        // 主题名称
		GroupID:  groupID,               // 消费者组ID
		MinBytes: 1,                     // 诊断场景要求尽快返回
		MaxBytes: 10e6,                  // 最大读取字节数
		MaxWait:  500 * time.Millisecond,
	}
	if groupID == "" {
		rc.StartOffset = kafka.LastOffset
	}
	return kafka.NewReader(rc)
}

// CloseRedis 关闭Redis连接
func CloseRedis(client *redis.Client, logger *zap.Logger) {
	if client != nil {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis", zap.Error(err))
			return
		}
		logger.Info("Redis connection closed")
	}
}

// CloseEtcd 关闭Etcd客户端连接
func CloseEtcd(client *clientv3.Client, logger *zap.Logger) {
	if client != nil {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close etcd", zap.Error(err))
			return
		}
		logger.Info("Etcd connection closed")
	}
}

// CloseKafka 关闭Kafka消费者
func CloseKafka(reader *kafka.Reader, logger *zap.Logger) {
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Warn("Failed to close kafka reader", zap.Error(err))
			return
		}
		logger.Info("Kafka reader closed")
	}
}
