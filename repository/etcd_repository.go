package repository

import (
	"context"
	"fmt"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// EtcdTokenRepository 将令牌保存在Etcd中，并可监听其他进程的登出
type EtcdTokenRepository struct {
	client *clientv3.Client // Etcd客户端实例
	key    string           // 令牌键
	logger *zap.Logger
}

// NewEtcdTokenRepository 创建Etcd令牌仓库
func NewEtcdTokenRepository(client *clientv3.Client, key string, logger *zap.Logger) *EtcdTokenRepository {
	return &EtcdTokenRepository{client: client, key: key, logger: logger}
}

// Load 读取令牌
func (e *EtcdTokenRepository) Load(ctx context.Context) (string, error) {
	resp, err := e.client.Get(ctx, e.key)
	if err != nil {
		return "", fmt.Errorf("get token from etcd failed: %w", err)
	}
	if len(resp.Kvs) == 0 {
		return "", nil
	}
	return string(resp.Kvs[0].Value), nil
}

// Save 写入令牌
func (e *EtcdTokenRepository) Save(ctx context.Context, token string) error {
	if _, err := e.client.Put(ctx, e.key, token); err != nil {
		return fmt.Errorf("put token to etcd failed: %w", err)
	}
	return nil
}

// Clear 删除令牌
func (e *EtcdTokenRepository) Clear(ctx context.Context) error {
	if _, err := e.client.Delete(ctx, e.key); err != nil {
		return fmt.Errorf("delete token from etcd failed: %w", err)
	}
	return nil
}

// TokenChange 令牌键的一次变化，Removed为true时Token为空
type TokenChange struct {
	Token   string
	Removed bool
}

// Watch 监听令牌键，直到ctx结束
func (e *EtcdTokenRepository) Watch(ctx context.Context, callback func(TokenChange)) {
	rch := e.client.Watch(ctx, e.key)

	go func() {
		for wresp := range rch {
			if err := wresp.Err(); err != nil {
				e.logger.Warn("Etcd token watch failed", zap.Error(err))
				continue
			}
			for _, ev := range wresp.Events {
				change := TokenChange{Removed: ev.Type == clientv3.EventTypeDelete}
				if !change.Removed {
					change.Token = string(ev.Kv.Value)
				}
				e.logger.Debug("Etcd token changed",
					zap.String("key", string(ev.Kv.Key)),
					zap.Bool("removed", change.Removed),
				)
				callback(change)
			}
		}
	}()
}
