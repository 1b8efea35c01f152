package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v4"
)

// RedisTokenRepository 将令牌保存在Redis中，多个终端共享同一会话
type RedisTokenRepository struct {
	client redis.Cmdable // 单机或集群客户端
	key    string        // 令牌键
}

// NewRedisTokenRepository 创建Redis令牌仓库
func NewRedisTokenRepository(client redis.Cmdable, key string) *RedisTokenRepository {
	return &RedisTokenRepository{client: client, key: key}
}

// Load 读取令牌
func (r *RedisTokenRepository) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get token from redis failed: %w", err)
	}
	return token, nil
}

// Save 写入令牌，JWT令牌的过期时间同步为键的过期时间
func (r *RedisTokenRepository) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, tokenTTL(token, time.Now())).Err(); err != nil {
		return fmt.Errorf("set token to redis failed: %w", err)
	}
	return nil
}

// Clear 删除令牌
func (r *RedisTokenRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("delete token from redis failed: %w", err)
	}
	return nil
}

// tokenTTL 读取JWT的exp作为过期时间，非JWT或没有exp时不过期
func tokenTTL(token string, now time.Time) time.Duration {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return 0
	}
	ttl := claims.ExpiresAt.Sub(now)
	if ttl <= 0 {
		// 已过期的令牌仍写入，交由会话存储在启动时清理
		return time.Second
	}
	return ttl
}
