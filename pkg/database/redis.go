package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"impact_chat/pkg/config"
	"impact_chat/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// ErrNotFound key does not exist
var ErrNotFound = errors.New("key not found")

// RedisRepository 定义接口
type RedisRepository[T any] interface {
	Set(ctx context.Context, key string, value T, ttl time.Duration) error
	Get(ctx context.Context, key string) (T, error)
	Del(ctx context.Context, key string) error
}

type redisRepository[T any] struct {
	client redis.UniversalClient
}

// NewRedisClient connect redis, sentinel when sentinel addrs are set (or found in env)
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	var rdb redis.UniversalClient

	if cfg.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
		})
	} else {
		masterName, sentinelAddrs := cfg.MasterName, cfg.SentinelAddrs
		if len(sentinelAddrs) == 0 {
			masterName, sentinelAddrs = config.GetRedisSetting()
		}
		if len(sentinelAddrs) == 0 {
			return nil, errors.New("redis: neither addr nor sentinel addrs configured")
		}
		rdb = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    masterName,
			SentinelAddrs: sentinelAddrs,
			Password:      cfg.Password,
			DB:            cfg.RedisDB,
		})
	}

	retry := Retry{Count: cfg.RetryCount, Interval: cfg.RetryInterval}
	if _, err := connectWithRetry(ctx, "redis", retry, func() (string, error) {
		return rdb.Ping(ctx).Result()
	}); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return rdb, nil
}

// NewRedisRepository wrap client as a typed JSON repository (Set, Get, Del)
func NewRedisRepository[T any](client redis.UniversalClient) RedisRepository[T] {
	return &redisRepository[T]{client: client}
}

func (r *redisRepository[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func (r *redisRepository[T]) Get(ctx context.Context, key string) (T, error) {
	var zeroValue T
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return zeroValue, ErrNotFound
	} else if err != nil {
		return zeroValue, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		logger.Log.Error("redis get unmarshal", zap.String("key", key), zap.Error(err))
		return zeroValue, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}

	return result, nil
}

func (r *redisRepository[T]) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
