// services/redis.go
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type RedisService struct {
	appContext.DefaultService
	redis *redis.Client
}

const REDIS_SVC = "redis_svc"

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.initRedisClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.redis != nil {
		ctx := context.Background()
		if _, err := svc.redis.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		_ = svc.redis.Close()
	}
}

func (svc *RedisService) initRedisClient() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	svc.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})
}

func (svc *RedisService) GetClient() *redis.Client {
	return svc.redis
}

func (svc *RedisService) Ready() bool {
	return svc != nil && svc.redis != nil
}

func (svc *RedisService) SetJSON(key string, value interface{}, expiration time.Duration) error {
	if svc.redis == nil {
		return errors.New("redis client not initialized")
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return err
	}

	return svc.redis.Set(context.Background(), key, data, expiration).Err()
}

// GetJSON unmarshals the cached value into dest; the second return is false
// on a cache miss.
func (svc *RedisService) GetJSON(key string, dest interface{}) (bool, error) {
	if svc.redis == nil {
		return false, errors.New("redis client not initialized")
	}

	data, err := svc.redis.Get(context.Background(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := sonic.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (svc *RedisService) Delete(key string) error {
	if svc.redis == nil {
		return errors.New("redis client not initialized")
	}
	return svc.redis.Del(context.Background(), key).Err()
}

// IncrWithWindow bumps a counter and sets its expiry on first increment.
// Used by the sliding-window rate limiter.
func (svc *RedisService) IncrWithWindow(key string, window time.Duration) (int64, error) {
	if svc.redis == nil {
		return 0, errors.New("redis client not initialized")
	}

	ctx := context.Background()
	count, err := svc.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := svc.redis.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}
