package databases

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pulsepoint/eris-api/config"
)

// RedisCmdable is the part of the redis client the state store uses
type RedisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type redisStateDatabase struct {
	client RedisCmdable
	prefix string
}

// NewRedisClient creates a redis client from the config
func NewRedisClient(conf *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
	})
}

// NewRedisStateDatabase keeps every key under prefix, without expiry
func NewRedisStateDatabase(client RedisCmdable, prefix string) StateDatabase {
	return &redisStateDatabase{client: client, prefix: prefix}
}

func (r *redisStateDatabase) Load(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *redisStateDatabase) Save(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}
