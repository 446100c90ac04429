package databases

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/pulsepoint/eris-api/config"
)

const redisKeyPrefix = "eris:"

// Open connects the state store selected by conf.StoreDriver. The returned
// close function releases the connection.
func Open(ctx context.Context, conf *config.Config) (StateDatabase, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch conf.StoreDriver {
	case config.StoreMongo:
		client, err := NewClient(conf)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create mongo client: %w", err)
		}
		if err := client.Connect(ctx); err != nil {
			return nil, noop, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		zap.S().Infow("connected to mongo", "database", conf.DatabaseName)
		return NewMongoStateDatabase(NewDatabase(conf, client)), client.Disconnect, nil

	case config.StoreRedis:
		client := NewRedisClient(conf)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis: %w", err)
		}
		zap.S().Infow("connected to redis", "addr", conf.RedisAddr)
		return NewRedisStateDatabase(client, redisKeyPrefix), func(context.Context) error { return client.Close() }, nil

	case config.StorePostgres:
		db, err := NewPostgresDB(conf)
		if err != nil {
			return nil, noop, err
		}
		store, err := NewPostgresStateDatabase(ctx, db)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		zap.S().Infow("connected to postgres")
		return store, func(context.Context) error { return db.Close() }, nil

	case config.StoreMemory:
		zap.S().Warnw("using in-memory state store, state is lost on restart")
		return NewMemoryStateDatabase(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown store driver %q", conf.StoreDriver)
}
