package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/okian/ranking/internal/config"
)

// Open builds the store selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		var opts []Option
		if cfg.SeedDemo {
			opts = append(opts, WithDemoSeed())
		}
		return NewTreapStore(ctx, opts...), nil

	case config.BackendMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection,
			WithMongoTimeout(cfg.MongoTimeout()))

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return NewRedisStore(client, WithRedisKey(cfg.RedisKey)), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
