package repository

import (
	"time"

	"github.com/okian/ranking/internal/domain/model"
)

// Option applies a configuration option to the TreapStore.
type Option func(*TreapStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *TreapStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithSeed preloads players into the store. Later duplicates are ignored.
func WithSeed(players ...model.Player) Option {
	return func(s *TreapStore) {
		s.seed = append(s.seed, players...)
	}
}

// WithDemoSeed preloads the demo players foo, bar and baz.
func WithDemoSeed() Option {
	return WithSeed(DemoPlayers()...)
}

// DemoPlayers returns the demo population used by WithDemoSeed.
func DemoPlayers() []model.Player {
	demo := []struct {
		pseudo string
		points int
	}{
		{"foo", 10},
		{"bar", 5},
		{"baz", 1},
	}
	out := make([]model.Player, 0, len(demo))
	for _, d := range demo {
		p, err := model.NewPlayer(d.pseudo, d.points)
		if err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithMongoTimeout bounds every collection operation.
func WithMongoTimeout(timeout time.Duration) MongoOption {
	return func(s *MongoStore) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// RedisOption applies a configuration option to the RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKey sets the sorted set key holding the players.
func WithRedisKey(key string) RedisOption {
	return func(s *RedisStore) {
		if key != "" {
			s.key = key
		}
	}
}
