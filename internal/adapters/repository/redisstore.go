package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/ranking/internal/domain/model"
	"github.com/okian/ranking/pkg/metrics"
)

// RedisStore keeps players in one sorted set: member is the pseudo, score is
// the negated points. Ascending order is then points descending with members
// of equal score ordered by pseudo, matching model.RanksBefore.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store over client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: "players"}
	for _, opt := range opts {
		opt(s)
	}
	metrics.SetRepositoryBackend(BackendRedis)
	return s
}

func toScore(points int) float64 { return float64(-points) }

func toPoints(score float64) int { return int(math.Round(-score)) }

func (s *RedisStore) observe(op string, start time.Time, err error) {
	metrics.RecordRepositoryOperation(BackendRedis, op, metrics.SinceMs(start))
	if err != nil {
		metrics.RecordRepositoryError(BackendRedis, op)
	}
}

// Add inserts p with ZADD NX.
func (s *RedisStore) Add(ctx context.Context, p model.Player) (err error) {
	defer func(start time.Time) { s.observe("add", start, err) }(time.Now())

	added, err := s.client.ZAddNX(ctx, s.key, redis.Z{Score: toScore(p.Points()), Member: p.Pseudo()}).Result()
	if err != nil {
		return fmt.Errorf("zadd: %w", err)
	}
	if added == 0 {
		return fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, p.Pseudo())
	}
	return nil
}

// AddRanked inserts p and reads its rank in one MULTI block.
func (s *RedisStore) AddRanked(ctx context.Context, p model.Player) (_ model.RankedPlayer, err error) {
	defer func(start time.Time) { s.observe("add", start, err) }(time.Now())

	var added *redis.IntCmd
	var score *redis.FloatCmd
	var rank *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		added = pipe.ZAddNX(ctx, s.key, redis.Z{Score: toScore(p.Points()), Member: p.Pseudo()})
		score = pipe.ZScore(ctx, s.key, p.Pseudo())
		rank = pipe.ZRank(ctx, s.key, p.Pseudo())
		return nil
	})
	if err != nil {
		return model.RankedPlayer{}, fmt.Errorf("zadd: %w", err)
	}
	if added.Val() == 0 {
		return model.RankedPlayer{}, fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, p.Pseudo())
	}
	rp, ok, err := s.rankedFrom(p.Pseudo(), score, rank)
	if err != nil {
		return model.RankedPlayer{}, err
	}
	if !ok {
		return model.RankedPlayer{}, fmt.Errorf("%w: %s", model.ErrInconsistentState, p.Pseudo())
	}
	return rp, nil
}

// Update sets the points of an existing player with ZADD XX.
func (s *RedisStore) Update(ctx context.Context, p model.Player) (bool, error) {
	_, ok, err := s.UpdateRanked(ctx, p)
	return ok, err
}

// UpdateRanked sets the points of an existing player and reads its rank in
// one MULTI block. ZADD XX never creates the member.
func (s *RedisStore) UpdateRanked(ctx context.Context, p model.Player) (_ model.RankedPlayer, _ bool, err error) {
	defer func(start time.Time) { s.observe("update", start, err) }(time.Now())

	var score *redis.FloatCmd
	var rank *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAddXX(ctx, s.key, redis.Z{Score: toScore(p.Points()), Member: p.Pseudo()})
		score = pipe.ZScore(ctx, s.key, p.Pseudo())
		rank = pipe.ZRank(ctx, s.key, p.Pseudo())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.RankedPlayer{}, false, fmt.Errorf("zadd: %w", err)
	}
	return s.rankedFrom(p.Pseudo(), score, rank)
}

// By reads score and rank of pseudo in one MULTI block.
func (s *RedisStore) By(ctx context.Context, pseudo string) (_ model.RankedPlayer, _ bool, err error) {
	defer func(start time.Time) { s.observe("by", start, err) }(time.Now())

	var score *redis.FloatCmd
	var rank *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		score = pipe.ZScore(ctx, s.key, pseudo)
		rank = pipe.ZRank(ctx, s.key, pseudo)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return model.RankedPlayer{}, false, fmt.Errorf("zscore: %w", err)
	}
	return s.rankedFrom(pseudo, score, rank)
}

// rankedFrom builds a ranked player from executed ZSCORE and ZRANK commands.
// A missing member yields false.
func (s *RedisStore) rankedFrom(pseudo string, score *redis.FloatCmd, rank *redis.IntCmd) (model.RankedPlayer, bool, error) {
	sc, err := score.Result()
	if errors.Is(err, redis.Nil) {
		return model.RankedPlayer{}, false, nil
	}
	if err != nil {
		return model.RankedPlayer{}, false, fmt.Errorf("zscore: %w", err)
	}
	r, err := rank.Result()
	if errors.Is(err, redis.Nil) {
		return model.RankedPlayer{}, false, nil
	}
	if err != nil {
		return model.RankedPlayer{}, false, fmt.Errorf("zrank: %w", err)
	}

	rp, err := s.toModel(pseudo, sc, int(r)+1)
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	return rp, true, nil
}

func (s *RedisStore) toModel(pseudo string, score float64, rank int) (model.RankedPlayer, error) {
	p, err := model.NewPlayer(pseudo, toPoints(score))
	if err != nil {
		return model.RankedPlayer{}, fmt.Errorf("%w: %w", ErrCorruptRecord, err)
	}
	return model.NewRankedPlayer(p, rank)
}

// AllSortedByRank reads the whole sorted set in ascending score order.
func (s *RedisStore) AllSortedByRank(ctx context.Context) (_ []model.RankedPlayer, err error) {
	defer func(start time.Time) { s.observe("all", start, err) }(time.Now())

	zs, err := s.client.ZRangeWithScores(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange: %w", err)
	}
	out := make([]model.RankedPlayer, 0, len(zs))
	for i, z := range zs {
		pseudo, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("%w: member %v", ErrCorruptRecord, z.Member)
		}
		rp, err := s.toModel(pseudo, z.Score, i+1)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, nil
}

// DeleteAll drops the sorted set.
func (s *RedisStore) DeleteAll(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("delete_all", start, err) }(time.Now())

	if err = s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("del: %w", err)
	}
	return nil
}

// Count returns the cardinality of the sorted set.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("zcard: %w", err)
	}
	return int(n), nil
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Backend names the storage engine.
func (s *RedisStore) Backend() string { return BackendRedis }
