package playercheck

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/ranking/pkg/logger"
)

// Run creates cfg.Players players concurrently, replaces the points of
// cfg.Updates of them and then verifies the served ranking.
func Run(ctx context.Context, cfg *Config, log logger.Logger) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting player check",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("updates", cfg.Updates),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Bool("reset", cfg.Reset),
		logger.Any("seed", cfg.Seed))

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	if cfg.Reset {
		if err := client.DeleteAll(ctx); err != nil {
			return stats, fmt.Errorf("reset failed: %w", err)
		}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	faker := gofakeit.New(seed)

	expected := generate(faker, cfg.Players, cfg.MaxPoints)
	if err := forEach(ctx, cfg.Concurrency, expected, func(ctx context.Context, pseudo string, points int) error {
		e, err := client.Create(ctx, pseudo, points)
		if err != nil {
			return err
		}
		return checkWrite(e, pseudo, points)
	}); err != nil {
		return stats, fmt.Errorf("create players: %w", err)
	}
	stats.Created = len(expected)

	updates := pickUpdates(faker, expected, cfg.Updates, cfg.MaxPoints)
	if err := forEach(ctx, cfg.Concurrency, updates, func(ctx context.Context, pseudo string, points int) error {
		e, err := client.Update(ctx, pseudo, points)
		if err != nil {
			return err
		}
		return checkWrite(e, pseudo, points)
	}); err != nil {
		return stats, fmt.Errorf("update players: %w", err)
	}
	for pseudo, points := range updates {
		expected[pseudo] = points
	}
	stats.Updated = len(updates)

	entries, err := client.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("list players: %w", err)
	}
	stats.Listed = len(entries)

	if cfg.Reset && len(entries) != len(expected) {
		return stats, fmt.Errorf("%w: listed %d players, created %d", ErrVerification, len(entries), len(expected))
	}
	if err := VerifyList(entries, expected); err != nil {
		return stats, err
	}

	listed := Index(entries)
	if err := forEach(ctx, cfg.Concurrency, expected, func(ctx context.Context, pseudo string, _ int) error {
		e, err := client.Get(ctx, pseudo)
		if err != nil {
			return err
		}
		return VerifyEntry(e, listed)
	}); err != nil {
		return stats, fmt.Errorf("lookup players: %w", err)
	}
	stats.Verified = len(expected)
	stats.Duration = time.Since(start)

	log.Info(ctx, "player check passed",
		logger.Int("created", stats.Created),
		logger.Int("updated", stats.Updated),
		logger.Int("listed", stats.Listed),
		logger.Int("verified", stats.Verified),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// generate returns n fresh pseudos with random points. The uuid suffix keeps
// pseudos unique across runs against the same service.
func generate(faker *gofakeit.Faker, n, maxPoints int) map[string]int {
	players := make(map[string]int, n)
	for len(players) < n {
		pseudo := faker.Username() + "-" + uuid.NewString()[:8]
		players[pseudo] = faker.Number(0, maxPoints)
	}
	return players
}

// pickUpdates chooses up to n players and new points for them.
func pickUpdates(faker *gofakeit.Faker, players map[string]int, n, maxPoints int) map[string]int {
	updates := make(map[string]int, n)
	for pseudo := range players {
		if len(updates) >= n {
			break
		}
		updates[pseudo] = faker.Number(0, maxPoints)
	}
	return updates
}

// forEach runs fn for every player with at most limit calls in flight and
// stops at the first error.
func forEach(ctx context.Context, limit int, players map[string]int, fn func(context.Context, string, int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(limit, 1))
	for pseudo, points := range players {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, pseudo, points)
		})
	}
	return g.Wait()
}

func checkWrite(e Entry, pseudo string, points int) error {
	if e.Player.Pseudo != pseudo || e.Player.Points != points {
		return fmt.Errorf("%w: wrote %s=%d, service answered %s=%d",
			ErrVerification, pseudo, points, e.Player.Pseudo, e.Player.Points)
	}
	if e.Rank < 1 {
		return fmt.Errorf("%w: %s got rank %d", ErrVerification, pseudo, e.Rank)
	}
	return nil
}
