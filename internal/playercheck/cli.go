package playercheck

import (
	"fmt"
	"runtime"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/ranking/pkg/logger"
)

// Flag defaults.
const (
	defaultURL       = "http://localhost:8080"
	defaultPlayers   = 1000
	defaultUpdates   = 100
	defaultMaxPoints = 10000
	defaultTimeout   = 10 * time.Second
)

// NewApp builds the player-check command line.
func NewApp() *cli.App {
	return &cli.App{
		Name:  "player-check",
		Usage: "create players against a running ranking service and verify the ranking it serves",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: defaultURL, Usage: "service base URL", EnvVars: []string{"PLAYER_CHECK_URL"}},
			&cli.IntFlag{Name: "players", Aliases: []string{"n"}, Value: defaultPlayers, Usage: "players to create"},
			&cli.IntFlag{Name: "updates", Value: defaultUpdates, Usage: "created players to update afterwards"},
			&cli.IntFlag{Name: "max-points", Value: defaultMaxPoints, Usage: "upper bound of generated points"},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"c"}, Value: runtime.NumCPU() * 2, Usage: "requests in flight"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "per-request timeout"},
			&cli.BoolFlag{Name: "reset", Usage: "delete every player first and require an exact population"},
			&cli.Uint64Flag{Name: "seed", Usage: "seed for generated pseudos and points (0 = random)"},
			&cli.BoolFlag{Name: "json", Usage: "log as JSON"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(logger.WithJSON(c.Bool("json"))); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			cfg := &Config{
				BaseURL:     c.String("url"),
				Players:     c.Int("players"),
				Updates:     c.Int("updates"),
				MaxPoints:   c.Int("max-points"),
				Concurrency: c.Int("concurrency"),
				Timeout:     c.Duration("timeout"),
				Reset:       c.Bool("reset"),
				Seed:        c.Uint64("seed"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			_, err := Run(c.Context, cfg, logger.Named("player-check"))
			return err
		},
	}
}
