// Package playercheck drives a running ranking service over HTTP and checks
// that the ranking it serves is complete and consistently ordered.
package playercheck

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid player check config")

// Config holds the check parameters.
type Config struct {
	BaseURL     string        // service root, e.g. http://localhost:8080
	Players     int           // players to create
	Updates     int           // created players whose points are replaced afterwards
	MaxPoints   int           // points are drawn from [0, MaxPoints]
	Concurrency int           // in-flight requests
	Timeout     time.Duration // per request
	Reset       bool          // delete every player before creating
	Seed        uint64        // faker seed; 0 picks one from the clock
}

// Entry is one ranked player as served by the API.
type Entry struct {
	Player struct {
		Pseudo string `json:"pseudo"`
		Points int    `json:"points"`
	} `json:"player"`
	Rank int `json:"rank"`
}

// Stats summarizes a run.
type Stats struct {
	Created  int
	Updated  int
	Listed   int
	Verified int
	Duration time.Duration
}

// Validate rejects counts the check cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: url must not be empty", ErrInvalidConfig)
	case c.Players < 1:
		return fmt.Errorf("%w: players must be at least 1", ErrInvalidConfig)
	case c.Updates < 0 || c.Updates > c.Players:
		return fmt.Errorf("%w: updates must be within [0, players]", ErrInvalidConfig)
	case c.MaxPoints < 0:
		return fmt.Errorf("%w: max-points must not be negative", ErrInvalidConfig)
	}
	return nil
}
