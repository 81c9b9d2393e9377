// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
)

// MaxPoints is the largest point total. Every backend stores it exactly,
// including those keeping points as float64 scores.
const MaxPoints = 1 << 53

// Player is a named participant holding a point total.
// Values are built through NewPlayer so that an invalid Player never exists
// outside of the zero value, which callers must treat as "no player".
type Player struct {
	pseudo string
	points int
}

// NewPlayer validates and returns a Player.
func NewPlayer(pseudo string, points int) (Player, error) {
	if strings.TrimSpace(pseudo) == "" {
		return Player{}, newValidationError("Player.pseudo", "should not be empty or blank")
	}
	if points < 0 {
		return Player{}, newValidationError("Player.points", "must be positive")
	}
	if points > MaxPoints {
		return Player{}, newValidationError("Player.points", fmt.Sprintf("must not exceed %d", MaxPoints))
	}
	return Player{pseudo: pseudo, points: points}, nil
}

// Pseudo returns the unique player name.
func (p Player) Pseudo() string { return p.pseudo }

// Points returns the player's point total.
func (p Player) Points() int { return p.points }

// IsZero reports whether p is the zero value.
func (p Player) IsZero() bool { return p.pseudo == "" }

// WithPoints returns a replacement Player with the same pseudo and new points.
func (p Player) WithPoints(points int) (Player, error) {
	return NewPlayer(p.pseudo, points)
}

func (p Player) String() string {
	return fmt.Sprintf("Player(%s, %d)", p.pseudo, p.points)
}

// RankedPlayer is a Player together with its 1-based position in the
// full population ordered by descending points. It is always computed, never stored.
type RankedPlayer struct {
	player Player
	rank   int
}

// NewRankedPlayer validates and returns a RankedPlayer.
func NewRankedPlayer(p Player, rank int) (RankedPlayer, error) {
	if p.IsZero() {
		return RankedPlayer{}, newValidationError("RankedPlayer.player", "should not be empty")
	}
	if rank < 1 {
		return RankedPlayer{}, newValidationError("RankedPlayer.rank", "must be positive")
	}
	return RankedPlayer{player: p, rank: rank}, nil
}

// Player returns the ranked player.
func (r RankedPlayer) Player() Player { return r.player }

// Rank returns the 1-based rank.
func (r RankedPlayer) Rank() int { return r.rank }

// Pseudo is a shortcut for r.Player().Pseudo().
func (r RankedPlayer) Pseudo() string { return r.player.pseudo }

// Points is a shortcut for r.Player().Points().
func (r RankedPlayer) Points() int { return r.player.points }

func (r RankedPlayer) String() string {
	return fmt.Sprintf("RankedPlayer(%s, %d)", r.player, r.rank)
}
