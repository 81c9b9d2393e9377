// Package repository defines the player store contract and its backends.
package repository

import (
	"context"

	"github.com/okian/ranking/internal/domain/model"
)

// Store provides read/write access to the players collection.
//
// Every backend ranks with model.RanksBefore: points descending, then pseudo
// ascending. Ranks are 1-based positions over the whole population.
type Store interface {
	// Add inserts a new player.
	// Returns model.ErrDuplicatePlayer if the pseudo is already taken.
	Add(ctx context.Context, p model.Player) error

	// Update replaces the points of an existing player.
	// Returns false if no player has this pseudo. Never creates a player.
	Update(ctx context.Context, p model.Player) (bool, error)

	// By returns the ranked view of one player, or false if absent.
	By(ctx context.Context, pseudo string) (model.RankedPlayer, bool, error)

	// AllSortedByRank returns every player ordered by ascending rank.
	AllSortedByRank(ctx context.Context) ([]model.RankedPlayer, error)

	// DeleteAll removes every player.
	DeleteAll(ctx context.Context) error

	// Count returns the number of stored players.
	Count(ctx context.Context) (int, error)
}

// RankedWriter is implemented by stores able to write a player and read back
// its rank in a single atomic step.
type RankedWriter interface {
	AddRanked(ctx context.Context, p model.Player) (model.RankedPlayer, error)
	UpdateRanked(ctx context.Context, p model.Player) (model.RankedPlayer, bool, error)
}

// Pinger is implemented by stores backed by a remote server.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend names reported by stores.
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)
