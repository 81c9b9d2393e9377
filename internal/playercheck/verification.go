package playercheck

import (
	"errors"
	"fmt"

	"github.com/okian/ranking/internal/domain/model"
)

// ErrVerification marks a ranking that breaks an ordering or completeness rule.
var ErrVerification = errors.New("verification failed")

// VerifyList checks that entries carry ranks 1..N in order, follow the
// points-desc/pseudo-asc order and contain every expected player with its
// expected points.
func VerifyList(entries []Entry, expected map[string]int) error {
	seen := make(map[string]Entry, len(entries))
	var prev model.Player

	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("%w: entry %d (%s) has rank %d", ErrVerification, i, e.Player.Pseudo, e.Rank)
		}
		if _, dup := seen[e.Player.Pseudo]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrVerification, e.Player.Pseudo)
		}
		seen[e.Player.Pseudo] = e

		p, err := model.NewPlayer(e.Player.Pseudo, e.Player.Points)
		if err != nil {
			return fmt.Errorf("%w: entry %d: %w", ErrVerification, i, err)
		}
		if i > 0 && !model.RanksBefore(prev, p) {
			return fmt.Errorf("%w: %s listed before %s", ErrVerification, prev, p)
		}
		prev = p
	}

	for pseudo, points := range expected {
		e, ok := seen[pseudo]
		if !ok {
			return fmt.Errorf("%w: %s missing from the ranking", ErrVerification, pseudo)
		}
		if e.Player.Points != points {
			return fmt.Errorf("%w: %s has %d points, want %d", ErrVerification, pseudo, e.Player.Points, points)
		}
	}
	return nil
}

// Index maps each listed pseudo to its entry.
func Index(entries []Entry) map[string]Entry {
	idx := make(map[string]Entry, len(entries))
	for _, e := range entries {
		idx[e.Player.Pseudo] = e
	}
	return idx
}

// VerifyEntry checks that a single lookup agrees with the indexed list.
func VerifyEntry(got Entry, listed map[string]Entry) error {
	want, ok := listed[got.Player.Pseudo]
	if !ok {
		return fmt.Errorf("%w: %s not in the list", ErrVerification, got.Player.Pseudo)
	}
	if got != want {
		return fmt.Errorf("%w: %s is rank %d with %d points, list says rank %d with %d points",
			ErrVerification, got.Player.Pseudo, got.Rank, got.Player.Points, want.Rank, want.Player.Points)
	}
	return nil
}
