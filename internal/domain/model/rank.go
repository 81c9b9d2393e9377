package model

import "sort"

// RanksBefore reports whether a is ranked ahead of b: more points first,
// then pseudo in ascending byte order. Every store orders players this way,
// so tied players get the same ranks whichever backend is installed.
func RanksBefore(a, b Player) bool {
	if a.points != b.points {
		return a.points > b.points
	}
	return a.pseudo < b.pseudo
}

// Rank orders players and assigns positional ranks: equal points still
// consume distinct consecutive ranks. The input slice is not modified.
func Rank(players []Player) []RankedPlayer {
	sorted := make([]Player, len(players))
	copy(sorted, players)
	sort.SliceStable(sorted, func(i, j int) bool {
		return RanksBefore(sorted[i], sorted[j])
	})

	out := make([]RankedPlayer, len(sorted))
	for i, p := range sorted {
		out[i] = RankedPlayer{player: p, rank: i + 1}
	}
	return out
}

// Find returns the entry for pseudo in a ranked sequence.
func Find(ranked []RankedPlayer, pseudo string) (RankedPlayer, bool) {
	for _, r := range ranked {
		if r.player.pseudo == pseudo {
			return r, true
		}
	}
	return RankedPlayer{}, false
}
