package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/okian/ranking/internal/domain/model"
	"github.com/okian/ranking/pkg/metrics"
)

// Treap-based, in-memory Store implementation.
//
// The BST comparator is model.RanksBefore, so in-order traversal yields the
// ranking from best to worst. Every node carries its subtree size which makes
// the rank of a player an order statistic computed in O(log n).

type node struct {
	player model.Player
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, p model.Player, prio uint64) *node {
	if n == nil {
		return &node{player: p, prio: prio, size: 1}
	}
	if model.RanksBefore(p, n.player) {
		n.left = insert(n.left, p, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, p, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

// deleteNode removes p, which must be the exact stored value for its pseudo.
func deleteNode(n *node, p model.Player) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.player.Pseudo() == p.Pseudo():
		// Merge children by rotating highest priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, p)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, p)
		}
	case model.RanksBefore(p, n.player):
		n.left = deleteNode(n.left, p)
	default:
		n.right = deleteNode(n.right, p)
	}
	fix(n)
	return n
}

// rankOf returns the 1-based position of p, or 0 if p is not in the tree.
func rankOf(n *node, p model.Player) int {
	before := 0
	for n != nil {
		switch {
		case n.player.Pseudo() == p.Pseudo():
			return before + nsize(n.left) + 1
		case model.RanksBefore(p, n.player):
			n = n.left
		default:
			before += nsize(n.left) + 1
			n = n.right
		}
	}
	return 0
}

// collectAll appends all players in rank order (best first).
func collectAll(n *node, out *[]model.RankedPlayer) error {
	if n == nil {
		return nil
	}
	if err := collectAll(n.left, out); err != nil {
		return err
	}
	rp, err := model.NewRankedPlayer(n.player, len(*out)+1)
	if err != nil {
		return err
	}
	*out = append(*out, rp)
	return collectAll(n.right, out)
}

// TreapStore keeps players in memory. A single RWMutex guards the whole
// collection so check-then-insert is atomic.
type TreapStore struct {
	mu       sync.RWMutex
	root     *node
	byPseudo map[string]model.Player
	seed     []model.Player

	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(ctx context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byPseudo:              make(map[string]model.Player),
		metricsUpdateInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, p := range s.seed {
		if _, ok := s.byPseudo[p.Pseudo()]; ok {
			continue
		}
		s.put(p)
	}
	s.seed = nil

	metrics.SetRepositoryBackend(BackendMemory)
	metrics.UpdatePlayersTotal(len(s.byPseudo))

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)

	return s
}

// put inserts p into both indexes. Caller holds the write lock.
func (s *TreapStore) put(p model.Player) {
	s.byPseudo[p.Pseudo()] = p
	s.root = insert(s.root, p, rand.Uint64())
}

// replace swaps the stored player for p. Caller holds the write lock.
func (s *TreapStore) replace(old, p model.Player) {
	s.root = deleteNode(s.root, old)
	s.put(p)
}

// ranked builds the ranked view of a stored player. Caller holds a lock.
func (s *TreapStore) ranked(p model.Player) (model.RankedPlayer, error) {
	rank := rankOf(s.root, p)
	rp, err := model.NewRankedPlayer(p, rank)
	if err != nil {
		return model.RankedPlayer{}, fmt.Errorf("rank %s: %w", p.Pseudo(), err)
	}
	return rp, nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryOperation(BackendMemory, op, metrics.SinceMs(start))
}

// Add implements Store.Add in O(log n) expected time.
func (s *TreapStore) Add(ctx context.Context, p model.Player) error {
	_, err := s.AddRanked(ctx, p)
	return err
}

// AddRanked inserts p and returns its rank under the same write lock.
func (s *TreapStore) AddRanked(ctx context.Context, p model.Player) (model.RankedPlayer, error) {
	defer observe("add", time.Now())

	if err := ctx.Err(); err != nil {
		return model.RankedPlayer{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPseudo[p.Pseudo()]; ok {
		return model.RankedPlayer{}, fmt.Errorf("%w: %s", model.ErrDuplicatePlayer, p.Pseudo())
	}
	s.put(p)
	return s.ranked(p)
}

// Update implements Store.Update in O(log n) expected time.
func (s *TreapStore) Update(ctx context.Context, p model.Player) (bool, error) {
	_, ok, err := s.UpdateRanked(ctx, p)
	return ok, err
}

// UpdateRanked replaces the points of p and returns its new rank under the
// same write lock.
func (s *TreapStore) UpdateRanked(ctx context.Context, p model.Player) (model.RankedPlayer, bool, error) {
	defer observe("update", time.Now())

	if err := ctx.Err(); err != nil {
		return model.RankedPlayer{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byPseudo[p.Pseudo()]
	if !ok {
		return model.RankedPlayer{}, false, nil
	}
	s.replace(old, p)
	rp, err := s.ranked(p)
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	return rp, true, nil
}

// By returns the ranked view of pseudo in O(log n) expected time.
func (s *TreapStore) By(ctx context.Context, pseudo string) (model.RankedPlayer, bool, error) {
	defer observe("by", time.Now())

	if err := ctx.Err(); err != nil {
		return model.RankedPlayer{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byPseudo[pseudo]
	if !ok {
		return model.RankedPlayer{}, false, nil
	}
	rp, err := s.ranked(p)
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	return rp, true, nil
}

// AllSortedByRank returns every player by an in-order walk.
func (s *TreapStore) AllSortedByRank(ctx context.Context) ([]model.RankedPlayer, error) {
	defer observe("all", time.Now())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RankedPlayer, 0, len(s.byPseudo))
	if err := collectAll(s.root, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAll drops the whole tree.
func (s *TreapStore) DeleteAll(ctx context.Context) error {
	defer observe("delete_all", time.Now())

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.root = nil
	s.byPseudo = make(map[string]model.Player)
	s.mu.Unlock()

	metrics.UpdatePlayersTotal(0)
	return nil
}

// Count returns the total number of players.
func (s *TreapStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPseudo), nil
}

// Ping always succeeds for the memory backend.
func (s *TreapStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close stops the background metrics goroutine.
func (s *TreapStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// startMetricsUpdater starts a background goroutine that refreshes the
// players gauge.
func (s *TreapStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				n, _ := s.Count(ctx)
				metrics.UpdatePlayersTotal(n)
			}
		}
	}()
}

// Backend names the storage engine.
func (s *TreapStore) Backend() string { return BackendMemory }
