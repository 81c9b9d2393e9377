// Package service provides the ranking service the HTTP API depends on.
//
// Every write returns the freshly computed ranked view of the player: stores
// implementing repository.RankedWriter produce it atomically, other stores
// are re-read right after the write.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/ranking/internal/adapters/repository"
	"github.com/okian/ranking/internal/config"
	"github.com/okian/ranking/internal/domain/model"
	"github.com/okian/ranking/pkg/logger"
	"github.com/okian/ranking/pkg/metrics"
)

const tracerName = "github.com/okian/ranking/internal/app"

// Service implements the API dependencies for the ranking system.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	cfg    *config.Config
	opened bool // store was opened by Start and is closed by Stop

	started bool

	logger logger.Logger
	tracer trace.Tracer
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ready store. Stop does not close it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithConfig selects the backend Start opens when no store is injected.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg:    config.New(),
		tracer: otel.Tracer(tracerName),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the configured store unless one was injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.cfg)
		if err != nil {
			return fmt.Errorf("open %s store: %w", s.cfg.Backend, err)
		}
		s.store = store
		s.opened = true
	}

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.String("backend", backendOf(s.store)),
		logger.Bool("atomicRankedWrites", isRankedWriter(s.store)),
	)
	return nil
}

// Stop releases the store opened by Start.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.opened {
		if closer, ok := s.store.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				s.logger.Warn(context.Background(), "failed to close store", logger.Error(err))
			}
		}
		s.store = nil
		s.opened = false
	}

	s.started = false
	s.logger.Info(context.Background(), "ranking service stopped")
}

func (s *Service) repo() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

func (s *Service) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "Service."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Add stores a new player and returns its computed rank.
func (s *Service) Add(ctx context.Context, p model.Player) (_ model.RankedPlayer, err error) {
	ctx, span := s.span(ctx, "Add", attribute.String("player.pseudo", p.Pseudo()))
	defer func() { endSpan(span, err) }()

	store, err := s.repo()
	if err != nil {
		return model.RankedPlayer{}, err
	}

	var rp model.RankedPlayer
	if rw, ok := store.(repository.RankedWriter); ok {
		rp, err = rw.AddRanked(ctx, p)
	} else {
		rp, err = s.addThenRead(ctx, store, p)
	}

	switch {
	case errors.Is(err, model.ErrDuplicatePlayer):
		metrics.RecordPlayerRejected("duplicate")
		return model.RankedPlayer{}, err
	case errors.Is(err, model.ErrInconsistentState):
		s.inconsistent(ctx, store, "add", p.Pseudo())
		return model.RankedPlayer{}, err
	case err != nil:
		return model.RankedPlayer{}, err
	}

	metrics.RecordPlayerCreated()
	span.SetAttributes(attribute.Int("player.rank", rp.Rank()))
	s.logger.Debug(ctx, "player created",
		logger.String("pseudo", rp.Pseudo()),
		logger.Int("points", rp.Points()),
		logger.Int("rank", rp.Rank()),
	)
	return rp, nil
}

func (s *Service) addThenRead(ctx context.Context, store repository.Store, p model.Player) (model.RankedPlayer, error) {
	if err := store.Add(ctx, p); err != nil {
		return model.RankedPlayer{}, err
	}
	rp, found, err := store.By(ctx, p.Pseudo())
	if err != nil {
		return model.RankedPlayer{}, err
	}
	if !found {
		return model.RankedPlayer{}, fmt.Errorf("%w: added player %q cannot be read back", model.ErrInconsistentState, p.Pseudo())
	}
	return rp, nil
}

// Update replaces the points of an existing player and returns its new rank.
// The boolean is false when no player has this pseudo.
func (s *Service) Update(ctx context.Context, p model.Player) (_ model.RankedPlayer, _ bool, err error) {
	ctx, span := s.span(ctx, "Update", attribute.String("player.pseudo", p.Pseudo()))
	defer func() { endSpan(span, err) }()

	store, err := s.repo()
	if err != nil {
		return model.RankedPlayer{}, false, err
	}

	var (
		rp    model.RankedPlayer
		found bool
	)
	if rw, ok := store.(repository.RankedWriter); ok {
		rp, found, err = rw.UpdateRanked(ctx, p)
	} else {
		rp, found, err = s.updateThenRead(ctx, store, p)
	}

	switch {
	case errors.Is(err, model.ErrInconsistentState):
		s.inconsistent(ctx, store, "update", p.Pseudo())
		return model.RankedPlayer{}, false, err
	case err != nil:
		return model.RankedPlayer{}, false, err
	case !found:
		metrics.RecordPlayerRejected("not_found")
		return model.RankedPlayer{}, false, nil
	}

	metrics.RecordPlayerUpdated()
	span.SetAttributes(attribute.Int("player.rank", rp.Rank()))
	s.logger.Debug(ctx, "player updated",
		logger.String("pseudo", rp.Pseudo()),
		logger.Int("points", rp.Points()),
		logger.Int("rank", rp.Rank()),
	)
	return rp, true, nil
}

func (s *Service) updateThenRead(ctx context.Context, store repository.Store, p model.Player) (model.RankedPlayer, bool, error) {
	ok, err := store.Update(ctx, p)
	if err != nil || !ok {
		return model.RankedPlayer{}, false, err
	}
	rp, found, err := store.By(ctx, p.Pseudo())
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	if !found {
		return model.RankedPlayer{}, false, fmt.Errorf("%w: updated player %q cannot be read back", model.ErrInconsistentState, p.Pseudo())
	}
	return rp, true, nil
}

func (s *Service) inconsistent(ctx context.Context, store repository.Store, op, pseudo string) {
	metrics.RecordInconsistentRead()
	metrics.RecordErrorByComponent("service", "inconsistent_state")
	s.logger.Error(ctx, "written player missing on re-read",
		logger.String("op", op),
		logger.String("pseudo", pseudo),
		logger.String("backend", backendOf(store)),
	)
}

// By returns the ranked view of pseudo.
func (s *Service) By(ctx context.Context, pseudo string) (_ model.RankedPlayer, _ bool, err error) {
	ctx, span := s.span(ctx, "By", attribute.String("player.pseudo", pseudo))
	defer func() { endSpan(span, err) }()

	store, err := s.repo()
	if err != nil {
		return model.RankedPlayer{}, false, err
	}
	return store.By(ctx, pseudo)
}

// AllSortedByRank returns every player ordered by ascending rank.
func (s *Service) AllSortedByRank(ctx context.Context) (_ []model.RankedPlayer, err error) {
	ctx, span := s.span(ctx, "AllSortedByRank")
	defer func() { endSpan(span, err) }()

	store, err := s.repo()
	if err != nil {
		return nil, err
	}
	all, err := store.AllSortedByRank(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("players.count", len(all)))
	return all, nil
}

// DeleteAll removes every player.
func (s *Service) DeleteAll(ctx context.Context) (err error) {
	ctx, span := s.span(ctx, "DeleteAll")
	defer func() { endSpan(span, err) }()

	store, err := s.repo()
	if err != nil {
		return err
	}
	if err := store.DeleteAll(ctx); err != nil {
		return err
	}

	metrics.RecordDeleteAll()
	metrics.UpdatePlayersTotal(0)
	s.logger.Info(ctx, "all players deleted")
	return nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	store, err := s.repo()
	if err != nil {
		return err
	}
	if p, ok := store.(repository.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}

	if s.started {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		stats["backend"] = backendOf(s.store)
		stats["atomicRankedWrites"] = isRankedWriter(s.store)
		if n, err := s.store.Count(ctx); err == nil {
			stats["totalPlayers"] = n
			metrics.UpdatePlayersTotal(n)
		} else {
			stats["countError"] = err.Error()
		}
	}

	return stats
}

func backendOf(store repository.Store) string {
	if b, ok := store.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return "custom"
}

func isRankedWriter(store repository.Store) bool {
	_, ok := store.(repository.RankedWriter)
	return ok
}
