package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/theakshaypant/calmerge/internal/api"
	"github.com/theakshaypant/calmerge/internal/core"
)

// Store orchestrates backend calls and applies their results to State.
// It is safe for concurrent use.
type Store struct {
	backend core.Backend
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	seq         uint64
	subscribers []func(State)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger overrides slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithActiveSources sets the initial active source set.
func WithActiveSources(ids []string) Option {
	return func(s *Store) { s.state = reduce(s.state, activeSet{ids: ids}) }
}

// WithSelected sets the initially selected date.
func WithSelected(t time.Time) Option {
	return func(s *Store) { s.state.Selected = t }
}

// New creates a store over backend. The selected date defaults to now.
func New(backend core.Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		logger:  slog.Default(),
		state:   State{Selected: time.Now()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every new state.
func (s *Store) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) dispatch(a action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	snapshot := s.state.clone()
	subscribers := slices.Clone(s.subscribers)
	s.mu.Unlock()

	for _, fn := range subscribers {
		fn(snapshot)
	}
}

// FetchEvents replaces the event list with the backend's aggregate for the
// active sources. On failure the previous list is kept. When fetches
// overlap, only the most recently started one is applied.
func (s *Store) FetchEvents(ctx context.Context) error {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	active := append([]string(nil), s.state.Active...)
	s.mu.Unlock()

	s.dispatch(fetchStarted{})

	agg, err := s.backend.Events(ctx, active)

	s.mu.Lock()
	stale := seq != s.seq
	s.mu.Unlock()
	if stale {
		s.logger.Debug("discarding stale events response", "seq", seq)
		return err
	}

	if err != nil {
		s.logger.Warn("fetching events failed", "err", err)
		s.dispatch(fetchFailed{})
		return err
	}
	s.dispatch(fetchSucceeded{agg: agg})
	s.logger.Debug("events fetched", "count", len(agg.Events),
		"apple_connected", agg.AppleConnected, "microsoft_connected", agg.MicrosoftConnected)
	return nil
}

// FetchCalendarSources replaces the source list.
func (s *Store) FetchCalendarSources(ctx context.Context) error {
	sources, err := s.backend.CalendarSources(ctx)
	if err != nil {
		s.logger.Warn("fetching calendar sources failed", "err", err)
		return err
	}
	s.dispatch(sourcesLoaded{sources: sources})
	return nil
}

// ToggleSource flips id in the active set and re-fetches.
func (s *Store) ToggleSource(ctx context.Context, id string) error {
	s.dispatch(sourceToggled{id: id})
	return s.FetchEvents(ctx)
}

// SetActiveSources replaces the active set without fetching.
func (s *Store) SetActiveSources(ids []string) {
	s.dispatch(activeSet{ids: ids})
}

// SelectDate sets the day and month the views are scoped to.
func (s *Store) SelectDate(t time.Time) {
	s.dispatch(dateSelected{t: t})
}

// refresh re-fetches after a mutation, whatever its outcome. The mutation's
// own error is what the caller gets.
func (s *Store) refresh(ctx context.Context, op string, err error) error {
	if err != nil {
		s.logger.Warn(op+" failed", "err", err)
	}
	if ferr := s.FetchEvents(ctx); ferr != nil {
		s.logger.Debug("refresh after "+op+" failed", "err", ferr)
	}
	return err
}

// CreateEvent validates in, creates it and re-fetches.
func (s *Store) CreateEvent(ctx context.Context, in core.EventInput) (core.Event, error) {
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}
	e, err := s.backend.CreateEvent(ctx, in)
	return e, s.refresh(ctx, "create event", err)
}

// UpdateEvent validates patch, applies it and re-fetches.
func (s *Store) UpdateEvent(ctx context.Context, id string, patch core.EventPatch) (core.Event, error) {
	if err := patch.Validate(); err != nil {
		return core.Event{}, err
	}
	e, err := s.backend.UpdateEvent(ctx, id, patch)
	return e, s.refresh(ctx, "update event", err)
}

// DeleteEvent deletes id and re-fetches.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.refresh(ctx, "delete event", s.backend.DeleteEvent(ctx, id))
}

// RespondToInvite answers an invitation and re-fetches.
func (s *Store) RespondToInvite(ctx context.Context, id string, status core.InviteStatus) error {
	parsed, ok := core.ParseInviteStatus(string(status))
	if !ok {
		return &core.ValidationError{Field: "status", Reason: "must be pending, accepted or declined"}
	}
	return s.refresh(ctx, "respond to invite", s.backend.RespondToInvite(ctx, id, parsed))
}

// record stores the outcome of a provider call in LastError.
func (s *Store) record(p core.Provider, op string, err error) error {
	if err != nil {
		s.logger.Warn(op+" failed", "provider", p, "err", err)
		s.dispatch(providerResult{provider: p, message: api.Message(err)})
		return err
	}
	s.dispatch(providerResult{provider: p})
	return nil
}

// providerMutation records the outcome of a provider write and re-fetches
// the aggregate when it succeeded.
func (s *Store) providerMutation(ctx context.Context, p core.Provider, op string, err error) error {
	if err := s.record(p, op, err); err != nil {
		return err
	}
	if ferr := s.FetchEvents(ctx); ferr != nil {
		s.logger.Debug("refresh after "+op+" failed", "err", ferr)
	}
	return nil
}
