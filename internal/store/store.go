package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"autotrader/internal/profile"
)

var (
	ErrNotFound    = errors.New("profile not found")
	ErrDuplicateID = errors.New("duplicate profile id")
)

// Persister is the external persistence collaborator. The store itself holds
// no file-system or network knowledge; it loads once at boot and flushes
// dirty families on a schedule.
type Persister interface {
	LoadProfiles(ctx context.Context, family profile.Family) ([]profile.Profile, error)
	SaveProfiles(ctx context.Context, family profile.Family, items []profile.Profile) error
	LoadWatchlists(ctx context.Context) ([]profile.Watchlist, error)
	SaveWatchlists(ctx context.Context, items []profile.Watchlist) error
}

// Store holds the ordered per-family profile collections. It is the only
// mutable shared state between the evaluation loop and the editing API, so
// every operation runs under one mutex.
type Store struct {
	mu         sync.Mutex
	families   map[profile.Family][]*profile.Profile
	watchlists []profile.Watchlist

	persist    Persister
	logger     *zap.Logger
	dirty      map[profile.Family]bool
	dirtyLists bool
}

func New(persist Persister, logger *zap.Logger) *Store {
	families := map[profile.Family][]*profile.Profile{}
	for _, f := range profile.Families() {
		families[f] = nil
	}
	return &Store{
		families: families,
		persist:  persist,
		logger:   logger,
		dirty:    map[profile.Family]bool{},
	}
}

// Load pulls every family from the persistence collaborator.
func (s *Store) Load(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range profile.Families() {
		items, err := s.persist.LoadProfiles(ctx, f)
		if err != nil {
			return fmt.Errorf("load %s profiles: %w", f, err)
		}
		rows := make([]*profile.Profile, 0, len(items))
		for i := range items {
			p := items[i]
			rows = append(rows, &p)
		}
		s.families[f] = rows
	}
	lists, err := s.persist.LoadWatchlists(ctx)
	if err != nil {
		return fmt.Errorf("load watchlists: %w", err)
	}
	s.watchlists = lists
	return nil
}

// Flush writes every dirty family back. Safe to call from a cron tick; a
// failed save keeps the family dirty for the next attempt.
func (s *Store) Flush(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range profile.Families() {
		if !s.dirty[f] {
			continue
		}
		items := make([]profile.Profile, 0, len(s.families[f]))
		for _, p := range s.families[f] {
			items = append(items, *p)
		}
		if err := s.persist.SaveProfiles(ctx, f, items); err != nil {
			return fmt.Errorf("save %s profiles: %w", f, err)
		}
		s.dirty[f] = false
	}
	if s.dirtyLists {
		if err := s.persist.SaveWatchlists(ctx, append([]profile.Watchlist(nil), s.watchlists...)); err != nil {
			return fmt.Errorf("save watchlists: %w", err)
		}
		s.dirtyLists = false
	}
	return nil
}

func (s *Store) Add(p *profile.Profile) error {
	if p == nil {
		return fmt.Errorf("nil profile")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(p.Family, p.ID) != nil {
		return ErrDuplicateID
	}
	s.families[p.Family] = append(s.families[p.Family], p)
	s.dirty[p.Family] = true
	return nil
}

func (s *Store) Get(family profile.Family, id string) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(family, id)
	if p == nil {
		return profile.Profile{}, ErrNotFound
	}
	return *p, nil
}

// List returns value copies in insertion order.
func (s *Store) List(family profile.Family) []profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]profile.Profile, 0, len(s.families[family]))
	for _, p := range s.families[family] {
		out = append(out, *p)
	}
	return out
}

// All returns every profile across families, each family in insertion order.
// The evaluator iterates this per event.
func (s *Store) All() []profile.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []profile.Profile
	for _, f := range profile.Families() {
		for _, p := range s.families[f] {
			out = append(out, *p)
		}
	}
	return out
}

// Update merges via the supplied mutator under the store lock and stamps
// UpdatedAt. The mutator runs on a draft copy that replaces the stored
// profile only when it returns nil, so a rejected edit leaves the profile
// untouched; mutators must replace slices rather than edit them in place.
// Execution bookkeeping fields are the evaluator's; editing callers must not
// touch them.
func (s *Store) Update(family profile.Family, id string, mutate func(*profile.Profile) error) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.families[family]
	for i, p := range rows {
		if p.ID != id {
			continue
		}
		draft := *p
		if err := mutate(&draft); err != nil {
			return profile.Profile{}, err
		}
		draft.UpdatedAt = time.Now().UTC()
		rows[i] = &draft
		s.dirty[family] = true
		return draft, nil
	}
	return profile.Profile{}, ErrNotFound
}

func (s *Store) Remove(family profile.Family, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.families[family]
	for i, p := range rows {
		if p.ID == id {
			s.families[family] = append(rows[:i], rows[i+1:]...)
			s.dirty[family] = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) ToggleActive(family profile.Family, id string) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(family, id)
	if p == nil {
		return profile.Profile{}, ErrNotFound
	}
	p.Active = !p.Active
	p.UpdatedAt = time.Now().UTC()
	s.dirty[family] = true
	return *p, nil
}

// Duplicate clones with fresh ids, zeroed bookkeeping, inactive.
func (s *Store) Duplicate(family profile.Family, id string) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(family, id)
	if p == nil {
		return profile.Profile{}, ErrNotFound
	}
	dup := p.Clone()
	dup.Name = p.Name + " (copy)"
	s.families[family] = append(s.families[family], dup)
	s.dirty[family] = true
	return *dup, nil
}

// RecordAttempt advances the cooldown clock. Called by the evaluator on every
// settled dispatch attempt, success or failure; later settle times win.
func (s *Store) RecordAttempt(family profile.Family, id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(family, id)
	if p == nil {
		return
	}
	if p.LastExecutedAt == nil || at.After(*p.LastExecutedAt) {
		t := at
		p.LastExecutedAt = &t
	}
	s.dirty[family] = true
}

// RecordSuccess counts one successful dispatch against the execution cap.
func (s *Store) RecordSuccess(family profile.Family, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.findLocked(family, id)
	if p == nil {
		return
	}
	p.ExecutionCount++
	s.dirty[family] = true
}

func (s *Store) Watchlists() []profile.Watchlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]profile.Watchlist(nil), s.watchlists...)
}

func (s *Store) UpsertWatchlist(w profile.Watchlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.watchlists {
		if s.watchlists[i].ID == w.ID {
			s.watchlists[i] = w
			s.dirtyLists = true
			return
		}
	}
	s.watchlists = append(s.watchlists, w)
	s.dirtyLists = true
}

func (s *Store) RemoveWatchlist(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.watchlists {
		if s.watchlists[i].ID == id {
			s.watchlists = append(s.watchlists[:i], s.watchlists[i+1:]...)
			s.dirtyLists = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) findLocked(family profile.Family, id string) *profile.Profile {
	for _, p := range s.families[family] {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Store) logWarn(msg string, fields ...zap.Field) {
	if s.logger != nil {
		s.logger.Warn(msg, fields...)
	}
}
