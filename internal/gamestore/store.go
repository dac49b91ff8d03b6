package gamestore

import (
	"context"
	"sync"

	"github.com/kapu/nodechess/internal/obslog"
	"go.uber.org/zap"
)

// Persister writes the whole collection to durable storage and reads it back
// at startup. Implementations must tolerate a missing snapshot on Load.
type Persister interface {
	Load(ctx context.Context) (Collection, error)
	Save(ctx context.Context, games Collection) error
}

type watcherEntry struct {
	id int
	fn func(GameRecord)
}

// Store owns the local game collection. Every mutation funnels through Merge
// or Revert so persistence and change notification stay centralized.
type Store struct {
	mu     sync.RWMutex
	games  Collection
	policy MergePolicy

	persist Persister

	cbM      sync.RWMutex
	watchers []watcherEntry
	nextCbID int
}

type Option func(*Store)

// WithPolicy replaces the default last-write-wins merge policy.
func WithPolicy(p MergePolicy) Option {
	return func(s *Store) {
		if p != nil {
			s.policy = p
		}
	}
}

func New(persist Persister, opts ...Option) *Store {
	s := &Store{
		games:   make(Collection),
		policy:  LastWriteWins,
		persist: persist,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Hydrate replaces the in-memory collection with the durable snapshot. Called
// once at startup, before any network activity, so the last known state is
// visible even offline.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	games, err := s.persist.Load(ctx)
	if err != nil {
		return err
	}
	if games == nil {
		games = make(Collection)
	}
	s.mu.Lock()
	s.games = games
	s.mu.Unlock()
	obslog.L().Info("store_hydrate", zap.Int("games", len(games)))
	return nil
}

// GetAll returns a snapshot copy of the collection.
func (s *Store) GetAll() Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games.Clone()
}

// Get returns the record for id, if any.
func (s *Store) Get(id string) (GameRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	return g, ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// Merge inserts or replaces the entry for rec.ID subject to the merge policy,
// persists the updated collection, and notifies observers. Returns whether
// the record was accepted. Persistence is best-effort: a write failure is
// logged, never surfaced.
func (s *Store) Merge(ctx context.Context, rec GameRecord) bool {
	if rec.ID == "" {
		return false
	}

	s.mu.Lock()
	var current *GameRecord
	if cur, ok := s.games[rec.ID]; ok {
		current = &cur
	}
	if !s.policy(current, rec) {
		s.mu.Unlock()
		obslog.L().Debug("store_merge_rejected",
			zap.String("game_id", rec.ID),
			zap.Int("turns", rec.Turns),
		)
		return false
	}
	s.games[rec.ID] = rec
	snapshot := s.games.Clone()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	s.notify(rec)
	return true
}

// Replace inserts or replaces the entry for rec.ID unconditionally,
// bypassing the merge policy. Lifecycle exchanges (create, resign, rematch)
// use it: a rematch legitimately restarts the turn counter under the same id,
// which a replace-if-newer policy would refuse.
func (s *Store) Replace(ctx context.Context, rec GameRecord) bool {
	if rec.ID == "" {
		return false
	}

	s.mu.Lock()
	s.games[rec.ID] = rec
	snapshot := s.games.Clone()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	s.notify(rec)
	return true
}

// Revert restores prev only when the record for prev.ID still equals expect.
// This is the rollback guard: if a fresher record superseded the optimistic
// one in the meantime, the revert becomes a no-op.
func (s *Store) Revert(ctx context.Context, expect, prev GameRecord) bool {
	if prev.ID == "" || prev.ID != expect.ID {
		return false
	}

	s.mu.Lock()
	cur, ok := s.games[prev.ID]
	if !ok || cur != expect {
		s.mu.Unlock()
		obslog.L().Info("store_revert_skipped", zap.String("game_id", prev.ID))
		return false
	}
	s.games[prev.ID] = prev
	snapshot := s.games.Clone()
	s.mu.Unlock()

	s.save(ctx, snapshot)
	s.notify(prev)
	return true
}

// OnChange registers a callback invoked with each accepted record. Returns an
// id for RemoveOnChange.
func (s *Store) OnChange(fn func(GameRecord)) int {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	s.nextCbID++
	s.watchers = append(s.watchers, watcherEntry{id: s.nextCbID, fn: fn})
	return s.nextCbID
}

func (s *Store) RemoveOnChange(id int) {
	s.cbM.Lock()
	defer s.cbM.Unlock()
	for i, w := range s.watchers {
		if w.id == id {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			break
		}
	}
}

func (s *Store) save(ctx context.Context, snapshot Collection) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(ctx, snapshot); err != nil {
		obslog.L().Error("store_persist_error", zap.Error(err))
	}
}

func (s *Store) notify(rec GameRecord) {
	s.cbM.RLock()
	watchers := make([]watcherEntry, len(s.watchers))
	copy(watchers, s.watchers)
	s.cbM.RUnlock()
	for _, w := range watchers {
		if w.fn != nil {
			w.fn(rec)
		}
	}
}
