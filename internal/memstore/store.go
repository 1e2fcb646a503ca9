// Package memstore is an in-process match store used for dry runs and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"horse.fit/jachtproef/internal/reconcile"
	"horse.fit/jachtproef/internal/record"
)

// Match is a stored match plus a column owned by another writer.
type Match struct {
	reconcile.Stored
	Notes string
}

type Store struct {
	mu      sync.RWMutex
	byID    map[string]*Match
	byKey   map[record.Key]string
	order   []string
	writes  int
	lockOwn string
}

func New() *Store {
	return &Store{
		byID:  make(map[string]*Match),
		byKey: make(map[record.Key]string),
	}
}

func (s *Store) FindByKey(_ context.Context, key record.Key) (reconcile.Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[key]
	if !ok {
		return reconcile.Stored{}, reconcile.ErrNotFound
	}
	return s.byID[id].Stored, nil
}

func (s *Store) Insert(_ context.Context, match reconcile.Stored) (reconcile.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := match.Key()
	if _, exists := s.byKey[key]; exists {
		return reconcile.Stored{}, fmt.Errorf("duplicate match key %s", key)
	}

	match.ID = uuid.NewString()
	s.byID[match.ID] = &Match{Stored: match}
	s.byKey[key] = match.ID
	s.order = append(s.order, match.ID)
	s.writes++
	return match, nil
}

func (s *Store) Update(_ context.Context, id string, patch reconcile.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[id]
	if !ok {
		return reconcile.ErrNotFound
	}
	patch.Apply(&row.Stored)
	s.writes++
	return nil
}

func (s *Store) ListOpen(_ context.Context) ([]reconcile.Stored, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]reconcile.Stored, 0, len(s.order))
	for _, id := range s.order {
		row := s.byID[id]
		if row.RegistrationStatus == record.StatusClosed {
			continue
		}
		out = append(out, row.Stored)
	}
	return out, nil
}

// All returns every match in insertion order.
func (s *Store) All() []Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Match, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Get returns one match by id.
func (s *Store) Get(id string) (Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.byID[id]
	if !ok {
		return Match{}, false
	}
	return *row, true
}

// SetNotes writes the foreign column, standing in for another subsystem.
func (s *Store) SetNotes(id, notes string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.byID[id]
	if !ok {
		return false
	}
	row.Notes = notes
	return true
}

// Writes counts successful inserts and updates.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Seed loads matches as-is, assigning ids where missing. Matches are sorted by
// date so listings come back in calendar order.
func (s *Store) Seed(matches ...reconcile.Stored) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Date.Before(matches[j].Date)
	})
	for _, match := range matches {
		if match.ID == "" {
			match.ID = uuid.NewString()
		}
		s.byID[match.ID] = &Match{Stored: match}
		s.byKey[match.Key()] = match.ID
		s.order = append(s.order, match.ID)
	}
}

// TryLock takes the run lock for holder when it is free.
func (s *Store) TryLock(_ context.Context, holder string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockOwn != "" && s.lockOwn != holder {
		return false, nil
	}
	s.lockOwn = holder
	return true, nil
}

// Unlock releases the run lock if holder owns it.
func (s *Store) Unlock(_ context.Context, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lockOwn == holder {
		s.lockOwn = ""
	}
	return nil
}
