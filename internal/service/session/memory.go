package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/puppettale/backend/internal/metrics"
)

type entry struct {
	state    State
	lastSeen time.Time
}

// MemoryStore keeps session state in a mutex-guarded map and evicts idle
// sessions through Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	entries  map[string]*entry
	debounce time.Duration
	idleTTL  time.Duration
	now      func() time.Time
}

// MemoryOption customises a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used to stamp activity for eviction.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates an in-process store. Non-positive durations fall back
// to the package defaults.
func NewMemoryStore(debounce, idleTTL time.Duration, opts ...MemoryOption) *MemoryStore {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	s := &MemoryStore{
		entries:  make(map[string]*entry),
		debounce: debounce,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return State{}, false, nil
	}
	return e.state, true, nil
}

// TryTouch implements Store.
func (s *MemoryStore) TryTouch(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entryLocked(id)
	if !e.state.LastRequest.IsZero() && now.Sub(e.state.LastRequest) < s.debounce {
		return false, nil
	}
	e.state.LastRequest = now
	return true, nil
}

// Touch implements Store.
func (s *MemoryStore) Touch(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entryLocked(id).state.LastRequest = now
	return nil
}

// SetAmbience implements Store.
func (s *MemoryStore) SetAmbience(_ context.Context, id, ambienceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entryLocked(id).state.AmbienceID = ambienceID
	return nil
}

// Len reports how many sessions are currently tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle for longer than the TTL and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.idleTTL {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is cancelled.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				metrics.SessionsEvicted.Add(float64(n))
				log.Printf("[session] evicted %d idle sessions", n)
			}
		}
	}
}

// entryLocked must be called with mu held.
func (s *MemoryStore) entryLocked(id string) *entry {
	e, ok := s.entries[id]
	if !ok {
		e = &entry{}
		s.entries[id] = e
	}
	e.lastSeen = s.now()
	return e
}
