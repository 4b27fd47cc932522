package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry describes one session.
type Entry struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Remote    string     `json:"remote,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the session has not ended.
func (e Entry) Active() bool {
	return e.EndedAt == nil
}

// Store is a thread-safe session directory keyed by session ID.
// A background goroutine (Run) periodically evicts ended sessions older
// than the configured TTL. Active sessions are never evicted.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store that keeps ended sessions for ttl.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Start records a new active session.
func (s *Store) Start(id, username, remote string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = &Entry{
		ID:        id,
		Username:  username,
		Remote:    remote,
		StartedAt: s.now(),
	}
}

// End marks the session ended. Unknown IDs are ignored.
func (s *Store) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[id]; ok && e.EndedAt == nil {
		t := s.now()
		e.EndedAt = &t
	}
}

// Get returns a copy of the Entry for id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns active sessions and sessions that ended within the TTL,
// oldest first. Expired entries not yet evicted are excluded.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cutoff := s.now().Add(-s.ttl)
	out := make([]Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.EndedAt == nil || e.EndedAt.After(cutoff) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Count returns the total number of entries currently held, including
// expired ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes sessions that ended before now minus TTL and returns the
// number removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if e.EndedAt != nil && !e.EndedAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the TTL
// (minimum 1 second) and blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted ended sessions", "count", n)
			}
		}
	}
}
