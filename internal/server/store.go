package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"kmeansviz/kmeans"
)

var errTooManySessions = errors.New("too many sessions")

type entry struct {
	mu       sync.Mutex
	session  *kmeans.Session
	lastUsed time.Time
}

// Store keeps one clustering session per id. Entries idle for longer than
// ttl are dropped by Sweep.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	max     int
	now     func() time.Time
}

func NewStore(ttl time.Duration, max int) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ttl:     ttl,
		max:     max,
		now:     time.Now,
	}
}

// Create stores s under a new id.
func (st *Store) Create(s *kmeans.Session) (string, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	if st.max > 0 && len(st.entries) >= st.max {
		return "", errTooManySessions
	}
	id := uuid.NewString()
	st.entries[id] = &entry{session: s, lastUsed: st.now()}
	return id, nil
}

// With runs fn with exclusive access to the session stored under id.
func (st *Store) With(id string, fn func(*kmeans.Session) error) (bool, error) {
	st.mu.Lock()
	e, ok := st.entries[id]
	st.mu.Unlock()
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastUsed = st.now()
	return true, fn(e.session)
}

func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	_, ok := st.entries[id]
	delete(st.entries, id)
	return ok
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.entries)
}

// Sweep drops idle sessions and returns how many were removed.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.sweepLocked()
}

func (st *Store) sweepLocked() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl)
	removed := 0
	for id, e := range st.entries {
		if e.mu.TryLock() {
			idle := e.lastUsed.Before(cutoff)
			e.mu.Unlock()
			if idle {
				delete(st.entries, id)
				removed++
			}
		}
	}
	return removed
}
