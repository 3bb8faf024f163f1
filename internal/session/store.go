// Package session holds per-conversation input state between the steps of
// a multi-step command.
package session

import (
	"sync"
	"time"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/constants"
)

type item[T any] struct {
	value   T
	expires time.Time
}

// Store maps session ids to values that expire after ttl without a Put.
type Store[T any] struct {
	mu    sync.Mutex
	items map[string]item[T]
	ttl   time.Duration
	clock clock.Clock
}

func NewStore[T any](ttl time.Duration, c clock.Clock) *Store[T] {
	if ttl <= 0 {
		ttl = constants.DefaultSessionTTL
	}
	if c == nil {
		c = clock.System{}
	}
	return &Store[T]{items: make(map[string]item[T]), ttl: ttl, clock: c}
}

// Get returns the live value for id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	if !s.clock.Now().Before(it.expires) {
		delete(s.items, id)
		var zero T
		return zero, false
	}
	return it.value, true
}

// Put stores value and restarts id's expiry.
func (s *Store[T]) Put(id string, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = item[T]{value: value, expires: s.clock.Now().Add(s.ttl)}
}

func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store[T]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	n := 0
	for id, it := range s.items {
		if !now.Before(it.expires) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sessions, expired or not.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
