package store

import (
	"context"
	"sync"
	"time"
)

// Closer is anything the registry tears down on expiry.
type Closer interface {
	Close()
}

type slot[T Closer] struct {
	value    T
	clientIP string
	lastSeen time.Time
}

// Sessions holds live sessions by id. Entries not touched within the TTL
// are closed and dropped by Sweep.
type Sessions[T Closer] struct {
	mu      sync.Mutex
	entries map[string]*slot[T]
	ttl     time.Duration
	now     func() time.Time
}

func NewSessions[T Closer](ttl time.Duration) *Sessions[T] {
	return &Sessions[T]{
		entries: make(map[string]*slot[T]),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put registers v under id, closing any session it replaces.
func (s *Sessions[T]) Put(id, clientIP string, v T) {
	s.mu.Lock()
	old, existed := s.entries[id]
	s.entries[id] = &slot[T]{value: v, clientIP: clientIP, lastSeen: s.now()}
	s.mu.Unlock()
	if existed {
		old.value.Close()
	}
}

// Get returns the session and refreshes its last-seen time.
func (s *Sessions[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		var zero T
		return zero, false
	}
	e.lastSeen = s.now()
	return e.value, true
}

// ClientIP returns the address the session was created from.
func (s *Sessions[T]) ClientIP(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e.clientIP
	}
	return ""
}

// Delete closes and removes the session. It reports whether it existed.
func (s *Sessions[T]) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		e.value.Close()
	}
	return ok
}

func (s *Sessions[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep closes expired sessions and returns how many were removed.
func (s *Sessions[T]) Sweep() int {
	s.mu.Lock()
	now := s.now()
	var expired []T
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			expired = append(expired, e.value)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
	for _, v := range expired {
		v.Close()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done, then closes everything.
func (s *Sessions[T]) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case <-t.C:
			s.Sweep()
		}
	}
}

func (s *Sessions[T]) CloseAll() {
	s.mu.Lock()
	all := make([]T, 0, len(s.entries))
	for id, e := range s.entries {
		all = append(all, e.value)
		delete(s.entries, id)
	}
	s.mu.Unlock()
	for _, v := range all {
		v.Close()
	}
}
