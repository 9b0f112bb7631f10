package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/agentops/gatekeeper/internal/clock"
	"github.com/agentops/gatekeeper/service/store"
)

type entry struct {
	value     []byte
	list      [][]byte
	isList    bool
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is an in-memory implementation of store.Service with lazy TTL
// enforcement: expired keys are dropped on access rather than by a
// background sweeper. It backs tests and standalone single-process use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{entries: make(map[string]*entry)}
}

var _ store.Service = (*Store)(nil)

// live returns the entry at key, dropping it first if its ttl has lapsed.
// Callers must hold mu.
func (s *Store) live(key string) *entry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if e.expired(clock.Now()) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || e.isList {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	e := &entry{value: stored}
	if ttl > 0 {
		e.expiresAt = clock.Now().Add(ttl)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = e
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) push(key string, values [][]byte, front bool) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || !e.isList {
		e = &entry{isList: true}
		s.entries[key] = e
	}
	for _, v := range values {
		stored := make([]byte, len(v))
		copy(stored, v)
		if front {
			e.list = append([][]byte{stored}, e.list...)
		} else {
			e.list = append(e.list, stored)
		}
	}
	return nil
}

func (s *Store) LPush(_ context.Context, key string, values ...[]byte) error {
	return s.push(key, values, true)
}

func (s *Store) RPush(_ context.Context, key string, values ...[]byte) error {
	return s.push(key, values, false)
}

// bounds resolves redis-style start/stop indices against a list of length n.
func bounds(start, stop, n int64) (int64, int64) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	return start, stop
}

func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([][]byte, error) {
	if key == "" {
		return nil, store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || !e.isList {
		return nil, nil // absent list reads as empty, mirroring redis
	}
	n := int64(len(e.list))
	start, stop = bounds(start, stop, n)
	if start > stop || start >= n {
		return nil, nil
	}
	out := make([][]byte, 0, stop-start+1)
	for _, v := range e.list[start : stop+1] {
		item := make([]byte, len(v))
		copy(item, v)
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) LTrim(_ context.Context, key string, start, stop int64) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || !e.isList {
		return nil
	}
	n := int64(len(e.list))
	start, stop = bounds(start, stop, n)
	if start > stop || start >= n {
		e.list = nil
		return nil
	}
	e.list = e.list[start : stop+1]
	return nil
}

func (s *Store) LRem(_ context.Context, key string, count int64, value []byte) (int64, error) {
	if key == "" {
		return 0, store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil || !e.isList {
		return 0, nil
	}
	limit := count
	if limit < 0 {
		limit = -limit
	}
	var removed int64
	kept := e.list[:0]
	for _, v := range e.list {
		if bytes.Equal(v, value) && (count == 0 || removed < limit) {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	e.list = kept
	return removed, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return store.ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return nil
	}
	if ttl > 0 {
		e.expiresAt = clock.Now().Add(ttl)
	} else {
		e.expiresAt = time.Time{}
	}
	return nil
}
