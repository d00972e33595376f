package kvstore

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     string
	expiresAt time.Time
}

type memList struct {
	ids    map[string]struct{}
	values []string
}

type memoryStore struct {
	mu    sync.Mutex
	now   func() time.Time
	kv    map[string]memEntry
	lists map[string]*memList
}

func NewMemory() Store { return newMemory(time.Now) }

func newMemory(now func() time.Time) *memoryStore {
	return &memoryStore{
		now:   now,
		kv:    make(map[string]memEntry),
		lists: make(map[string]*memList),
	}
}

func (s *memoryStore) getLocked(key string) (memEntry, bool) {
	e, ok := s.kv[key]
	if !ok {
		return memEntry{}, false
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.kv, key)
		return memEntry{}, false
	}
	return e, true
}

func (s *memoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.getLocked(key)
	return e.value, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.kv[key] = e
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	return nil
}

func (s *memoryStore) Take(_ context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.getLocked(key)
	if ok {
		delete(s.kv, key)
	}
	return e.value, ok, nil
}

func (s *memoryStore) AppendUnique(_ context.Context, listKey, itemID, value string) (bool, error) {
	if listKey == "" || itemID == "" {
		return false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[listKey]
	if !ok {
		l = &memList{ids: make(map[string]struct{})}
		s.lists[listKey] = l
	}
	if _, dup := l.ids[itemID]; dup {
		return false, nil
	}
	l.ids[itemID] = struct{}{}
	l.values = append(l.values, value)
	return true, nil
}

func (s *memoryStore) List(_ context.Context, listKey string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[listKey]
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), l.values...), nil
}

func (s *memoryStore) Close() error { return nil }
