package profile

import (
	"context"
	"maps"
	"sync"
	"time"
)

type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

func (m *MemoryStore) Load(_ context.Context, username string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[username]
	if !ok {
		return Profile{}, ErrNotFound
	}
	p.Skills = maps.Clone(p.Skills)
	return p, nil
}

func (m *MemoryStore) Save(_ context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var prev *Profile
	if old, ok := m.profiles[p.Username]; ok {
		prev = &old
	}
	p = stamp(p, prev, time.Now())
	p.Skills = maps.Clone(p.Skills)
	m.profiles[p.Username] = p
	return nil
}

func (m *MemoryStore) Close() error { return nil }
