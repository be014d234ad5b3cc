package profile

import (
	"context"
	"sync"
)

// MemoryStore keeps profiles in process memory, for local development and
// tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]BusinessProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]BusinessProfile)}
}

func (s *MemoryStore) GetByTenant(_ context.Context, tenantID string) (*BusinessProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (s *MemoryStore) Upsert(_ context.Context, p *BusinessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.TenantID] = *p
	return nil
}
