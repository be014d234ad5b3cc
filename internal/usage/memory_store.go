package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps usage entries in process memory, for local development
// and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) LogUsage(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *MemoryStore) GetUsageByTenant(_ context.Context, tenantID string, from, to time.Time) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Entry
	for _, e := range s.entries {
		if e.TenantID == tenantID && !e.CreatedAt.Before(from) && !e.CreatedAt.After(to) {
			copied := *e
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetTotalCostByTenant(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error) {
	entries, err := s.GetUsageByTenant(ctx, tenantID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.TotalCost)
	}
	return total, nil
}
