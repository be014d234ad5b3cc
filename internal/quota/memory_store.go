package quota

import (
	"context"
	"sync"
	"time"

	"github.com/vireoai/convo-gateway/internal/tenant"
)

// MemoryStore keeps subscription state in process memory with the same
// reservation semantics as the Postgres store. Used for local development
// without a database and as the vehicle for concurrency tests.
type MemoryStore struct {
	mu   sync.Mutex
	subs map[string]*tenant.Subscription
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subs: make(map[string]*tenant.Subscription),
		now:  time.Now,
	}
}

// Put seeds or replaces a subscription row.
func (s *MemoryStore) Put(sub tenant.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := sub
	s.subs[sub.TenantID] = &copied
}

func (s *MemoryStore) GetSubscription(_ context.Context, tenantID string) (*tenant.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[tenantID]
	if !ok {
		return nil, ErrTenantNotFound
	}
	copied := *sub
	return &copied, nil
}

func (s *MemoryStore) ReserveFree(_ context.Context, tenantID string, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := dateOf(s.now())

	sub, ok := s.subs[tenantID]
	if !ok {
		sub = &tenant.Subscription{TenantID: tenantID, Plan: tenant.PlanFree}
		s.subs[tenantID] = sub
	}

	effective := sub.MessagesToday
	if !dateOf(sub.LastMessageDate).Equal(today) {
		effective = 0
	}
	if effective >= limit {
		return 0, ErrLimitReached
	}

	sub.MessagesToday = effective + 1
	sub.LastMessageDate = today
	return sub.MessagesToday, nil
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
