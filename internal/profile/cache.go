package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheTTL = 5 * time.Minute

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (p *BusinessProfile) MarshalBinary() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (p *BusinessProfile) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, p)
}

// CachedStore is a read-through Redis cache in front of another Store.
// Profiles change rarely and a stale read only delays a prompt tweak, so a
// short TTL is enough; cache errors fall through to the backing store.
type CachedStore struct {
	inner Store
	cache *redis.Client
	log   *zap.Logger
}

func NewCachedStore(inner Store, cache *redis.Client, log *zap.Logger) Store {
	return &CachedStore{inner: inner, cache: cache, log: log}
}

func cacheKey(tenantID string) string {
	return fmt.Sprintf("profile:%s", tenantID)
}

func (s *CachedStore) GetByTenant(ctx context.Context, tenantID string) (*BusinessProfile, error) {
	key := cacheKey(tenantID)

	var p BusinessProfile
	err := s.cache.Get(ctx, key).Scan(&p)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warn("profile cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}

	loaded, err := s.inner.GetByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, loaded, cacheTTL).Err(); err != nil {
		s.log.Warn("profile cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}

	return loaded, nil
}

func (s *CachedStore) Upsert(ctx context.Context, p *BusinessProfile) error {
	if err := s.inner.Upsert(ctx, p); err != nil {
		return err
	}
	if err := s.cache.Del(ctx, cacheKey(p.TenantID)).Err(); err != nil {
		s.log.Warn("profile cache invalidation failed", zap.String("tenant_id", p.TenantID), zap.Error(err))
	}
	return nil
}
