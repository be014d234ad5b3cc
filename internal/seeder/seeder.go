package seeder

import (
	"context"
	"log"

	"github.com/vireoai/convo-gateway/internal/profile"
	"github.com/vireoai/convo-gateway/internal/quota"
	"github.com/vireoai/convo-gateway/internal/tenant"
)

const (
	TestFreeTenantID = "00000000-0000-0000-0000-000000000001"
	TestProTenantID  = "00000000-0000-0000-0000-000000000002"
)

// SeedTestTenants creates a free and a pro demo tenant plus a business
// profile for the free one, for local development behind RUN_SEED=true.
func SeedTestTenants(ctx context.Context, subs *quota.MemoryStore, profiles profile.Store) {
	subs.Put(tenant.Subscription{TenantID: TestFreeTenantID, Plan: tenant.PlanFree})
	subs.Put(tenant.Subscription{TenantID: TestProTenantID, Plan: tenant.PlanPro})

	err := profiles.Upsert(ctx, &profile.BusinessProfile{
		TenantID:         TestFreeTenantID,
		DisplayName:      "Dana",
		Country:          "Netherlands",
		BusinessName:     "Bloom & Bean",
		BusinessType:     "specialty coffee shop",
		TargetAudience:   "remote workers and students nearby",
		BrandVoice:       "warm, a little playful",
		Products:         "espresso bar, house-roasted beans, weekend brunch",
		ValueProposition: "the only roastery cafe within cycling distance",
	})
	if err != nil {
		log.Printf("[Seeder] profile may already exist, skipping: %v", err)
		return
	}
	log.Printf("[Seeder] test tenants created (free=%s pro=%s)", TestFreeTenantID, TestProTenantID)
}
