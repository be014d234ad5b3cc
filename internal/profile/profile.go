package profile

import (
	"context"
	"errors"
)

// ErrNotFound means the tenant has no business profile. Profiles are
// optional, so callers treat this as "compose without business context".
var ErrNotFound = errors.New("business profile not found")

// BusinessProfile is the tenant-authored context appended to the system
// prompt in product mode. Edited by an external profile editor; read-only
// here. Every field is optional free text.
type BusinessProfile struct {
	TenantID           string `json:"tenant_id"`
	DisplayName        string `json:"display_name"`
	Gender             string `json:"gender"`
	Country            string `json:"country"`
	BusinessName       string `json:"business_name"`
	BusinessType       string `json:"business_type"`
	TargetAudience     string `json:"target_audience"`
	BrandVoice         string `json:"brand_voice"`
	Products           string `json:"products"`
	ValueProposition   string `json:"value_proposition"`
	CustomInstructions string `json:"custom_instructions"`
}

type Store interface {
	GetByTenant(ctx context.Context, tenantID string) (*BusinessProfile, error)
	Upsert(ctx context.Context, p *BusinessProfile) error
}
