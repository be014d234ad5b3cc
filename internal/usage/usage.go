package usage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one accounting record per completed upstream call attempt,
// successful or not. Append-only; costs are decimals so later aggregation is
// exact.
type Entry struct {
	ID           string
	TenantID     string
	SessionID    string
	Model        string
	Pool         string
	Plan         string
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	InputCost    decimal.Decimal
	OutputCost   decimal.Decimal
	TotalCost    decimal.Decimal
	LatencyMs    int64
	Success      bool
	UsageMissing bool
	CreatedAt    time.Time
}

type Store interface {
	LogUsage(ctx context.Context, entry *Entry) error
	GetUsageByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*Entry, error)
	GetTotalCostByTenant(ctx context.Context, tenantID string, from, to time.Time) (decimal.Decimal, error)
}
