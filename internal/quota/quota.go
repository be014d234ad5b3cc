// Package quota is the admission gate for chat turns: it decides whether a
// tenant may send a message today and reserves one unit of the daily
// free-tier allowance. The reservation happens before the upstream call and
// is never refunded, even when that call fails. That is deliberate: refunding
// on failure would let a client farm retries into unmetered usage.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/vireoai/convo-gateway/internal/tenant"
)

const (
	// DefaultDailyLimit is the free-plan message allowance per calendar day.
	DefaultDailyLimit = 5

	// UnlimitedRemaining is the remaining-count sentinel reported for plans
	// that are exempt from the counter.
	UnlimitedRemaining = 999999
)

var (
	// ErrLimitReached is returned by Store.ReserveFree when the conditional
	// increment finds the day's allowance already spent.
	ErrLimitReached = errors.New("daily message limit reached")

	// ErrTenantNotFound is returned by Store.GetSubscription for tenants
	// with no subscription row. The gate treats them as fresh free tenants.
	ErrTenantNotFound = errors.New("tenant subscription not found")
)

// Store persists subscription state. ReserveFree must perform the
// check-and-increment as one atomic conditional update; a read followed by a
// separate write loses updates under concurrent requests from the same
// tenant.
type Store interface {
	GetSubscription(ctx context.Context, tenantID string) (*tenant.Subscription, error)

	// ReserveFree atomically increments the tenant's daily counter if it is
	// below limit (resetting it first when the stored date is before today)
	// and returns the new count. Returns ErrLimitReached when no unit is
	// available.
	ReserveFree(ctx context.Context, tenantID string, limit int) (int, error)
}

// Reservation is the outcome of an admission check.
type Reservation struct {
	Allowed   bool
	Remaining int
	Plan      tenant.Plan
}

type Gate struct {
	store Store
	limit int
}

func NewGate(store Store, dailyLimit int) *Gate {
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyLimit
	}
	return &Gate{store: store, limit: dailyLimit}
}

// Reserve admits or rejects one message for the tenant. Pro tenants pass
// without touching the counter. Free tenants (including tenants with no
// stored state) consume one unit of today's allowance.
func (g *Gate) Reserve(ctx context.Context, tenantID string) (Reservation, error) {
	plan := tenant.PlanFree

	sub, err := g.store.GetSubscription(ctx, tenantID)
	switch {
	case err == nil:
		plan = sub.Plan
	case errors.Is(err, ErrTenantNotFound):
		// fresh free tenant
	default:
		return Reservation{}, fmt.Errorf("failed to load subscription: %w", err)
	}

	if plan == tenant.PlanPro {
		return Reservation{Allowed: true, Remaining: UnlimitedRemaining, Plan: plan}, nil
	}

	count, err := g.store.ReserveFree(ctx, tenantID, g.limit)
	if err != nil {
		if errors.Is(err, ErrLimitReached) {
			return Reservation{Allowed: false, Remaining: 0, Plan: plan}, nil
		}
		return Reservation{}, fmt.Errorf("failed to reserve quota: %w", err)
	}

	remaining := g.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Reservation{Allowed: true, Remaining: remaining, Plan: plan}, nil
}
