package tenant

import "time"

// Plan is the subscription tier of a tenant. The zero value is not valid;
// use ParsePlan when reading from storage or request input.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// ParsePlan maps a stored plan string onto a known Plan. Unknown values
// collapse to the free tier so a bad row can never grant unlimited access.
func ParsePlan(s string) Plan {
	switch Plan(s) {
	case PlanPro:
		return PlanPro
	default:
		return PlanFree
	}
}

func (p Plan) String() string { return string(p) }

// Mode is the conversational context a turn runs in. Workshop conversations
// are anonymous and use a fixed prompt; product conversations carry tenant
// configuration.
type Mode string

const (
	ModeWorkshop Mode = "workshop"
	ModeProduct  Mode = "product"
)

// ParseMode maps request input onto a known Mode, defaulting to product.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeWorkshop:
		return ModeWorkshop
	default:
		return ModeProduct
	}
}

func (m Mode) String() string { return string(m) }

// Subscription is the per-tenant quota state. MessagesToday is only
// meaningful for free-plan tenants and resets lazily on the first
// reservation after a calendar-day boundary.
type Subscription struct {
	TenantID        string
	Plan            Plan
	MessagesToday   int
	LastMessageDate time.Time
}
