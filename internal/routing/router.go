// Package routing selects the upstream model and credential pool for a turn
// and owns the call to the provider. Pool clients are built once at startup
// from configuration and shared read-only afterwards; a missing credential is
// a startup error, never a per-request surprise.
package routing

import (
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/vireoai/convo-gateway/internal/provider"
	"github.com/vireoai/convo-gateway/internal/tenant"
)

// Pool names a set of upstream credentials, kept separate per mode/tier for
// cost and billing separation.
type Pool string

const (
	PoolWorkshop Pool = "workshop"
	PoolBasic    Pool = "basic"
	PoolPremium  Pool = "premium"
)

// Route is the (model, credential pool) pair selected for a turn.
type Route struct {
	Model string
	Pool  Pool
}

const (
	modelBasic   = "gpt-4o-mini"
	modelPremium = "gpt-4o"
)

// Credentials holds the per-pool API keys. All three are required.
type Credentials struct {
	Workshop string
	Basic    string
	Premium  string
}

type Router struct {
	clients  map[Pool]provider.Client
	breakers map[Pool]*gobreaker.CircuitBreaker
}

// NewRouter builds one provider client per credential pool. It fails fast on
// a missing credential so misconfiguration surfaces at process start rather
// than on the first user request.
func NewRouter(creds Credentials, opts ...provider.Option) (*Router, error) {
	keys := map[Pool]string{
		PoolWorkshop: creds.Workshop,
		PoolBasic:    creds.Basic,
		PoolPremium:  creds.Premium,
	}

	clients := make(map[Pool]provider.Client, len(keys))
	for pool, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("missing API key for credential pool %q", pool)
		}
		clients[pool] = provider.NewOpenAIClient(key, opts...)
	}

	return newRouter(clients), nil
}

// NewRouterWithClients wires pre-built clients, for tests.
func NewRouterWithClients(clients map[Pool]provider.Client) *Router {
	return newRouter(clients)
}

func newRouter(clients map[Pool]provider.Client) *Router {
	breakers := make(map[Pool]*gobreaker.CircuitBreaker, len(clients))
	for pool := range clients {
		settings := gobreaker.Settings{
			Name:        string(pool),
			MaxRequests: 3,
			Interval:    5 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}
		breakers[pool] = gobreaker.NewCircuitBreaker(settings)
	}
	return &Router{clients: clients, breakers: breakers}
}

// RouteFor resolves the static routing table. Workshop turns ignore the
// plan; product turns get the premium pool on pro and the basic pool
// otherwise.
func (r *Router) RouteFor(mode tenant.Mode, plan tenant.Plan) Route {
	if mode == tenant.ModeWorkshop {
		return Route{Model: modelBasic, Pool: PoolWorkshop}
	}
	if plan == tenant.PlanPro {
		return Route{Model: modelPremium, Pool: PoolPremium}
	}
	return Route{Model: modelBasic, Pool: PoolBasic}
}
