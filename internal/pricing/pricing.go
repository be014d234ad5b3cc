package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUnknownModel means a routed model has no pricing entry. This is a
// configuration error: pricing silently at zero would under-bill, so the
// caller must fail the request loudly instead.
var ErrUnknownModel = errors.New("no pricing entry for model")

// Rate holds the per-token cost of a model in USD.
type Rate struct {
	InputPerToken  decimal.Decimal
	OutputPerToken decimal.Decimal
}

// Cost is the priced breakdown of a single completion call.
type Cost struct {
	Input  decimal.Decimal
	Output decimal.Decimal
	Total  decimal.Decimal
}

// Table maps model identifiers to their per-token rates. Rates are decimal so
// costs stay exact when summed across many usage-log entries.
type Table struct {
	rates map[string]Rate
}

func perMillion(usd string) decimal.Decimal {
	return decimal.RequireFromString(usd).Div(decimal.NewFromInt(1_000_000))
}

// DefaultTable returns the built-in pricing for the models the router can
// select. Versioned out-of-band; treat as read-only configuration.
func DefaultTable() *Table {
	return &Table{rates: map[string]Rate{
		"gpt-4o": {
			InputPerToken:  perMillion("2.50"),
			OutputPerToken: perMillion("10.00"),
		},
		"gpt-4o-mini": {
			InputPerToken:  perMillion("0.15"),
			OutputPerToken: perMillion("0.60"),
		},
	}}
}

// NewTable builds a table from explicit rates, for tests and overrides.
func NewTable(rates map[string]Rate) *Table {
	return &Table{rates: rates}
}

// Price computes the exact cost of a call from its token counts.
func (t *Table) Price(model string, inputTokens, outputTokens int) (Cost, error) {
	rate, ok := t.rates[model]
	if !ok {
		return Cost{}, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}

	in := rate.InputPerToken.Mul(decimal.NewFromInt(int64(inputTokens)))
	out := rate.OutputPerToken.Mul(decimal.NewFromInt(int64(outputTokens)))

	return Cost{
		Input:  in,
		Output: out,
		Total:  in.Add(out),
	}, nil
}
