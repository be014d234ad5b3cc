package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_ExactArithmetic(t *testing.T) {
	table := NewTable(map[string]Rate{
		"test-model": {
			InputPerToken:  decimal.RequireFromString("0.0000025"),
			OutputPerToken: decimal.RequireFromString("0.00001"),
		},
	})

	cost, err := table.Price("test-model", 1000, 500)
	require.NoError(t, err)

	assert.True(t, cost.Input.Equal(decimal.RequireFromString("0.0025")), "input cost: %s", cost.Input)
	assert.True(t, cost.Output.Equal(decimal.RequireFromString("0.005")), "output cost: %s", cost.Output)
	assert.True(t, cost.Total.Equal(decimal.RequireFromString("0.0075")), "total cost: %s", cost.Total)
}

func TestPrice_Additive(t *testing.T) {
	table := DefaultTable()

	calls := [][2]int{{120, 350}, {4096, 1}, {0, 0}, {77, 9000}, {1, 1}}

	summed := decimal.Zero
	totalIn, totalOut := 0, 0
	for _, c := range calls {
		cost, err := table.Price("gpt-4o", c[0], c[1])
		require.NoError(t, err)
		summed = summed.Add(cost.Total)
		totalIn += c[0]
		totalOut += c[1]
	}

	aggregate, err := table.Price("gpt-4o", totalIn, totalOut)
	require.NoError(t, err)

	assert.True(t, summed.Equal(aggregate.Total),
		"sum of per-call costs %s != cost of aggregated counts %s", summed, aggregate.Total)
}

func TestPrice_UnknownModel(t *testing.T) {
	table := DefaultTable()

	_, err := table.Price("gpt-unknown", 100, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestPrice_ZeroTokens(t *testing.T) {
	table := DefaultTable()

	cost, err := table.Price("gpt-4o-mini", 0, 0)
	require.NoError(t, err)
	assert.True(t, cost.Total.IsZero())
}

func TestDefaultTable_CoversRoutedModels(t *testing.T) {
	table := DefaultTable()

	for _, model := range []string{"gpt-4o", "gpt-4o-mini"} {
		_, err := table.Price(model, 1, 1)
		assert.NoError(t, err, "model %s must have a pricing entry", model)
	}
}
