package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procflow/procflow/internal/datatype"
)

type mapSource map[string]any

func (m mapSource) LookupVariable(id string) (any, string, bool) {
	v, ok := m[id]
	if !ok {
		return nil, "", false
	}
	return v, datatype.TypeAny, true
}

func newTestResolver(vars map[string]any) *Resolver {
	return NewResolver(datatype.Default(), mapSource(vars))
}

func TestEvaluateComparisons(t *testing.T) {
	vars := map[string]any{
		"amount": 42.0,
		"name":   "alice",
		"active": true,
	}

	tests := []struct {
		expr string
		want bool
	}{
		{`amount == 42`, true},
		{`amount != 42`, false},
		{`amount > 40`, true},
		{`amount >= 42`, true},
		{`amount < 42`, false},
		{`amount <= 41`, false},
		{`name == "alice"`, true},
		{`name != "bob"`, true},
		{`active == true`, true},
		{`active == false`, false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, newTestResolver(vars))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateLogicalOperators(t *testing.T) {
	vars := map[string]any{"a": 1.0, "b": 2.0}

	tests := []struct {
		expr string
		want bool
	}{
		{`a == 1 && b == 2`, true},
		{`a == 1 && b == 3`, false},
		{`a == 2 || b == 2`, true},
		{`a == 2 || b == 3`, false},
		{`!(a == 2)`, true},
		{`a == 1 and b == 2`, true},
		{`a == 2 or b == 2`, true},
		{`not (a == 2)`, true},
		{`(a == 1 || a == 2) && b == 2`, true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr, newTestResolver(vars))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateShortCircuit(t *testing.T) {
	// The right side references a missing variable; short-circuit means
	// it is never resolved.
	r := newTestResolver(map[string]any{"a": 1.0})

	got, err := Evaluate(`a == 2 && missing > 3`, r)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Evaluate(`a == 1 || missing > 3`, r)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateMissingVariable(t *testing.T) {
	r := newTestResolver(map[string]any{})

	// A missing variable compares as nil: only equality against nil-ish
	// values is meaningful, ordering fails closed.
	got, err := Evaluate(`missing == 1`, r)
	require.NoError(t, err)
	assert.False(t, got)

	got, err = Evaluate(`missing != 1`, r)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateNestedPath(t *testing.T) {
	vars := map[string]any{
		"order": map[string]any{
			"total": 120.0,
			"items": []any{
				map[string]any{"sku": "A-1"},
				map[string]any{"sku": "B-2"},
			},
		},
	}
	r := newTestResolver(vars)

	got, err := Evaluate(`order.total > 100`, r)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = Evaluate(`order.items[1].sku == "B-2"`, r)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateParseErrors(t *testing.T) {
	r := newTestResolver(map[string]any{})
	for _, expr := range []string{`==`, `a >`, `(a == 1`, `a == 1 &&`} {
		_, err := Evaluate(expr, r)
		assert.Error(t, err, expr)
	}
}
