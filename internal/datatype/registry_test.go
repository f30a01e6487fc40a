package datatype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertBuiltins(t *testing.T) {
	r := Default()

	tests := []struct {
		typeName string
		in       any
		want     any
	}{
		{TypeNumber, "42", 42.0},
		{TypeNumber, 7, 7.0},
		{TypeNumber, 1.5, 1.5},
		{TypeText, 42, "42"},
		{TypeText, true, "true"},
		{TypeBoolean, "true", true},
		{TypeBoolean, false, false},
		{TypeAny, "anything", "anything"},
	}
	for _, tt := range tests {
		got, err := r.Convert(tt.typeName, tt.in)
		require.NoError(t, err, "%s(%v)", tt.typeName, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestConvertRejectsMismatches(t *testing.T) {
	r := Default()

	_, err := r.Convert(TypeNumber, "not a number")
	assert.Error(t, err)

	_, err = r.Convert(TypeBoolean, "maybe")
	assert.Error(t, err)

	_, err = r.Convert(TypeList, 42)
	assert.Error(t, err)

	_, err = r.Convert(TypeObject, []any{})
	assert.Error(t, err)
}

func TestConvertListFromStrings(t *testing.T) {
	r := Default()

	got, err := r.Convert(TypeList, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestUnknownTypeFallsBackToAny(t *testing.T) {
	r := Default()

	got, err := r.Convert("no-such-type", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.False(t, r.Has("no-such-type"))
}

func TestDereference(t *testing.T) {
	r := Default()
	obj := map[string]any{"name": "acme", "nested": map[string]any{"k": "v"}}

	v, _, ok := r.Dereference(TypeObject, obj, "name")
	require.True(t, ok)
	assert.Equal(t, "acme", v)

	v, _, ok = r.Dereference(TypeObject, obj, FieldWhole)
	require.True(t, ok)
	assert.Equal(t, obj, v)

	_, _, ok = r.Dereference(TypeObject, obj, "missing")
	assert.False(t, ok)
}

func TestDereferenceJSONPath(t *testing.T) {
	r := Default()
	doc := map[string]any{
		"items": []any{
			map[string]any{"sku": "A", "qty": 1},
			map[string]any{"sku": "B", "qty": 2},
		},
	}

	v, _, ok := r.Dereference(TypeJSON, doc, "$.items[1].sku")
	require.True(t, ok)
	assert.Equal(t, "B", v)

	_, _, ok = r.Dereference(TypeJSON, doc, "$.items[9].sku")
	assert.False(t, ok)
}

func TestTextHints(t *testing.T) {
	r := Default()

	long := "this is a rather long text that will be truncated"
	short := r.Text(TypeText, long, HintShort)
	assert.Len(t, []rune(short), 32)
	assert.Contains(t, short, "…")

	escaped := r.Text(TypeText, "<b>bold</b>", HintHTML)
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", escaped)

	assert.Equal(t, "", r.Text(TypeText, nil, ""))
}

func TestRegisterDuplicate(t *testing.T) {
	r := Default()
	err := r.Register(anyType{})
	assert.Error(t, err)
}

func TestHintSplitting(t *testing.T) {
	expr, hint := Hint("order.total | short")
	assert.Equal(t, "order.total", expr)
	assert.Equal(t, "short", hint)

	expr, hint = Hint("order.total")
	assert.Equal(t, "order.total", expr)
	assert.Equal(t, "", hint)
}
