// Package datatype provides the pluggable data-type registry used
// wherever values cross an engine boundary: validation and coercion of
// raw values, field dereference for path expressions, and
// internal-to-text rendering for templates.
package datatype

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"
)

// Built-in type names.
const (
	TypeAny     = "any"
	TypeText    = "text"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeList    = "list"
	TypeObject  = "object"
	TypeJSON    = "json"
)

// Rendering hints accepted by Text.
const (
	HintShort = "short"
	HintHTML  = "html"
)

// FieldWhole is the synthetic field meaning "the whole referenced
// object".
const FieldWhole = "*"

// DataType validates and coerces raw values of one declared type.
type DataType interface {
	// Name returns the type tag used in variable declarations.
	Name() string

	// Convert coerces a raw value to the type's internal representation.
	Convert(value any) (any, error)

	// Text renders an internal value as display text, honoring an
	// optional rendering hint.
	Text(value any, hint string) string
}

// Dereferencer is implemented by types whose values expose named fields.
type Dereferencer interface {
	// Dereference resolves one field of a value, returning the field
	// value, its type name and whether the field exists.
	Dereference(value any, field string) (any, string, bool)
}

type anyType struct{}

func (anyType) Name() string { return TypeAny }

func (anyType) Convert(value any) (any, error) { return value, nil }

func (anyType) Text(value any, hint string) string { return renderText(value, hint) }

func (anyType) Dereference(value any, field string) (any, string, bool) {
	return derefGeneric(value, field)
}

type textType struct{}

func (textType) Name() string { return TypeText }

func (textType) Convert(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", v), nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to text", value)
	}
}

func (textType) Text(value any, hint string) string { return renderText(value, hint) }

type numberType struct{}

func (numberType) Name() string { return TypeNumber }

func (numberType) Convert(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to number", value)
	}
}

func (numberType) Text(value any, hint string) string { return renderText(value, hint) }

type booleanType struct{}

func (booleanType) Name() string { return TypeBoolean }

func (booleanType) Convert(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", v)
		}
		return b, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

func (booleanType) Text(value any, hint string) string { return renderText(value, hint) }

type listType struct{}

func (listType) Name() string { return TypeList }

func (listType) Convert(value any) (any, error) {
	switch v := value.(type) {
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to list", value)
	}
}

func (listType) Text(value any, hint string) string { return renderText(value, hint) }

type objectType struct{}

func (objectType) Name() string { return TypeObject }

func (objectType) Convert(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return v, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to object", value)
	}
}

func (objectType) Text(value any, hint string) string { return renderText(value, hint) }

func (objectType) Dereference(value any, field string) (any, string, bool) {
	return derefGeneric(value, field)
}

// jsonType behaves like object but additionally accepts full JSONPath
// expressions as field names, resolved with ojg.
type jsonType struct{}

func (jsonType) Name() string { return TypeJSON }

func (jsonType) Convert(value any) (any, error) { return value, nil }

func (jsonType) Text(value any, hint string) string { return renderText(value, hint) }

func (jsonType) Dereference(value any, field string) (any, string, bool) {
	if v, tn, ok := derefGeneric(value, field); ok {
		return v, tn, true
	}
	path, err := jp.ParseString(field)
	if err != nil {
		return nil, "", false
	}
	results := path.Get(value)
	if len(results) == 0 {
		return nil, "", false
	}
	if len(results) == 1 {
		return results[0], TypeJSON, true
	}
	return results, TypeList, true
}

// derefGeneric resolves the synthetic whole-object field and plain map
// lookups.
func derefGeneric(value any, field string) (any, string, bool) {
	if field == FieldWhole {
		return value, TypeAny, true
	}
	if m, ok := value.(map[string]any); ok {
		if v, exists := m[field]; exists {
			return v, TypeAny, true
		}
	}
	return nil, "", false
}

func renderText(value any, hint string) string {
	if value == nil {
		return ""
	}
	text := fmt.Sprintf("%v", value)
	switch hint {
	case HintShort:
		const max = 32
		runes := []rune(text)
		if len(runes) > max {
			return string(runes[:max-1]) + "…"
		}
	case HintHTML:
		return html.EscapeString(text)
	}
	return text
}

// Hint splits a template expression of the form "expr|hint".
func Hint(expr string) (string, string) {
	if i := strings.LastIndex(expr, "|"); i >= 0 {
		return strings.TrimSpace(expr[:i]), strings.TrimSpace(expr[i+1:])
	}
	return strings.TrimSpace(expr), ""
}
