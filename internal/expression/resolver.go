package expression

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/procflow/procflow/internal/datatype"
	"github.com/procflow/procflow/pkg/types"
)

// VariableSource provides the variables visible at an evaluation point,
// typically a scope instance chain walked outwards.
type VariableSource interface {
	// LookupVariable returns the current value and type of a variable id,
	// or ok=false when no scope in the chain holds it.
	LookupVariable(id string) (value any, typeName string, ok bool)
}

var (
	// items[0].name -> items.0.name, for uniform path walking.
	arrayIndexPattern = regexp.MustCompile(`\[(\d+)\]`)
	// {{expr}} or {{expr|hint}} template segments.
	templatePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)
)

// UnresolvedBindingError reports a binding declared required that did not
// resolve to a value.
type UnresolvedBindingError struct {
	Expression string
}

func (e *UnresolvedBindingError) Error() string {
	return fmt.Sprintf("required binding did not resolve: %q", e.Expression)
}

// Resolver evaluates bindings and expressions against a variable source,
// using the data-type registry for dereference and text conversion.
type Resolver struct {
	types  *datatype.Registry
	source VariableSource
}

// NewResolver creates a resolver over the given variable source.
func NewResolver(reg *datatype.Registry, source VariableSource) *Resolver {
	return &Resolver{types: reg, source: source}
}

// ResolvePath resolves a dot-path expression: a variable id followed by
// zero or more .field or [index] dereferences. A missing variable or an
// unresolvable step yields ok=false, not an error.
func (r *Resolver) ResolvePath(path string) (any, string, bool, error) {
	normalized := arrayIndexPattern.ReplaceAllString(strings.TrimSpace(path), ".$1")
	parts := strings.Split(normalized, ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, "", false, &EvalError{Expr: path, Message: "empty path"}
	}

	current, typeName, ok := r.source.LookupVariable(parts[0])
	if !ok {
		return nil, "", false, nil
	}

	for _, part := range parts[1:] {
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			list, isList := current.([]any)
			if !isList || idx < 0 || idx >= len(list) {
				return nil, "", false, nil
			}
			current = list[idx]
			typeName = datatype.TypeAny
			continue
		}
		var found bool
		current, typeName, found = r.types.Dereference(typeName, current, part)
		if !found {
			return nil, "", false, nil
		}
	}
	return current, typeName, true, nil
}

// ResolveBinding produces the typed value of a binding: the validated
// literal, the resolved path expression, or the rendered template. The
// second result reports whether a value is present; a required binding
// without a value is an error.
func (r *Resolver) ResolveBinding(b *types.Binding) (types.TypedValue, bool, error) {
	if b.IsEmpty() {
		return types.TypedValue{}, false, nil
	}

	switch {
	case b.Value != nil:
		converted, err := r.types.Convert(b.Value.Type, b.Value.Value)
		if err != nil {
			return types.TypedValue{}, false, &EvalError{Expr: "literal", Message: "invalid literal", Cause: err}
		}
		return types.NewTypedValue(b.Value.Type, converted), converted != nil, nil

	case b.Expression != "":
		value, typeName, ok, err := r.ResolvePath(b.Expression)
		if err != nil {
			return types.TypedValue{}, false, err
		}
		if !ok {
			if b.Required {
				return types.TypedValue{}, false, &UnresolvedBindingError{Expression: b.Expression}
			}
			return types.TypedValue{}, false, nil
		}
		return types.NewTypedValue(typeName, value), true, nil

	default:
		text, err := r.ResolveTemplate(b.Template)
		if err != nil {
			return types.TypedValue{}, false, err
		}
		return types.NewTypedValue(datatype.TypeText, text), true, nil
	}
}

// ResolveTemplate interpolates every {{expr}} segment of a template,
// rendering resolved values to text through the data-type registry.
// Unresolvable segments render as empty text.
func (r *Resolver) ResolveTemplate(tpl string) (string, error) {
	var firstErr error
	out := templatePattern.ReplaceAllStringFunc(tpl, func(match string) string {
		expr, hint := datatype.Hint(match[2 : len(match)-2])
		value, typeName, ok, err := r.ResolvePath(expr)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return ""
		}
		if !ok {
			return ""
		}
		return r.types.Text(typeName, value, hint)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// EvaluateCondition evaluates a guard condition; the empty condition is
// always true.
func (r *Resolver) EvaluateCondition(condition string) (bool, error) {
	if strings.TrimSpace(condition) == "" {
		return true, nil
	}
	return Evaluate(condition, r)
}
