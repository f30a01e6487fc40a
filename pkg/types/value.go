package types

// TypedValue pairs a raw value with the name of its declared data type.
// The zero TypedValue represents an absent value.
type TypedValue struct {
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
}

// Absent reports whether no value is present.
func (v TypedValue) Absent() bool {
	return v.Value == nil
}

// NewTypedValue creates a TypedValue of the given type.
func NewTypedValue(typeName string, value any) TypedValue {
	return TypedValue{Type: typeName, Value: value}
}

// Binding supplies a value for an activity input: either a literal typed
// value, a path expression over the enclosing scope's variables, or a text
// template with embedded {{expr}} segments. Exactly one of Value,
// Expression and Template is expected to be set.
type Binding struct {
	Value      *TypedValue `yaml:"value,omitempty" json:"value,omitempty"`
	Expression string      `yaml:"expression,omitempty" json:"expression,omitempty"`
	Template   string      `yaml:"template,omitempty" json:"template,omitempty"`

	// Required makes an unresolvable binding a runtime error instead of
	// an absent value.
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`
}

// IsEmpty reports whether the binding carries no source at all.
func (b *Binding) IsEmpty() bool {
	return b == nil || (b.Value == nil && b.Expression == "" && b.Template == "")
}
