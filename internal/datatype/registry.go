package datatype

import (
	"fmt"
	"sync"
)

// Registry manages registration and lookup of data types. It is populated
// once at engine start-up and treated as read-only afterwards.
type Registry struct {
	types map[string]DataType
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]DataType)}
}

// Default creates a registry with all built-in types registered.
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(anyType{})
	r.MustRegister(textType{})
	r.MustRegister(numberType{})
	r.MustRegister(booleanType{})
	r.MustRegister(listType{})
	r.MustRegister(objectType{})
	r.MustRegister(jsonType{})
	return r
}

// Register registers a data type. It returns an error when the name is
// already taken.
func (r *Registry) Register(dt DataType) error {
	if dt == nil || dt.Name() == "" {
		return fmt.Errorf("cannot register data type without a name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[dt.Name()]; exists {
		return fmt.Errorf("data type already registered: %s", dt.Name())
	}
	r.types[dt.Name()] = dt
	return nil
}

// MustRegister registers a data type and panics on error.
func (r *Registry) MustRegister(dt DataType) {
	if err := r.Register(dt); err != nil {
		panic(err)
	}
}

// Get returns the data type for a name, falling back to "any" for
// unknown or empty names.
func (r *Registry) Get(name string) DataType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if dt, ok := r.types[name]; ok {
		return dt
	}
	return r.types[TypeAny]
}

// Has reports whether a type name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[name]
	return ok
}

// Convert coerces a raw value to the internal representation of the
// named type.
func (r *Registry) Convert(typeName string, value any) (any, error) {
	return r.Get(typeName).Convert(value)
}

// Dereference resolves one field of a typed value, consulting the type's
// Dereferencer when it has one and falling back to generic map access.
func (r *Registry) Dereference(typeName string, value any, field string) (any, string, bool) {
	if d, ok := r.Get(typeName).(Dereferencer); ok {
		return d.Dereference(value, field)
	}
	return derefGeneric(value, field)
}

// Text renders a typed value as display text with an optional hint.
func (r *Registry) Text(typeName string, value any, hint string) string {
	return r.Get(typeName).Text(value, hint)
}
