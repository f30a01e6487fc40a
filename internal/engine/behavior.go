// Package engine implements the instance execution core: the scope
// instance tree, the transition-taking work-queue algorithm, the
// activity behavior contract, multi-instance replication, call-activity
// correlation and job effects.
package engine

import (
	"fmt"
	"sync"

	"github.com/procflow/procflow/pkg/types"
)

// ActivityBehavior is the runtime contract of one activity kind:
// compile-time validation plus execution. Execute either continues the
// instance synchronously via Execution.Onwards or leaves it open,
// parked on a message, a job or a sub-workflow completion.
type ActivityBehavior interface {
	// Kind returns the activity kind tag this behavior implements.
	Kind() string

	// Parse validates the activity's configuration at deploy time.
	Parse(a *types.Activity, issues *types.Issues)

	// Execute runs the behavior for one activity instance.
	Execute(ex *Execution, ai *types.ActivityInstance) error
}

// MessageHandler is implemented by behaviors that resume on an inbound
// message (user tasks, receive tasks, adapter-delegated service tasks).
type MessageHandler interface {
	OnMessage(ex *Execution, ai *types.ActivityInstance, values map[string]any) error
}

// AsyncBehavior marks behaviors whose execution must not run on the
// triggering goroutine; the engine defers them through an immediate job.
type AsyncBehavior interface {
	IsAsync() bool
}

// TransitionSelector overrides the engine's default outgoing-transition
// selection (every transition whose guard passes). Exclusive gateways
// implement it.
type TransitionSelector interface {
	SelectTransitions(ex *Execution, ai *types.ActivityInstance, def *types.Activity) ([]*types.Transition, error)
}

// Catalog maps activity kind tags to behavior implementations. It is
// populated once at engine start-up and read-only afterwards.
type Catalog struct {
	behaviors map[string]ActivityBehavior
	mu        sync.RWMutex
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{behaviors: make(map[string]ActivityBehavior)}
}

// Register registers a behavior for its kind tag.
func (c *Catalog) Register(b ActivityBehavior) error {
	if b == nil || b.Kind() == "" {
		return fmt.Errorf("cannot register behavior without a kind")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.behaviors[b.Kind()]; exists {
		return fmt.Errorf("activity kind already registered: %s", b.Kind())
	}
	c.behaviors[b.Kind()] = b
	return nil
}

// MustRegister registers a behavior and panics on error.
func (c *Catalog) MustRegister(b ActivityBehavior) {
	if err := c.Register(b); err != nil {
		panic(err)
	}
}

// Get returns the behavior for a kind, or an error for unknown kinds.
func (c *Catalog) Get(kind string) (ActivityBehavior, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.behaviors[kind]
	if !ok {
		return nil, &Error{Code: ErrCodeUnknownKind, Message: fmt.Sprintf("no behavior registered for activity kind %q", kind)}
	}
	return b, nil
}

// Has reports whether a kind is registered.
func (c *Catalog) Has(kind string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.behaviors[kind]
	return ok
}

// Kinds returns all registered kind tags.
func (c *Catalog) Kinds() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	kinds := make([]string, 0, len(c.behaviors))
	for k := range c.behaviors {
		kinds = append(kinds, k)
	}
	return kinds
}
