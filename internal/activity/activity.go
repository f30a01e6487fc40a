// Package activity provides the built-in behavior catalog: events,
// gateways, wait states, script tasks, adapter-delegated service tasks,
// call activities and sub-processes.
package activity

import (
	"time"

	"github.com/procflow/procflow/internal/adapter"
	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/internal/script"
)

// Deps are the collaborators the built-in behaviors need beyond the
// engine itself.
type Deps struct {
	// ScriptRunner evaluates script-task sources. Defaults to a goja
	// runner with a 10 second timeout.
	ScriptRunner *script.Runner
	// Invoker delegates service-task executions to adapters. Defaults to
	// the shared HTTP invoker.
	Invoker adapter.Invoker
}

// RegisterBuiltins registers one behavior per built-in activity kind.
func RegisterBuiltins(c *engine.Catalog, deps Deps) {
	if deps.ScriptRunner == nil {
		deps.ScriptRunner = script.NewRunner(10 * time.Second)
	}
	if deps.Invoker == nil {
		deps.Invoker = adapter.NewHTTPInvoker(30 * time.Second)
	}

	c.MustRegister(&StartEvent{})
	c.MustRegister(&EndEvent{})
	c.MustRegister(&ExclusiveGateway{})
	c.MustRegister(&ParallelGateway{})
	c.MustRegister(&UserTask{})
	c.MustRegister(&ReceiveTask{})
	c.MustRegister(&ScriptTask{Runner: deps.ScriptRunner})
	c.MustRegister(&ServiceTask{Invoker: deps.Invoker})
	c.MustRegister(&CallActivity{})
	c.MustRegister(&SubProcess{})
}
