package activity

import (
	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/pkg/types"
)

// StartEvent enters a scope and immediately continues onwards.
type StartEvent struct{}

func (b *StartEvent) Kind() string { return types.KindStartEvent }

func (b *StartEvent) Parse(a *types.Activity, issues *types.Issues) {
	if len(a.Incoming()) > 0 {
		issues.AddWarning(a.ID, "start event with incoming transitions")
	}
}

func (b *StartEvent) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	return ex.Onwards(ai)
}

// EndEvent terminates one path; with no outgoing transitions the
// enclosing scope completes when its last path ends.
type EndEvent struct{}

func (b *EndEvent) Kind() string { return types.KindEndEvent }

func (b *EndEvent) Parse(a *types.Activity, issues *types.Issues) {
	if len(a.Outgoing()) > 0 {
		issues.AddWarning(a.ID, "end event with outgoing transitions")
	}
}

func (b *EndEvent) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	return ex.Onwards(ai)
}
