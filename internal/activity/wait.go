package activity

import (
	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/pkg/types"
)

// waitState is the shared shape of behaviors that park the instance
// until a message arrives: inputs are resolved on entry, message values
// flow through the output bindings on resume.
type waitState struct{}

func (waitState) execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	// Resolving eagerly surfaces missing required inputs when the task
	// appears, not when someone finally answers it.
	if _, err := ex.ResolveInputs(def, ai); err != nil {
		return err
	}
	ai.WorkState = types.WorkStateWaitingMessage
	return nil
}

func (waitState) onMessage(ex *engine.Execution, ai *types.ActivityInstance, values map[string]any) error {
	if ai.WorkState != types.WorkStateWaitingMessage {
		return nil
	}
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	if err := ex.ApplyOutputs(def, ai, values); err != nil {
		return err
	}
	return ex.Onwards(ai)
}

// UserTask waits for a human to complete it through a message.
type UserTask struct {
	waitState
}

func (b *UserTask) Kind() string { return types.KindUserTask }

func (b *UserTask) Parse(a *types.Activity, issues *types.Issues) {}

func (b *UserTask) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	return b.execute(ex, ai)
}

func (b *UserTask) OnMessage(ex *engine.Execution, ai *types.ActivityInstance, values map[string]any) error {
	return b.onMessage(ex, ai, values)
}

// ReceiveTask waits for an external system's message.
type ReceiveTask struct {
	waitState
}

func (b *ReceiveTask) Kind() string { return types.KindReceiveTask }

func (b *ReceiveTask) Parse(a *types.Activity, issues *types.Issues) {}

func (b *ReceiveTask) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	return b.execute(ex, ai)
}

func (b *ReceiveTask) OnMessage(ex *engine.Execution, ai *types.ActivityInstance, values map[string]any) error {
	return b.onMessage(ex, ai, values)
}
