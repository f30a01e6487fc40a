package activity

import (
	"github.com/procflow/procflow/internal/adapter"
	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/pkg/types"
)

// ServiceTask delegates execution to an out-of-process adapter. The
// engine defers it through an immediate job so the adapter call never
// runs on the goroutine that triggered the step. The adapter either
// replies with outputs and onwards, or keeps the task open and completes
// it later with a message.
type ServiceTask struct {
	Invoker adapter.Invoker
}

func (b *ServiceTask) Kind() string { return types.KindServiceTask }

// IsAsync marks the task for job-deferred execution.
func (b *ServiceTask) IsAsync() bool { return true }

func (b *ServiceTask) Parse(a *types.Activity, issues *types.Issues) {
	if a.AdapterURL == "" {
		issues.AddError(a.ID, "service task without an adapter url")
	}
	if a.ActivityKey == "" {
		issues.AddWarning(a.ID, "service task without an activity key")
	}
}

func (b *ServiceTask) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	inputs, err := ex.ResolveInputs(def, ai)
	if err != nil {
		return err
	}

	resp, err := b.Invoker.Invoke(def.AdapterURL, &types.ExecuteRequest{
		ActivityKey:        def.ActivityKey,
		WorkflowInstanceID: ex.Instance.ID,
		ActivityInstanceID: ai.ID,
		InputParameters:    inputs,
	})
	if err != nil {
		return err
	}

	if !resp.Onwards {
		ai.WorkState = types.WorkStateWaitingMessage
		return nil
	}
	if err := ex.ApplyOutputs(def, ai, resp.OutputParameterValues); err != nil {
		return err
	}
	return ex.Onwards(ai)
}

// OnMessage completes a task the adapter left open.
func (b *ServiceTask) OnMessage(ex *engine.Execution, ai *types.ActivityInstance, values map[string]any) error {
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
