package activity

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/pkg/types"
)

// CallActivity starts an instance of another deployed workflow and
// parks until that instance ends. Inputs become root variables of the
// callee; the callee's root variables come back through the output
// bindings.
type CallActivity struct{}

func (b *CallActivity) Kind() string { return types.KindCallActivity }

func (b *CallActivity) Parse(a *types.Activity, issues *types.Issues) {
	if a.SubWorkflowID == "" {
		issues.AddError(a.ID, "call activity without a sub-workflow id")
	}
}

func (b *CallActivity) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	inputs, err := ex.ResolveInputs(def, ai)
	if err != nil {
		return err
	}
	variables := make(map[string]any, len(inputs))
	for name, tv := range inputs {
		variables[name] = tv.Value
	}

	// The callee id is fixed inside the caller's step; the callee itself
	// starts as a followup, after this step has committed.
	calleeID := uuid.NewString()
	ai.CalledInstanceID = calleeID
	ai.WorkState = types.WorkStateWaitingCall

	e := ex.Engine
	callerID, callerAI := ex.Instance.ID, ai.ID
	subWorkflowID := def.SubWorkflowID
	ex.AddFollowup(func() {
		_, err := e.StartInstance(subWorkflowID, engine.StartOptions{
			InstanceID:               calleeID,
			Variables:                variables,
			CallerInstanceID:         callerID,
			CallerActivityInstanceID: callerAI,
		})
		if err != nil {
			e.Log.Error("cannot start called workflow",
				zap.String("sub_workflow_id", subWorkflowID),
				zap.String("caller_instance_id", callerID),
				zap.Error(err))
		}
	})
	return nil
}

// SubProcess enters its nested scope; it continues onwards once the
// scope has no open activity instances left.
type SubProcess struct{}

func (b *SubProcess) Kind() string { return types.KindSubProcess }

func (b *SubProcess) Parse(a *types.Activity, issues *types.Issues) {
	if a.NestedScope == nil || len(a.NestedScope.Activities) == 0 {
		issues.AddError(a.ID, "sub-process without a nested scope")
	}
}

func (b *SubProcess) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	if def.NestedScope == nil || len(def.NestedScope.StartActivities()) == 0 {
		return ex.Onwards(ai)
	}
	if err := ex.InitScopeVariables(&ai.ScopeInstance, def.NestedScope); err != nil {
		return err
	}
	ex.EnterStartActivities(def.NestedScope, ai)
	return nil
}
