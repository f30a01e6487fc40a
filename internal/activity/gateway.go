package activity

import (
	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/pkg/types"
)

// ExclusiveGateway routes to exactly one outgoing transition: the first
// whose guard passes, in declaration order, or the declared default when
// no guard passes.
type ExclusiveGateway struct{}

func (b *ExclusiveGateway) Kind() string { return types.KindExclusiveGateway }

func (b *ExclusiveGateway) Parse(a *types.Activity, issues *types.Issues) {
	if len(a.Outgoing()) == 0 {
		issues.AddError(a.ID, "exclusive gateway without outgoing transitions")
		return
	}
	if a.DefaultTransitionID == "" {
		issues.AddWarning(a.ID, "exclusive gateway without a default transition")
	}
}

func (b *ExclusiveGateway) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	return ex.Onwards(ai)
}

// SelectTransitions implements the exclusive routing rule.
func (b *ExclusiveGateway) SelectTransitions(ex *engine.Execution, ai *types.ActivityInstance, def *types.Activity) ([]*types.Transition, error) {
	r := ex.Resolver(ai)
	var fallback *types.Transition
	for _, t := range def.Outgoing() {
		if t.ID != "" && t.ID == def.DefaultTransitionID {
			fallback = t
			continue
		}
		pass, err := r.EvaluateCondition(t.Condition)
		if err != nil {
			return nil, err
		}
		if pass {
			return []*types.Transition{t}, nil
		}
	}
	if fallback != nil {
		return []*types.Transition{fallback}, nil
	}
	return nil, nil
}

// ParallelGateway forks every outgoing transition unconditionally. Join
// semantics are structural: a parallel gateway with multiple incoming
// transitions collects one token per transition before it runs.
type ParallelGateway struct{}

func (b *ParallelGateway) Kind() string { return types.KindParallelGateway }

func (b *ParallelGateway) Parse(a *types.Activity, issues *types.Issues) {
	for _, t := range a.Outgoing() {
		if t.Condition != "" {
			issues.AddWarning(a.ID, "guard on transition %s is ignored by a parallel gateway", t.ID)
		}
	}
}

func (b *ParallelGateway) Execute(ex *engine.Execution, ai *types.ActivityInstance) error {
	return ex.Onwards(ai)
}

// SelectTransitions takes all outgoing transitions, ignoring guards.
func (b *ParallelGateway) SelectTransitions(ex *engine.Execution, ai *types.ActivityInstance, def *types.Activity) ([]*types.Transition, error) {
	return def.Outgoing(), nil
}
