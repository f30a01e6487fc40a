package engine

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/procflow/procflow/internal/datatype"
	"github.com/procflow/procflow/internal/expression"
	"github.com/procflow/procflow/pkg/types"
)

// Execution is the context of one engine step on one workflow instance:
// the locked instance, its compiled definition, and the follow-up steps
// to run on other instances once this step has committed.
type Execution struct {
	Engine   *Engine
	Workflow *types.Workflow
	Instance *types.WorkflowInstance

	// followups run after this step is saved and unlocked; they are
	// steps on other instances (sub-workflow starts, caller callbacks)
	// that must never re-enter this in-flight step.
	followups []func()

	// inJob is set while this step executes a job; async behaviors then
	// run inline instead of deferring through another job.
	inJob bool
}

func newExecution(e *Engine, wf *types.Workflow, wi *types.WorkflowInstance) *Execution {
	return &Execution{Engine: e, Workflow: wf, Instance: wi}
}

// AddFollowup registers a step on another instance to run after this
// step commits.
func (ex *Execution) AddFollowup(fn func()) {
	ex.followups = append(ex.followups, fn)
}

// ---------------------------------------------------------------------
// Definition lookup along the instance tree

// Definition returns the Activity definition of an activity instance.
func (ex *Execution) Definition(ai *types.ActivityInstance) (*types.Activity, error) {
	scope, err := ex.definitionScope(ai)
	if err != nil {
		return nil, err
	}
	def := scope.ActivityByID(ai.ActivityID)
	if def == nil {
		return nil, &Error{Code: ErrCodeNotFound, Message: "activity definition not found: " + ai.ActivityID}
	}
	return def, nil
}

// definitionScope returns the Scope in which the instance's activity is
// defined: the workflow root for top-level instances, a sub-process's
// nested scope for its children, and the parent's own defining scope for
// multi-instance elements.
func (ex *Execution) definitionScope(ai *types.ActivityInstance) (*types.Scope, error) {
	parent := ai.Parent()
	if parent == nil {
		return &ex.Workflow.Scope, nil
	}
	if ex.isElement(ai) {
		return ex.definitionScope(parent)
	}
	parentDef, err := ex.Definition(parent)
	if err != nil {
		return nil, err
	}
	if parentDef.NestedScope == nil {
		return nil, &Error{Code: ErrCodeInvalidState, Message: "activity instance nested under scope-less activity " + parentDef.ID}
	}
	return parentDef.NestedScope, nil
}

// isElement reports whether ai is a replicated multi-instance child of
// its parent.
func (ex *Execution) isElement(ai *types.ActivityInstance) bool {
	parent := ai.Parent()
	return parent != nil && parent.ActivityID == ai.ActivityID
}

// ---------------------------------------------------------------------
// Variable access

// scopeSource walks the scope instance chain outwards from one activity
// instance, resolving variable ids against the nearest holder.
type scopeSource struct {
	ex *Execution
	ai *types.ActivityInstance // nil means the root scope
}

func (s scopeSource) LookupVariable(id string) (any, string, bool) {
	for ai := s.ai; ai != nil; ai = ai.Parent() {
		if vi := variableIn(&ai.ScopeInstance, id); vi != nil {
			return vi.Value.Value, vi.Value.Type, true
		}
	}
	if vi := variableIn(&s.ex.Instance.ScopeInstance, id); vi != nil {
		return vi.Value.Value, vi.Value.Type, true
	}
	return nil, "", false
}

func variableIn(si *types.ScopeInstance, variableID string) *types.VariableInstance {
	for _, vi := range si.VariableInstances {
		if vi.VariableID == variableID {
			return vi
		}
	}
	return nil
}

// Resolver returns a binding/expression resolver with the variables
// visible at the given activity instance (nil for the root scope).
func (ex *Execution) Resolver(ai *types.ActivityInstance) *expression.Resolver {
	return expression.NewResolver(ex.Engine.Types, scopeSource{ex: ex, ai: ai})
}

// SetVariable writes a variable visible at ai: the nearest existing
// instance is updated, otherwise a new instance is created in the scope
// declaring the variable, falling back to the root scope with a dynamic
// type.
func (ex *Execution) SetVariable(ai *types.ActivityInstance, variableID string, value any) error {
	for cur := ai; cur != nil; cur = cur.Parent() {
		if vi := variableIn(&cur.ScopeInstance, variableID); vi != nil {
			return ex.assign(vi, value)
		}
	}
	if vi := variableIn(&ex.Instance.ScopeInstance, variableID); vi != nil {
		return ex.assign(vi, value)
	}

	// No instance yet: create in the declaring scope if one declares it.
	for cur := ai; cur != nil; cur = cur.Parent() {
		defScope, err := ex.nestedDefinitionScope(cur)
		if err != nil {
			return err
		}
		if defScope != nil {
			if decl := defScope.VariableByID(variableID); decl != nil {
				return ex.createVariable(&cur.ScopeInstance, decl, value)
			}
		}
	}
	if decl := ex.Workflow.VariableByID(variableID); decl != nil {
		return ex.createVariable(&ex.Instance.ScopeInstance, decl, value)
	}
	ex.Instance.VariableInstances = append(ex.Instance.VariableInstances, &types.VariableInstance{
		ID:         uuid.NewString(),
		VariableID: variableID,
		Value:      types.NewTypedValue(datatype.TypeAny, value),
	})
	return nil
}

// nestedDefinitionScope returns the definition scope owned by an
// activity instance itself (a sub-process's nested scope), or nil when
// the instance owns no declared scope.
func (ex *Execution) nestedDefinitionScope(ai *types.ActivityInstance) (*types.Scope, error) {
	if ex.isElement(ai) {
		return nil, nil
	}
	def, err := ex.Definition(ai)
	if err != nil {
		return nil, err
	}
	return def.NestedScope, nil
}

func (ex *Execution) assign(vi *types.VariableInstance, value any) error {
	converted, err := ex.Engine.Types.Convert(vi.Value.Type, value)
	if err != nil {
		return &Error{Code: ErrCodeBinding, Message: "invalid value for variable " + vi.VariableID, Cause: err}
	}
	vi.Value.Value = converted
	return nil
}

func (ex *Execution) createVariable(si *types.ScopeInstance, decl *types.Variable, value any) error {
	converted, err := ex.Engine.Types.Convert(decl.Type, value)
	if err != nil {
		return &Error{Code: ErrCodeBinding, Message: "invalid value for variable " + decl.ID, Cause: err}
	}
	si.VariableInstances = append(si.VariableInstances, &types.VariableInstance{
		ID:         uuid.NewString(),
		VariableID: decl.ID,
		Value:      types.NewTypedValue(decl.Type, converted),
	})
	return nil
}

// InitScopeVariables creates variable instances for a scope's declared
// variables, applying initial values.
func (ex *Execution) InitScopeVariables(si *types.ScopeInstance, scope *types.Scope) error {
	for _, decl := range scope.Variables {
		if err := ex.createVariable(si, decl, decl.InitialValue); err != nil {
			return err
		}
	}
	return nil
}

// ResolveInputs resolves all input bindings of an activity definition in
// the context of its instance.
func (ex *Execution) ResolveInputs(def *types.Activity, ai *types.ActivityInstance) (map[string]types.TypedValue, error) {
	if len(def.InputBindings) == 0 {
		return nil, nil
	}
	r := ex.Resolver(ai)
	inputs := make(map[string]types.TypedValue, len(def.InputBindings))
	for name, b := range def.InputBindings {
		tv, ok, err := r.ResolveBinding(b)
		if err != nil {
			return nil, &Error{Code: ErrCodeBinding, Message: "cannot resolve input " + name + " of activity " + def.ID, Cause: err}
		}
		if ok {
			inputs[name] = tv
		}
	}
	return inputs, nil
}

// ApplyOutputs writes named output values through the activity's output
// bindings into the enclosing scope's variables.
func (ex *Execution) ApplyOutputs(def *types.Activity, ai *types.ActivityInstance, values map[string]any) error {
	for name, variableID := range def.OutputBindings {
		v, ok := values[name]
		if !ok {
			continue
		}
		if err := ex.SetVariable(ai, variableID, v); err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------
// The transition-taking algorithm

// Onwards ends the activity instance and continues along its outgoing
// transitions. New target instances are pushed onto the instance's work
// queue rather than executed recursively; the engine drains the queue
// until the instance is quiescent.
func (ex *Execution) Onwards(ai *types.ActivityInstance) error {
	if !ai.Open() {
		return nil
	}
	if ex.isElement(ai) {
		return ex.completeElement(ai)
	}

	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	transitions, err := ex.selectTransitions(def, ai)
	if err != nil {
		return err
	}

	ex.endInstance(ai)

	if len(transitions) == 0 {
		return ex.scopeCompleted(ai.Parent())
	}
	for _, t := range transitions {
		if err := ex.takeTransition(ai, t); err != nil {
			return err
		}
	}
	return nil
}

// selectTransitions picks the outgoing transitions to take, in
// declaration order. Behaviors may override the default rule (every
// transition whose guard passes) by implementing TransitionSelector.
func (ex *Execution) selectTransitions(def *types.Activity, ai *types.ActivityInstance) ([]*types.Transition, error) {
	if behavior, err := ex.Engine.Catalog.Get(def.Kind); err == nil {
		if selector, ok := behavior.(TransitionSelector); ok {
			return selector.SelectTransitions(ex, ai, def)
		}
	}
	r := ex.Resolver(ai)
	var taken []*types.Transition
	for _, t := range def.Outgoing() {
		pass, err := r.EvaluateCondition(t.Condition)
		if err != nil {
			return nil, &Error{Code: ErrCodeBinding, Message: "guard of transition " + t.ID, Cause: err}
		}
		if pass {
			taken = append(taken, t)
		}
	}
	return taken, nil
}

// takeTransition enters the target activity of a transition. Targets
// that are parallel joins collect one token per incoming transition and
// are entered exactly once, when the last token arrives.
func (ex *Execution) takeTransition(from *types.ActivityInstance, t *types.Transition) error {
	scope, err := ex.definitionScope(from)
	if err != nil {
		return err
	}
	to := scope.ActivityByID(t.To)
	if to == nil {
		return &Error{Code: ErrCodeNotFound, Message: "transition target not found: " + t.To}
	}
	parent := from.Parent()

	if to.IsParallelJoin() {
		join := ex.openJoin(parent, to.ID)
		if join == nil {
			join = ex.createInstance(to, parent)
			join.WorkState = types.WorkStateJoining
		}
		join.JoinTokens++
		if join.JoinTokens >= len(to.Incoming()) {
			ex.Instance.Enqueue(join)
		}
		return nil
	}

	ex.Instance.Enqueue(ex.createInstance(to, parent))
	return nil
}

// openJoin finds the join instance currently collecting tokens for an
// activity in a scope. A join already queued for execution no longer
// collects; a late token then starts a new round.
func (ex *Execution) openJoin(parent *types.ActivityInstance, activityID string) *types.ActivityInstance {
	si := ex.scopeInstanceOf(parent)
	for _, ai := range si.ActivityInstances {
		if ai.ActivityID == activityID && ai.Open() && ai.WorkState == types.WorkStateJoining {
			return ai
		}
	}
	return nil
}

func (ex *Execution) scopeInstanceOf(parent *types.ActivityInstance) *types.ScopeInstance {
	if parent == nil {
		return &ex.Instance.ScopeInstance
	}
	return &parent.ScopeInstance
}

// EnterStartActivities creates and queues instances for the start
// activities of a scope.
func (ex *Execution) EnterStartActivities(scope *types.Scope, parent *types.ActivityInstance) {
	for _, a := range scope.StartActivities() {
		ex.Instance.Enqueue(ex.createInstance(a, parent))
	}
}

// createInstance creates a new activity instance in the given parent
// scope and schedules the activity's timers.
func (ex *Execution) createInstance(def *types.Activity, parent *types.ActivityInstance) *types.ActivityInstance {
	ai := &types.ActivityInstance{
		ID:         uuid.NewString(),
		ActivityID: def.ID,
		ScopeInstance: types.ScopeInstance{
			Start: ex.Engine.Clock.Now(),
		},
	}
	si := ex.scopeInstanceOf(parent)
	si.ActivityInstances = append(si.ActivityInstances, ai)
	ex.Instance.Adopt(ai, parent)
	ex.scheduleTimers(def, ai)
	return ai
}

// scheduleTimers computes each timer's due time once and persists the
// matching jobs. Jobs are implicitly cancelled by the instance ending:
// the scheduler discards jobs whose target is no longer open.
func (ex *Execution) scheduleTimers(def *types.Activity, ai *types.ActivityInstance) {
	now := ex.Engine.Clock.Now()
	for _, td := range def.Timers {
		due := now
		if td.DueAfter != "" {
			d, err := time.ParseDuration(td.DueAfter)
			if err != nil {
				// Rejected at deploy time; a definition that slipped through
				// must not produce a timer that fires immediately.
				ex.Engine.Log.Error("invalid timer delay, timer not scheduled",
					zap.String("activity_id", def.ID),
					zap.String("due_after", td.DueAfter),
					zap.Error(err))
				continue
			}
			due = now.Add(d)
		} else if td.DueAt != nil {
			due = *td.DueAt
		}
		job := &types.Job{
			ID:                 uuid.NewString(),
			Kind:               td.JobKind,
			WorkflowInstanceID: ex.Instance.ID,
			ActivityInstanceID: ai.ID,
			DueTime:            due,
			MaxRetries:         td.MaxRetries,
			Data: map[string]any{
				"transition": td.TransitionID,
				"recipient":  td.Recipient,
			},
		}
		if err := ex.Engine.Store.SaveJob(job); err != nil {
			ex.Engine.Log.Error("cannot schedule timer job", zap.Error(err))
			continue
		}
		ai.TimerInstances = append(ai.TimerInstances, &types.TimerInstance{
			ID:      uuid.NewString(),
			JobID:   job.ID,
			JobKind: td.JobKind,
			DueTime: due,
		})
	}
}

// endInstance closes an activity instance. Ended instances are immutable
// and kept for history.
func (ex *Execution) endInstance(ai *types.ActivityInstance) {
	now := ex.Engine.Clock.Now()
	ai.End = &now
	ai.WorkState = types.WorkStateNone
}

// scopeCompleted checks whether a scope owner (nil for the workflow
// root) has run out of open activity instances and, if so, completes it:
// the workflow instance ends, or the owning sub-process continues
// onwards.
func (ex *Execution) scopeCompleted(owner *types.ActivityInstance) error {
	if owner == nil {
		if ex.Instance.Ended() || len(ex.Instance.OpenActivityInstances()) > 0 {
			return nil
		}
		now := ex.Engine.Clock.Now()
		ex.Instance.End = &now
		ex.Engine.notifyInstanceEnded(ex)
		return nil
	}
	if !owner.Open() || len(owner.OpenActivityInstances()) > 0 {
		return nil
	}
	def, err := ex.Definition(owner)
	if err != nil {
		return err
	}
	// Multi-instance parents complete through their join policy, driven
	// by completeElement.
	if def.MultiInstance != nil {
		return nil
	}
	return ex.Onwards(owner)
}

// ---------------------------------------------------------------------
// Multi-instance replication

// enterMultiInstance replaces the plain execution of an activity that
// carries a multi-instance policy: the entered instance becomes the
// parent, and one child per collection element is created under it, each
// with its own variable scope seeded with the element value.
func (ex *Execution) enterMultiInstance(def *types.Activity, ai *types.ActivityInstance) error {
	mi := def.MultiInstance
	tv, ok, err := ex.Resolver(ai.Parent()).ResolveBinding(mi.Collection)
	if err != nil {
		return &Error{Code: ErrCodeBinding, Message: "multi-instance collection of " + def.ID, Cause: err}
	}
	var elements []any
	if ok {
		raw, convErr := ex.Engine.Types.Convert(datatype.TypeList, tv.Value)
		if convErr != nil {
			return &Error{Code: ErrCodeBinding, Message: "multi-instance collection of " + def.ID, Cause: convErr}
		}
		elements, _ = raw.([]any)
	}
	if len(elements) == 0 {
		// Nothing to replicate: behave like a completed activity.
		return ex.Onwards(ai)
	}

	ai.ElementCount = len(elements)
	if mi.Sequential {
		return ex.startElement(def, ai, elements[0])
	}
	for _, element := range elements {
		if err := ex.startElement(def, ai, element); err != nil {
			return err
		}
	}
	return nil
}

func (ex *Execution) startElement(def *types.Activity, parent *types.ActivityInstance, element any) error {
	child := ex.createInstance(def, parent)
	child.VariableInstances = append(child.VariableInstances, &types.VariableInstance{
		ID:         uuid.NewString(),
		VariableID: def.MultiInstance.ElementVariableID,
		Value:      types.NewTypedValue(datatype.TypeAny, element),
	})
	ex.Instance.Enqueue(child)
	return nil
}

// completeElement ends one multi-instance child and completes the parent
// exactly once when the join policy is satisfied; for sequential
// replication it starts the next element instead.
func (ex *Execution) completeElement(ai *types.ActivityInstance) error {
	parent := ai.Parent()
	ex.endInstance(ai)
	if !parent.Open() {
		return nil
	}
	def, err := ex.Definition(parent)
	if err != nil {
		return err
	}
	mi := def.MultiInstance

	ended := 0
	for _, child := range parent.ActivityInstances {
		if !child.Open() {
			ended++
		}
	}

	if mi.Satisfied(ended, parent.ElementCount) {
		for _, child := range parent.ActivityInstances {
			if child.Open() {
				ex.endInstance(child)
			}
		}
		return ex.Onwards(parent)
	}

	if mi.Sequential && len(parent.OpenActivityInstances()) == 0 && len(parent.ActivityInstances) < parent.ElementCount {
		tv, ok, err := ex.Resolver(parent.Parent()).ResolveBinding(mi.Collection)
		if err != nil || !ok {
			return ex.Onwards(parent)
		}
		raw, convErr := ex.Engine.Types.Convert(datatype.TypeList, tv.Value)
		if convErr != nil {
			return &Error{Code: ErrCodeBinding, Message: "multi-instance collection of " + def.ID, Cause: convErr}
		}
		elements, _ := raw.([]any)
		next := len(parent.ActivityInstances)
		if next >= len(elements) {
			return ex.Onwards(parent)
		}
		return ex.startElement(def, parent, elements[next])
	}
	return nil
}

// ---------------------------------------------------------------------
// Queue draining

// drain executes queued activity instances until the queue is empty or
// the workflow instance has ended. Multi-instance expansion and async
// deferral happen here, before the behavior runs.
func (ex *Execution) drain() error {
	for {
		ai, ok := ex.Instance.Dequeue()
		if !ok {
			return nil
		}
		if !ai.Open() {
			continue
		}
		def, err := ex.Definition(ai)
		if err != nil {
			return err
		}

		if def.MultiInstance != nil && !ex.isElement(ai) {
			if err := ex.enterMultiInstance(def, ai); err != nil {
				return err
			}
			continue
		}

		behavior, err := ex.Engine.Catalog.Get(def.Kind)
		if err != nil {
			return err
		}
		if async, isAsync := behavior.(AsyncBehavior); isAsync && async.IsAsync() && !ex.inJob {
			if err := ex.deferAsync(ai); err != nil {
				return err
			}
			continue
		}
		if err := behavior.Execute(ex, ai); err != nil {
			return &Error{Code: ErrCodeExecution, Message: "activity " + def.ID + " failed", Cause: err}
		}
	}
}

// deferAsync parks the instance and schedules an immediate job so the
// behavior runs off the triggering goroutine.
func (ex *Execution) deferAsync(ai *types.ActivityInstance) error {
	ai.WorkState = types.WorkStateWaitingJob
	job := &types.Job{
		ID:                 uuid.NewString(),
		Kind:               types.JobKindAsyncActivity,
		WorkflowInstanceID: ex.Instance.ID,
		ActivityInstanceID: ai.ID,
		DueTime:            ex.Engine.Clock.Now(),
		MaxRetries:         defaultJobRetries,
	}
	return ex.Engine.Store.SaveJob(job)
}
