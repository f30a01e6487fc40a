package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/procflow/procflow/internal/datatype"
	"github.com/procflow/procflow/internal/store"
	"github.com/procflow/procflow/pkg/types"
)

const defaultJobRetries = 3

// Notification is an escalation or reminder event produced by a timer
// job.
type Notification struct {
	Kind               string
	Recipient          string
	WorkflowInstanceID string
	ActivityInstanceID string
	ActivityID         string
}

// Notifier receives escalation and reminder notifications. The default
// notifier logs them.
type Notifier interface {
	Notify(n Notification)
}

type logNotifier struct {
	log *zap.Logger
}

func (l logNotifier) Notify(n Notification) {
	l.log.Info("timer notification",
		zap.String("kind", n.Kind),
		zap.String("recipient", n.Recipient),
		zap.String("workflow_instance_id", n.WorkflowInstanceID),
		zap.String("activity_id", n.ActivityID))
}

// Config assembles an Engine's collaborators. Zero-value fields get
// working defaults.
type Config struct {
	Store    store.Store
	Catalog  *Catalog
	Types    *datatype.Registry
	Clock    clockwork.Clock
	Log      *zap.Logger
	Notifier Notifier
}

// Engine executes workflow instances. All mutation of an instance
// happens inside a step holding that instance's store lock; the engine
// itself is safe for concurrent use.
type Engine struct {
	Store    store.Store
	Catalog  *Catalog
	Types    *datatype.Registry
	Clock    clockwork.Clock
	Log      *zap.Logger
	Notifier Notifier
}

// New creates an engine from the given configuration.
func New(cfg Config) *Engine {
	e := &Engine{
		Store:    cfg.Store,
		Catalog:  cfg.Catalog,
		Types:    cfg.Types,
		Clock:    cfg.Clock,
		Log:      cfg.Log,
		Notifier: cfg.Notifier,
	}
	if e.Store == nil {
		e.Store = store.NewMemoryStore()
	}
	if e.Catalog == nil {
		e.Catalog = NewCatalog()
	}
	if e.Types == nil {
		e.Types = datatype.Default()
	}
	if e.Clock == nil {
		e.Clock = clockwork.NewRealClock()
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	if e.Notifier == nil {
		e.Notifier = logNotifier{log: e.Log}
	}
	return e
}

// ---------------------------------------------------------------------
// Deployment

// Deploy compiles and validates a workflow definition and persists it if
// it carries no errors. Warnings do not block deployment.
func (e *Engine) Deploy(wf *types.Workflow) (*types.DeploymentResult, error) {
	issues := &types.Issues{}
	wf.Compile(issues)
	e.validateScope(&wf.Scope, issues)

	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}
	result := &types.DeploymentResult{
		WorkflowID: wf.ID,
		Warnings:   issues.Warnings(),
		Errors:     issues.Errors(),
	}
	if issues.HasErrors() {
		return result, nil
	}

	wf.DeployedAt = e.Clock.Now()
	if err := e.Store.SaveWorkflow(wf); err != nil {
		return nil, err
	}
	e.Log.Info("workflow deployed",
		zap.String("workflow_id", wf.ID),
		zap.String("name", wf.Name),
		zap.Int("warnings", len(result.Warnings)))
	return result, nil
}

func (e *Engine) validateScope(scope *types.Scope, issues *types.Issues) {
	for _, a := range scope.Activities {
		behavior, err := e.Catalog.Get(a.Kind)
		if err != nil {
			issues.AddError(a.ID, "unknown activity kind %q", a.Kind)
			continue
		}
		behavior.Parse(a, issues)
		e.validateCommon(scope, a, issues)
		if a.NestedScope != nil {
			e.validateScope(a.NestedScope, issues)
		}
	}
}

func (e *Engine) validateCommon(scope *types.Scope, a *types.Activity, issues *types.Issues) {
	if a.DefaultTransitionID != "" {
		t := scope.TransitionByID(a.DefaultTransitionID)
		if t == nil || t.From != a.ID {
			issues.AddError(a.ID, "default transition %q does not leave this activity", a.DefaultTransitionID)
		}
	}
	if mi := a.MultiInstance; mi != nil {
		if mi.Collection == nil || mi.Collection.IsEmpty() {
			issues.AddError(a.ID, "multi-instance without a collection binding")
		}
		if mi.ElementVariableID == "" {
			issues.AddError(a.ID, "multi-instance without an element variable")
		}
		if mi.Join == types.JoinCount && mi.JoinCount < 1 {
			issues.AddError(a.ID, "multi-instance count join needs a positive join count")
		}
	}
	for _, td := range a.Timers {
		switch td.JobKind {
		case types.JobKindBoundaryTimer:
			if td.TransitionID == "" || scope.TransitionByID(td.TransitionID) == nil {
				issues.AddError(a.ID, "boundary timer without a known transition")
			}
		case types.JobKindEscalation, types.JobKindReminder:
			if td.Recipient == "" {
				issues.AddWarning(a.ID, "%s timer without a recipient", td.JobKind)
			}
		default:
			issues.AddError(a.ID, "unknown timer job kind %q", td.JobKind)
		}
		if td.DueAfter == "" && td.DueAt == nil {
			issues.AddError(a.ID, "timer without a due time")
		}
		if td.DueAfter != "" {
			if _, err := time.ParseDuration(td.DueAfter); err != nil {
				issues.AddError(a.ID, "invalid timer delay %q", td.DueAfter)
			}
		}
	}
}

// ---------------------------------------------------------------------
// Instance lifecycle

// StartOptions configures StartInstance beyond the workflow id.
type StartOptions struct {
	// InstanceID presets the new instance's id; empty generates one.
	InstanceID string
	// Variables are initial values for root-scope variables.
	Variables map[string]any
	// Caller correlation for call activities.
	CallerInstanceID         string
	CallerActivityInstanceID string
}

// StartInstance creates a workflow instance and runs it until it is
// quiescent: ended, or parked on messages, jobs or sub-workflows.
func (e *Engine) StartInstance(workflowID string, opts StartOptions) (*types.WorkflowInstance, error) {
	wf, err := e.Store.WorkflowByID(workflowID)
	if err != nil {
		return nil, e.wrapStoreErr(err)
	}

	id := opts.InstanceID
	if id == "" {
		id = uuid.NewString()
	}
	wi := &types.WorkflowInstance{
		ID:                       id,
		OrganizationID:           wf.OrganizationID,
		WorkflowID:               wf.ID,
		CallerInstanceID:         opts.CallerInstanceID,
		CallerActivityInstanceID: opts.CallerActivityInstanceID,
		ScopeInstance:            types.ScopeInstance{Start: e.Clock.Now()},
	}
	if err := e.Store.CreateInstance(wi); err != nil {
		return nil, err
	}
	e.Log.Info("instance started",
		zap.String("instance_id", wi.ID),
		zap.String("workflow_id", wf.ID))

	err = e.step(wi.ID, false, func(ex *Execution) error {
		if err := ex.InitScopeVariables(&ex.Instance.ScopeInstance, &wf.Scope); err != nil {
			return err
		}
		for name, value := range opts.Variables {
			if err := ex.SetVariable(nil, name, value); err != nil {
				return err
			}
		}
		ex.EnterStartActivities(&wf.Scope, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wi, nil
}

// SendMessage delivers a message to an open activity instance that is
// waiting for one.
func (e *Engine) SendMessage(instanceID, activityInstanceID string, values map[string]any) error {
	return e.step(instanceID, false, func(ex *Execution) error {
		ai := ex.Instance.FindActivityInstance(activityInstanceID)
		if ai == nil {
			return &Error{Code: ErrCodeNotFound, Message: "activity instance not found: " + activityInstanceID}
		}
		if !ai.Open() {
			return &Error{Code: ErrCodeInvalidState, Message: "activity instance already ended: " + activityInstanceID}
		}
		def, err := ex.Definition(ai)
		if err != nil {
			return err
		}
		behavior, err := e.Catalog.Get(def.Kind)
		if err != nil {
			return err
		}
		handler, ok := behavior.(MessageHandler)
		if !ok {
			return &Error{Code: ErrCodeInvalidState, Message: "activity kind " + def.Kind + " does not receive messages"}
		}
		return handler.OnMessage(ex, ai, values)
	})
}

// InstanceByID loads one workflow instance without locking it. The
// returned tree is a live snapshot; callers must treat it as read-only.
func (e *Engine) InstanceByID(id string) (*types.WorkflowInstance, error) {
	found, err := e.Store.FindInstances(store.InstanceQuery{InstanceID: id})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, &Error{Code: ErrCodeNotFound, Message: "workflow instance not found: " + id}
	}
	return found[0], nil
}

// FindInstances returns the instances matching the query.
func (e *Engine) FindInstances(q store.InstanceQuery) ([]*types.WorkflowInstance, error) {
	return e.Store.FindInstances(q)
}

// DeleteInstances removes matching instances. Jobs referencing them
// become no-ops and are discarded by the scheduler when they fire.
func (e *Engine) DeleteInstances(q store.InstanceQuery) (int, error) {
	return e.Store.DeleteInstances(q)
}

// WorkflowByID loads a deployed workflow definition.
func (e *Engine) WorkflowByID(id string) (*types.Workflow, error) {
	wf, err := e.Store.WorkflowByID(id)
	if err != nil {
		return nil, e.wrapStoreErr(err)
	}
	return wf, nil
}

// ---------------------------------------------------------------------
// Jobs

// ExecuteJob applies one due job's effect to its workflow instance.
// Jobs whose target instance is gone or ended return ErrJobObsolete so
// the scheduler can discard them.
func (e *Engine) ExecuteJob(job *types.Job) error {
	err := e.step(job.WorkflowInstanceID, true, func(ex *Execution) error {
		if ex.Instance.Ended() {
			return ErrJobObsolete
		}
		ai := ex.Instance.FindActivityInstance(job.ActivityInstanceID)
		if ai == nil || !ai.Open() {
			return ErrJobObsolete
		}
		return e.applyJob(ex, job, ai)
	})
	if err != nil && IsNotFound(err) {
		return ErrJobObsolete
	}
	return err
}

func (e *Engine) applyJob(ex *Execution, job *types.Job, ai *types.ActivityInstance) error {
	def, err := ex.Definition(ai)
	if err != nil {
		return err
	}
	switch job.Kind {
	case types.JobKindBoundaryTimer:
		scope, err := ex.definitionScope(ai)
		if err != nil {
			return err
		}
		t := scope.TransitionByID(job.DataString("transition"))
		if t == nil {
			return &Error{Code: ErrCodeNotFound, Message: "boundary transition not found for job " + job.ID}
		}
		ex.endInstance(ai)
		return ex.takeTransition(ai, t)

	case types.JobKindEscalation, types.JobKindReminder:
		e.Notifier.Notify(Notification{
			Kind:               job.Kind,
			Recipient:          job.DataString("recipient"),
			WorkflowInstanceID: ex.Instance.ID,
			ActivityInstanceID: ai.ID,
			ActivityID:         ai.ActivityID,
		})
		return nil

	case types.JobKindAsyncActivity:
		behavior, err := e.Catalog.Get(def.Kind)
		if err != nil {
			return err
		}
		ai.WorkState = types.WorkStateStarting
		if err := behavior.Execute(ex, ai); err != nil {
			return &Error{Code: ErrCodeExecution, Message: "activity " + def.ID + " failed", Cause: err}
		}
		return nil

	default:
		return &Error{Code: ErrCodeInvalidState, Message: "unknown job kind " + job.Kind}
	}
}

// ---------------------------------------------------------------------
// Call-activity correlation

// notifyInstanceEnded propagates an ended instance's root variables back
// to its caller, as a followup so the callee's step never re-enters the
// caller's in-flight step.
func (e *Engine) notifyInstanceEnded(ex *Execution) {
	wi := ex.Instance
	e.Log.Info("instance ended", zap.String("instance_id", wi.ID))
	if wi.CallerInstanceID == "" {
		return
	}
	callerID := wi.CallerInstanceID
	callerAI := wi.CallerActivityInstanceID
	values := make(map[string]any, len(wi.VariableInstances))
	for _, vi := range wi.VariableInstances {
		values[vi.VariableID] = vi.Value.Value
	}
	ex.AddFollowup(func() {
		if err := e.CompleteCall(callerID, callerAI, values); err != nil && !IsNotFound(err) {
			e.Log.Error("call completion failed",
				zap.String("caller_instance_id", callerID),
				zap.Error(err))
		}
	})
}

// CompleteCall resumes a call activity waiting on a finished
// sub-workflow, copying the callee's values through the activity's
// output bindings. Callers that ended in the meantime absorb the call
// silently.
func (e *Engine) CompleteCall(instanceID, activityInstanceID string, values map[string]any) error {
	return e.step(instanceID, false, func(ex *Execution) error {
		ai := ex.Instance.FindActivityInstance(activityInstanceID)
		if ai == nil {
			return &Error{Code: ErrCodeNotFound, Message: "call activity instance not found: " + activityInstanceID}
		}
		if !ai.Open() || ai.WorkState != types.WorkStateWaitingCall {
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
	})
}

// ---------------------------------------------------------------------
// Step driver

// step runs fn under the instance's single-writer lock, drains the work
// queue to quiescence, persists, and only then runs followups on other
// instances.
func (e *Engine) step(instanceID string, inJob bool, fn func(*Execution) error) error {
	wi, err := e.Store.LockInstance(instanceID)
	if err != nil {
		return e.wrapStoreErr(err)
	}
	wf, err := e.Store.WorkflowByID(wi.WorkflowID)
	if err != nil {
		e.Store.UnlockInstance(instanceID)
		return e.wrapStoreErr(err)
	}

	ex := newExecution(e, wf, wi)
	ex.inJob = inJob
	if err := fn(ex); err != nil {
		wi.ClearQueue()
		e.Store.UnlockInstance(instanceID)
		return err
	}
	if err := ex.drain(); err != nil {
		wi.ClearQueue()
		e.Store.UnlockInstance(instanceID)
		return err
	}
	if err := e.Store.SaveInstance(wi); err != nil {
		e.Store.UnlockInstance(instanceID)
		return err
	}
	for _, fu := range ex.followups {
		fu()
	}
	return nil
}

func (e *Engine) wrapStoreErr(err error) error {
	if store.IsNotFound(err) {
		return &Error{Code: ErrCodeNotFound, Message: err.Error(), Cause: err}
	}
	return err
}
