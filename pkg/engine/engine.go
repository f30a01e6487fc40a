// Package engine is the embeddable public façade of the orchestration
// engine: deployment, instance lifecycle, messaging, queries and the job
// scheduler, wired over pluggable storage, script and adapter
// collaborators.
package engine

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/procflow/procflow/internal/activity"
	"github.com/procflow/procflow/internal/adapter"
	internal "github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/internal/job"
	"github.com/procflow/procflow/internal/script"
	"github.com/procflow/procflow/internal/store"
	"github.com/procflow/procflow/pkg/types"
)

// InstanceQuery re-exports the store's instance filter.
type InstanceQuery = store.InstanceQuery

// Notification re-exports the engine's timer notification event.
type Notification = internal.Notification

// Notifier re-exports the engine's notification sink.
type Notifier = internal.Notifier

// Config assembles an Engine. All fields are optional.
type Config struct {
	// Store persists workflows, instances and jobs. Defaults to the
	// in-memory store.
	Store store.Store
	// ScriptTimeout bounds one script-task evaluation.
	ScriptTimeout time.Duration
	// AdapterTimeout bounds one adapter call.
	AdapterTimeout time.Duration
	// Invoker overrides the HTTP adapter transport.
	Invoker adapter.Invoker
	// JobPollInterval is the scheduler's polling period.
	JobPollInterval time.Duration
	// Notifier receives escalation and reminder events.
	Notifier Notifier
	// Clock defaults to the system clock.
	Clock clockwork.Clock
	// Log defaults to a no-op logger.
	Log *zap.Logger
}

// Engine is the embeddable orchestration engine.
type Engine struct {
	core      *internal.Engine
	scheduler *job.Scheduler
}

// New creates an engine with the built-in activity behaviors registered.
func New(cfg Config) *Engine {
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = 10 * time.Second
	}
	if cfg.AdapterTimeout <= 0 {
		cfg.AdapterTimeout = 30 * time.Second
	}

	if cfg.Invoker == nil {
		cfg.Invoker = adapter.NewHTTPInvoker(cfg.AdapterTimeout)
	}

	catalog := internal.NewCatalog()
	activity.RegisterBuiltins(catalog, activity.Deps{
		ScriptRunner: script.NewRunner(cfg.ScriptTimeout),
		Invoker:      cfg.Invoker,
	})

	core := internal.New(internal.Config{
		Store:    cfg.Store,
		Catalog:  catalog,
		Clock:    cfg.Clock,
		Log:      cfg.Log,
		Notifier: cfg.Notifier,
	})
	return &Engine{
		core:      core,
		scheduler: job.NewScheduler(core, cfg.Store, cfg.Clock, cfg.Log, cfg.JobPollInterval),
	}
}

// Start launches the background job scheduler.
func (e *Engine) Start() { e.scheduler.Start() }

// Stop halts the background job scheduler.
func (e *Engine) Stop() { e.scheduler.Stop() }

// Deploy compiles, validates and stores a workflow definition. A result
// with errors means nothing was stored.
func (e *Engine) Deploy(wf *types.Workflow) (*types.DeploymentResult, error) {
	return e.core.Deploy(wf)
}

// Workflow loads a deployed workflow definition.
func (e *Engine) Workflow(id string) (*types.Workflow, error) {
	return e.core.WorkflowByID(id)
}

// StartWorkflowInstance creates an instance of a deployed workflow with
// the given initial variable values and runs it until quiescent.
func (e *Engine) StartWorkflowInstance(workflowID string, variables map[string]any) (*types.WorkflowInstance, error) {
	return e.core.StartInstance(workflowID, internal.StartOptions{Variables: variables})
}

// SendMessage delivers values to an open, waiting activity instance and
// returns the instance after the resulting step.
func (e *Engine) SendMessage(instanceID, activityInstanceID string, values map[string]any) (*types.WorkflowInstance, error) {
	if err := e.core.SendMessage(instanceID, activityInstanceID, values); err != nil {
		return nil, err
	}
	return e.core.InstanceByID(instanceID)
}

// WorkflowInstance loads one instance by id.
func (e *Engine) WorkflowInstance(id string) (*types.WorkflowInstance, error) {
	return e.core.InstanceByID(id)
}

// FindWorkflowInstances returns the instances matching the query.
func (e *Engine) FindWorkflowInstances(q InstanceQuery) ([]*types.WorkflowInstance, error) {
	return e.core.FindInstances(q)
}

// DeleteWorkflowInstances removes matching instances and reports how
// many were removed.
func (e *Engine) DeleteWorkflowInstances(q InstanceQuery) (int, error) {
	return e.core.DeleteInstances(q)
}

// RunDueJobs executes all currently due jobs synchronously. Embedders
// without the background scheduler call this from their own loop.
func (e *Engine) RunDueJobs() error {
	return e.scheduler.RunDueJobs()
}

// IsNotFound reports whether err denotes a missing workflow, instance or
// activity instance.
func IsNotFound(err error) bool { return internal.IsNotFound(err) }
