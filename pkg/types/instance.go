package types

import "time"

// WorkState marks why an open activity instance is not advancing on its
// own: it is queued for execution or parked on an external event.
type WorkState string

const (
	// WorkStateStarting marks an instance queued for execution.
	WorkStateStarting WorkState = "starting"
	// WorkStateWaitingMessage marks an instance parked until a message
	// arrives.
	WorkStateWaitingMessage WorkState = "waiting-message"
	// WorkStateWaitingJob marks an instance parked until a job fires.
	WorkStateWaitingJob WorkState = "waiting-job"
	// WorkStateWaitingCall marks a call activity parked until its
	// sub-workflow instance ends.
	WorkStateWaitingCall WorkState = "waiting-call"
	// WorkStateJoining marks a parallel join collecting tokens.
	WorkStateJoining WorkState = "joining"
	// WorkStateNone marks an instance with no pending work.
	WorkStateNone WorkState = ""
)

// ScopeInstance is the runtime counterpart of a Scope: the mutable state
// one nesting level contributes to a workflow instance.
type ScopeInstance struct {
	Start time.Time  `yaml:"start" json:"start"`
	End   *time.Time `yaml:"end,omitempty" json:"end,omitempty"`

	ActivityInstances []*ActivityInstance `yaml:"activity_instances,omitempty" json:"activityInstances,omitempty"`
	VariableInstances []*VariableInstance `yaml:"variable_instances,omitempty" json:"variableInstances,omitempty"`
	TimerInstances    []*TimerInstance    `yaml:"timer_instances,omitempty" json:"timerInstances,omitempty"`
}

// Open reports whether the scope instance has not ended yet. Once ended a
// scope instance is immutable and retained for history only.
func (s *ScopeInstance) Open() bool { return s.End == nil }

// OpenActivityInstances returns the direct children that are still open.
func (s *ScopeInstance) OpenActivityInstances() []*ActivityInstance {
	var open []*ActivityInstance
	for _, ai := range s.ActivityInstances {
		if ai.Open() {
			open = append(open, ai)
		}
	}
	return open
}

// WorkflowInstance is the root of one running workflow's scope instance
// tree. It is mutated only by the engine goroutine holding its lock.
type WorkflowInstance struct {
	ID             string `yaml:"id" json:"id"`
	OrganizationID string `yaml:"organization_id,omitempty" json:"organizationId,omitempty"`
	WorkflowID     string `yaml:"workflow_id" json:"workflowId"`

	// Caller correlation, set when this instance was started by a call
	// activity of another instance.
	CallerInstanceID         string `yaml:"caller_instance_id,omitempty" json:"callerInstanceId,omitempty"`
	CallerActivityInstanceID string `yaml:"caller_activity_instance_id,omitempty" json:"callerActivityInstanceId,omitempty"`

	ScopeInstance `yaml:",inline"`

	// workQueue holds activity instances waiting to be executed within
	// the current step. Transient: never persisted, always empty between
	// steps.
	workQueue []*ActivityInstance
}

// Ended reports whether the instance has run to completion.
func (w *WorkflowInstance) Ended() bool { return w.End != nil }

// Enqueue appends an activity instance to the work queue.
func (w *WorkflowInstance) Enqueue(ai *ActivityInstance) {
	ai.WorkState = WorkStateStarting
	w.workQueue = append(w.workQueue, ai)
}

// Dequeue pops the next queued activity instance, in arrival order.
func (w *WorkflowInstance) Dequeue() (*ActivityInstance, bool) {
	if len(w.workQueue) == 0 {
		return nil, false
	}
	ai := w.workQueue[0]
	w.workQueue = w.workQueue[1:]
	return ai, true
}

// QueueLen returns the number of queued activity instances.
func (w *WorkflowInstance) QueueLen() int { return len(w.workQueue) }

// ClearQueue drops all queued activity instances. Called when a step
// aborts, so a later step never resumes half of an aborted drain.
func (w *WorkflowInstance) ClearQueue() { w.workQueue = nil }

// ActivityInstance is the runtime occurrence of one activity. Activities
// with nested scopes (sub-processes, multi-instance parents) carry child
// instances in their embedded ScopeInstance.
type ActivityInstance struct {
	ID         string    `yaml:"id" json:"id"`
	ActivityID string    `yaml:"activity_id" json:"activityId"`
	WorkState  WorkState `yaml:"work_state,omitempty" json:"workState,omitempty"`

	// JoinTokens counts arrived tokens while this instance is a parallel
	// join point.
	JoinTokens int `yaml:"join_tokens,omitempty" json:"joinTokens,omitempty"`

	// CalledInstanceID references the sub-workflow instance started by a
	// call activity.
	CalledInstanceID string `yaml:"called_instance_id,omitempty" json:"calledInstanceId,omitempty"`

	// ElementCount is the number of element children a multi-instance
	// parent expects over its whole run.
	ElementCount int `yaml:"element_count,omitempty" json:"elementCount,omitempty"`

	ScopeInstance `yaml:",inline"`

	parent   *ActivityInstance
	workflow *WorkflowInstance
}

// Open reports whether the activity instance has not ended yet.
func (a *ActivityInstance) Open() bool { return a.End == nil }

// Parent returns the enclosing activity instance, or nil when the parent
// scope is the workflow root.
func (a *ActivityInstance) Parent() *ActivityInstance { return a.parent }

// Workflow returns the workflow instance owning this tree.
func (a *ActivityInstance) Workflow() *WorkflowInstance { return a.workflow }

// ParentScope returns the scope instance this activity instance lives in.
func (a *ActivityInstance) ParentScope() *ScopeInstance {
	if a.parent != nil {
		return &a.parent.ScopeInstance
	}
	return &a.workflow.ScopeInstance
}

// VariableInstance holds the current typed value of one variable in one
// scope instance. It shadows instances of the same variable id in outer
// scopes.
type VariableInstance struct {
	ID         string     `yaml:"id" json:"id"`
	VariableID string     `yaml:"variable_id" json:"variableId"`
	Value      TypedValue `yaml:"value" json:"value"`
}

// TimerInstance records a scheduled timer of an open activity instance.
// The authoritative due-time state lives in the job store; the timer
// instance is kept for history and queries.
type TimerInstance struct {
	ID      string    `yaml:"id" json:"id"`
	JobID   string    `yaml:"job_id" json:"jobId"`
	JobKind string    `yaml:"job_kind" json:"jobKind"`
	DueTime time.Time `yaml:"due_time" json:"dueTime"`
}

// Link rebuilds the transient parent and workflow back-pointers of the
// whole tree. It must be called after constructing or loading an
// instance.
func (w *WorkflowInstance) Link() {
	for _, ai := range w.ActivityInstances {
		ai.link(nil, w)
	}
}

func (a *ActivityInstance) link(parent *ActivityInstance, w *WorkflowInstance) {
	a.parent = parent
	a.workflow = w
	for _, child := range a.ActivityInstances {
		child.link(a, w)
	}
}

// Adopt links a freshly created child activity instance into the tree
// under the given parent (nil for the root scope).
func (w *WorkflowInstance) Adopt(ai *ActivityInstance, parent *ActivityInstance) {
	ai.link(parent, w)
}

// FindActivityInstance searches the whole tree for an activity instance
// by id.
func (w *WorkflowInstance) FindActivityInstance(id string) *ActivityInstance {
	return findActivityInstance(w.ActivityInstances, id)
}

func findActivityInstance(list []*ActivityInstance, id string) *ActivityInstance {
	for _, ai := range list {
		if ai.ID == id {
			return ai
		}
		if found := findActivityInstance(ai.ActivityInstances, id); found != nil {
			return found
		}
	}
	return nil
}

// FindOpenActivityInstances collects all open instances of the given
// activity id anywhere in the tree.
func (w *WorkflowInstance) FindOpenActivityInstances(activityID string) []*ActivityInstance {
	var out []*ActivityInstance
	collectOpen(w.ActivityInstances, activityID, &out)
	return out
}

func collectOpen(list []*ActivityInstance, activityID string, out *[]*ActivityInstance) {
	for _, ai := range list {
		if ai.Open() && ai.ActivityID == activityID {
			*out = append(*out, ai)
		}
		collectOpen(ai.ActivityInstances, activityID, out)
	}
}

// HasOpenActivity reports whether any open instance of the activity id
// exists in the tree.
func (w *WorkflowInstance) HasOpenActivity(activityID string) bool {
	return len(w.FindOpenActivityInstances(activityID)) > 0
}
