// Package types defines the core data structures of the process
// orchestration engine: the compiled workflow graph, the runtime scope
// instance tree, jobs, and the adapter exchange messages.
package types

import "time"

// Activity kind tags for the built-in behavior catalog.
const (
	KindStartEvent       = "startEvent"
	KindEndEvent         = "endEvent"
	KindExclusiveGateway = "exclusiveGateway"
	KindParallelGateway  = "parallelGateway"
	KindUserTask         = "userTask"
	KindReceiveTask      = "receiveTask"
	KindScriptTask       = "scriptTask"
	KindServiceTask      = "serviceTask"
	KindCallActivity     = "callActivity"
	KindSubProcess       = "subProcess"
)

// Workflow is a compiled, immutable workflow definition. It is shared by
// all instances of the deployed version and must not be mutated after
// Compile has run.
type Workflow struct {
	ID             string `yaml:"id,omitempty" json:"id"`
	Name           string `yaml:"name,omitempty" json:"name,omitempty"`
	OrganizationID string `yaml:"organization_id,omitempty" json:"organizationId,omitempty"`
	Version        int    `yaml:"version,omitempty" json:"version,omitempty"`

	Scope `yaml:",inline"`

	DeployedAt time.Time `yaml:"-" json:"deployedAt,omitempty"`
}

// Scope is one nesting level of a workflow: the workflow itself and every
// sub-process activity own a scope with activities, transitions and
// variables local to that level.
type Scope struct {
	Activities  []*Activity   `yaml:"activities,omitempty" json:"activities,omitempty"`
	Transitions []*Transition `yaml:"transitions,omitempty" json:"transitions,omitempty"`
	Variables   []*Variable   `yaml:"variables,omitempty" json:"variables,omitempty"`

	// Lookup tables, built once by Compile.
	activityByID   map[string]*Activity
	transitionByID map[string]*Transition
	variableByID   map[string]*Variable
	start          []*Activity
}

// Activity is a node in the workflow graph.
type Activity struct {
	ID   string `yaml:"id" json:"id"`
	Kind string `yaml:"kind" json:"kind"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// InputBindings supply named input parameters; OutputBindings map
	// named outputs to variable ids in the enclosing scope.
	InputBindings  map[string]*Binding `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	OutputBindings map[string]string   `yaml:"outputs,omitempty" json:"outputs,omitempty"`

	// DefaultTransitionID names the transition an exclusive gateway takes
	// when no guard matches.
	DefaultTransitionID string `yaml:"default_transition,omitempty" json:"defaultTransitionId,omitempty"`

	MultiInstance *MultiInstance     `yaml:"multi_instance,omitempty" json:"multiInstance,omitempty"`
	Timers        []*TimerDefinition `yaml:"timers,omitempty" json:"timers,omitempty"`

	// NestedScope holds the child scope of a sub-process activity.
	NestedScope *Scope `yaml:"scope,omitempty" json:"scope,omitempty"`

	// Kind-specific configuration.
	Script        string            `yaml:"script,omitempty" json:"script,omitempty"`
	ScriptOutputs map[string]string `yaml:"script_outputs,omitempty" json:"scriptOutputs,omitempty"`
	SubWorkflowID string            `yaml:"sub_workflow_id,omitempty" json:"subWorkflowId,omitempty"`
	ActivityKey   string            `yaml:"activity_key,omitempty" json:"activityKey,omitempty"`
	AdapterURL    string            `yaml:"adapter_url,omitempty" json:"adapterUrl,omitempty"`

	incoming []*Transition
	outgoing []*Transition
}

// Incoming returns the transitions arriving at this activity.
func (a *Activity) Incoming() []*Transition { return a.incoming }

// Outgoing returns the transitions leaving this activity, in declaration
// order.
func (a *Activity) Outgoing() []*Transition { return a.outgoing }

// IsParallelJoin reports whether entering this activity requires one token
// per incoming transition before it proceeds.
func (a *Activity) IsParallelJoin() bool {
	return a.Kind == KindParallelGateway && len(a.incoming) > 1
}

// Transition is a directed, optionally guarded edge between two
// activities in the same scope.
type Transition struct {
	ID   string `yaml:"id,omitempty" json:"id,omitempty"`
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`

	// Condition is a guard expression; an empty condition always passes.
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
}

// Variable declares a typed variable in a scope.
type Variable struct {
	ID           string `yaml:"id" json:"id"`
	Type         string `yaml:"type" json:"type"`
	InitialValue any    `yaml:"initial_value,omitempty" json:"initialValue,omitempty"`
}

// Join policies for multi-instance activities.
const (
	JoinAll   = "all"
	JoinAny   = "any"
	JoinCount = "count"
)

// MultiInstance replicates an activity into one child instance per element
// of a collection-valued binding.
type MultiInstance struct {
	Collection        *Binding `yaml:"collection" json:"collection"`
	ElementVariableID string   `yaml:"element_variable" json:"elementVariable"`
	Sequential        bool     `yaml:"sequential,omitempty" json:"sequential,omitempty"`

	// Join determines when the parent completes: all (default), any, or
	// count with JoinCount children ended.
	Join      string `yaml:"join,omitempty" json:"join,omitempty"`
	JoinCount int    `yaml:"join_count,omitempty" json:"joinCount,omitempty"`
}

// Satisfied reports whether the join policy is met with ended of total
// children ended.
func (m *MultiInstance) Satisfied(ended, total int) bool {
	switch m.Join {
	case JoinAny:
		return ended >= 1
	case JoinCount:
		return ended >= m.JoinCount
	default:
		return ended >= total
	}
}

// TimerDefinition declares a timer attached to an activity. The due time
// is computed once, when the owning activity instance is created.
type TimerDefinition struct {
	ID      string `yaml:"id,omitempty" json:"id,omitempty"`
	JobKind string `yaml:"job_kind" json:"jobKind"`

	// DueAfter is a relative duration ("1h30m"); DueAt an absolute time.
	// DueAfter wins when both are set.
	DueAfter string     `yaml:"due_after,omitempty" json:"dueAfter,omitempty"`
	DueAt    *time.Time `yaml:"due_at,omitempty" json:"dueAt,omitempty"`

	// TransitionID is the boundary transition a boundary-timer job takes.
	TransitionID string `yaml:"transition,omitempty" json:"transitionId,omitempty"`

	// Recipient is the notification target of escalation/reminder jobs.
	Recipient string `yaml:"recipient,omitempty" json:"recipient,omitempty"`

	MaxRetries int `yaml:"max_retries,omitempty" json:"maxRetries,omitempty"`
}

// Compile builds the lookup tables of the workflow and all nested scopes
// and wires incoming/outgoing transitions. Structural problems are
// reported on issues; the workflow is only usable when issues carries no
// errors.
func (w *Workflow) Compile(issues *Issues) {
	w.Scope.compile(issues)
}

func (s *Scope) compile(issues *Issues) {
	s.activityByID = make(map[string]*Activity, len(s.Activities))
	s.transitionByID = make(map[string]*Transition, len(s.Transitions))
	s.variableByID = make(map[string]*Variable, len(s.Variables))
	s.start = nil

	for _, a := range s.Activities {
		if a.ID == "" {
			issues.AddError("", "activity without id")
			continue
		}
		if _, dup := s.activityByID[a.ID]; dup {
			issues.AddError(a.ID, "duplicate activity id")
			continue
		}
		a.incoming = nil
		a.outgoing = nil
		s.activityByID[a.ID] = a
	}
	for _, v := range s.Variables {
		if _, dup := s.variableByID[v.ID]; dup {
			issues.AddError(v.ID, "duplicate variable id")
			continue
		}
		s.variableByID[v.ID] = v
	}
	for _, t := range s.Transitions {
		if t.ID != "" {
			s.transitionByID[t.ID] = t
		}
		from := s.activityByID[t.From]
		to := s.activityByID[t.To]
		if from == nil {
			issues.AddError(t.From, "transition from unknown activity")
			continue
		}
		if to == nil {
			issues.AddError(t.To, "transition to unknown activity")
			continue
		}
		from.outgoing = append(from.outgoing, t)
		to.incoming = append(to.incoming, t)
	}
	for _, a := range s.Activities {
		if a.Kind == KindStartEvent || len(a.incoming) == 0 {
			s.start = append(s.start, a)
		}
		if a.NestedScope != nil {
			a.NestedScope.compile(issues)
		}
	}
}

// ActivityByID looks up an activity in this scope only.
func (s *Scope) ActivityByID(id string) *Activity { return s.activityByID[id] }

// TransitionByID looks up a transition in this scope only.
func (s *Scope) TransitionByID(id string) *Transition { return s.transitionByID[id] }

// VariableByID looks up a variable declaration in this scope only.
func (s *Scope) VariableByID(id string) *Variable { return s.variableByID[id] }

// StartActivities returns the activities instantiated when the scope is
// entered: explicit start events plus activities with no incoming
// transition.
func (s *Scope) StartActivities() []*Activity { return s.start }
