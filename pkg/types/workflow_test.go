package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileWiresTransitions(t *testing.T) {
	wf := &Workflow{
		ID: "wired",
		Scope: Scope{
			Activities: []*Activity{
				{ID: "start", Kind: KindStartEvent},
				{ID: "fork", Kind: KindParallelGateway},
				{ID: "a", Kind: KindUserTask},
				{ID: "b", Kind: KindUserTask},
				{ID: "join", Kind: KindParallelGateway},
			},
			Transitions: []*Transition{
				{ID: "t1", From: "start", To: "fork"},
				{ID: "t2", From: "fork", To: "a"},
				{ID: "t3", From: "fork", To: "b"},
				{ID: "t4", From: "a", To: "join"},
				{ID: "t5", From: "b", To: "join"},
			},
		},
	}

	var issues Issues
	wf.Compile(&issues)
	require.False(t, issues.HasErrors())

	fork := wf.ActivityByID("fork")
	require.NotNil(t, fork)
	assert.Len(t, fork.Outgoing(), 2)
	assert.Len(t, fork.Incoming(), 1)
	assert.False(t, fork.IsParallelJoin())

	join := wf.ActivityByID("join")
	assert.Len(t, join.Incoming(), 2)
	assert.True(t, join.IsParallelJoin())

	assert.NotNil(t, wf.TransitionByID("t3"))
	assert.Nil(t, wf.TransitionByID("missing"))
}

func TestCompileStartActivities(t *testing.T) {
	wf := &Workflow{
		Scope: Scope{
			Activities: []*Activity{
				{ID: "start", Kind: KindStartEvent},
				{ID: "orphan", Kind: KindUserTask},
				{ID: "done", Kind: KindEndEvent},
			},
			Transitions: []*Transition{
				{ID: "t", From: "start", To: "done"},
			},
		},
	}

	var issues Issues
	wf.Compile(&issues)
	require.False(t, issues.HasErrors())

	var ids []string
	for _, a := range wf.StartActivities() {
		ids = append(ids, a.ID)
	}
	// Explicit start events plus activities without incoming transitions.
	assert.ElementsMatch(t, []string{"start", "orphan"}, ids)
}

func TestCompileReportsStructuralErrors(t *testing.T) {
	wf := &Workflow{
		Scope: Scope{
			Activities: []*Activity{
				{ID: "a", Kind: KindUserTask},
				{ID: "a", Kind: KindUserTask},
				{ID: "", Kind: KindUserTask},
			},
			Transitions: []*Transition{
				{ID: "t1", From: "a", To: "nowhere"},
				{ID: "t2", From: "nowhere", To: "a"},
			},
		},
	}

	var issues Issues
	wf.Compile(&issues)
	assert.True(t, issues.HasErrors())
	assert.Len(t, issues.Errors(), 4)
}

func TestCompileNestedScope(t *testing.T) {
	wf := &Workflow{
		Scope: Scope{
			Activities: []*Activity{
				{
					ID:   "sub",
					Kind: KindSubProcess,
					NestedScope: &Scope{
						Activities: []*Activity{
							{ID: "inner", Kind: KindStartEvent},
						},
					},
				},
			},
		},
	}

	var issues Issues
	wf.Compile(&issues)
	require.False(t, issues.HasErrors())
	assert.NotNil(t, wf.Activities[0].NestedScope.ActivityByID("inner"))
}

func TestMultiInstanceSatisfied(t *testing.T) {
	all := &MultiInstance{}
	assert.False(t, all.Satisfied(2, 3))
	assert.True(t, all.Satisfied(3, 3))

	anyJoin := &MultiInstance{Join: JoinAny}
	assert.False(t, anyJoin.Satisfied(0, 3))
	assert.True(t, anyJoin.Satisfied(1, 3))

	count := &MultiInstance{Join: JoinCount, JoinCount: 2}
	assert.False(t, count.Satisfied(1, 3))
	assert.True(t, count.Satisfied(2, 3))
}

func TestIssueString(t *testing.T) {
	assert.Equal(t, "error [pay]: boom", Issue{Level: IssueError, ActivityID: "pay", Message: "boom"}.String())
	assert.Equal(t, "warning: hmm", Issue{Level: IssueWarning, Message: "hmm"}.String())
}
