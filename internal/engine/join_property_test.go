package engine_test

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/procflow/procflow/internal/engine"
	"github.com/procflow/procflow/pkg/types"
)

// wideForkJoinWorkflow forks into n user tasks that all meet at one
// parallel join.
func wideForkJoinWorkflow(n int) *types.Workflow {
	wf := &types.Workflow{
		ID: "wide",
		Scope: types.Scope{
			Activities: []*types.Activity{
				{ID: "start", Kind: types.KindStartEvent},
				{ID: "fork", Kind: types.KindParallelGateway},
				{ID: "join", Kind: types.KindParallelGateway},
				{ID: "done", Kind: types.KindEndEvent},
			},
			Transitions: []*types.Transition{
				{ID: "s", From: "start", To: "fork"},
				{ID: "jd", From: "join", To: "done"},
			},
		},
	}
	for i := 0; i < n; i++ {
		task := fmt.Sprintf("task%d", i)
		wf.Activities = append(wf.Activities, &types.Activity{ID: task, Kind: types.KindUserTask})
		wf.Transitions = append(wf.Transitions,
			&types.Transition{ID: "f" + task, From: "fork", To: task},
			&types.Transition{ID: task + "j", From: task, To: "join"},
		)
	}
	return wf
}

// TestJoinCompletionOrderInvariant checks that for any number of
// branches and any completion order, the join runs exactly once and the
// instance ends exactly when the last token arrives.
func TestJoinCompletionOrderInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(2, 6).Draw(t, "branches")
		order := rapid.Permutation(taskIDs(n)).Draw(t, "order")

		e, _ := newTestEngine(nil, nil)
		result, err := e.Deploy(wideForkJoinWorkflow(n))
		if err != nil || !result.OK() {
			t.Fatalf("deploy failed: %v %v", err, result)
		}
		wi, err := e.StartInstance("wide", engine.StartOptions{})
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		for i, task := range order {
			current, err := e.InstanceByID(wi.ID)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			open := current.FindOpenActivityInstances(task)
			if len(open) != 1 {
				t.Fatalf("expected one open %s, got %d", task, len(open))
			}
			if err := e.SendMessage(wi.ID, open[0].ID, nil); err != nil {
				t.Fatalf("message failed: %v", err)
			}

			current, err = e.InstanceByID(wi.ID)
			if err != nil {
				t.Fatalf("load failed: %v", err)
			}
			lastToken := i == len(order)-1
			if current.Ended() != lastToken {
				t.Fatalf("after %d/%d tokens ended=%v", i+1, n, current.Ended())
			}
			if got := len(instancesOf(current, "join")); got != 1 {
				t.Fatalf("join instantiated %d times", got)
			}
		}

		final, err := e.InstanceByID(wi.ID)
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if len(instancesOf(final, "done")) != 1 {
			t.Fatalf("done not reached exactly once")
		}
	})
}

func taskIDs(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("task%d", i)
	}
	return out
}
