package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procflow/procflow/pkg/types"
)

func TestWorkflowRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	wf := &types.Workflow{ID: "wf-1", Name: "demo"}
	require.NoError(t, s.SaveWorkflow(wf))

	got, err := s.WorkflowByID("wf-1")
	require.NoError(t, err)
	assert.Equal(t, "demo", got.Name)

	_, err = s.WorkflowByID("nope")
	assert.True(t, IsNotFound(err))
}

func TestInstanceLockSerializesSteps(t *testing.T) {
	s := NewMemoryStore()
	wi := &types.WorkflowInstance{ID: "i-1", WorkflowID: "wf-1"}
	require.NoError(t, s.CreateInstance(wi))

	const steps = 50
	counter := 0
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < steps; i++ {
				locked, err := s.LockInstance("i-1")
				if !assert.NoError(t, err) {
					return
				}
				counter++
				assert.NoError(t, s.SaveInstance(locked))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 4*steps, counter)
}

func TestLockInstanceAfterDelete(t *testing.T) {
	s := NewMemoryStore()
	wi := &types.WorkflowInstance{ID: "i-1", WorkflowID: "wf-1"}
	require.NoError(t, s.CreateInstance(wi))

	n, err := s.DeleteInstances(InstanceQuery{InstanceID: "i-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.LockInstance("i-1")
	assert.True(t, IsNotFound(err))
}

func TestFindInstances(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	open := &types.WorkflowInstance{ID: "i-1", WorkflowID: "wf-1"}
	open.ActivityInstances = []*types.ActivityInstance{
		{ID: "ai-1", ActivityID: "approve"},
	}
	ended := &types.WorkflowInstance{ID: "i-2", WorkflowID: "wf-2"}
	ended.End = &now
	require.NoError(t, s.CreateInstance(open))
	require.NoError(t, s.CreateInstance(ended))

	all, err := s.FindInstances(InstanceQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "i-1", all[0].ID)

	byWorkflow, err := s.FindInstances(InstanceQuery{WorkflowID: "wf-2"})
	require.NoError(t, err)
	require.Len(t, byWorkflow, 1)
	assert.Equal(t, "i-2", byWorkflow[0].ID)

	byActivity, err := s.FindInstances(InstanceQuery{OpenActivityID: "approve"})
	require.NoError(t, err)
	require.Len(t, byActivity, 1)
	assert.Equal(t, "i-1", byActivity[0].ID)

	none, err := s.FindInstances(InstanceQuery{OpenActivityID: "missing"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestJobsDueOrdering(t *testing.T) {
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveJob(&types.Job{ID: "j-late", DueTime: base.Add(time.Hour)}))
	require.NoError(t, s.SaveJob(&types.Job{ID: "j-b", DueTime: base}))
	require.NoError(t, s.SaveJob(&types.Job{ID: "j-a", DueTime: base}))
	require.NoError(t, s.SaveJob(&types.Job{ID: "j-future", DueTime: base.Add(24 * time.Hour)}))

	due, err := s.JobsDue(base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []string{"j-a", "j-b", "j-late"}, []string{due[0].ID, due[1].ID, due[2].ID})

	require.NoError(t, s.DeleteJob("j-a"))
	due, err = s.JobsDue(base)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "j-b", due[0].ID)
}
