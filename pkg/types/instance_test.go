package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueueOrder(t *testing.T) {
	wi := &WorkflowInstance{ID: "w"}
	a := &ActivityInstance{ID: "a"}
	b := &ActivityInstance{ID: "b"}

	wi.Enqueue(a)
	wi.Enqueue(b)
	assert.Equal(t, 2, wi.QueueLen())
	assert.Equal(t, WorkStateStarting, a.WorkState)

	got, ok := wi.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "a", got.ID)
	got, ok = wi.Dequeue()
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
	_, ok = wi.Dequeue()
	assert.False(t, ok)
}

func TestLinkRebuildsBackPointers(t *testing.T) {
	inner := &ActivityInstance{ID: "inner", ActivityID: "task"}
	outer := &ActivityInstance{ID: "outer", ActivityID: "sub"}
	outer.ActivityInstances = []*ActivityInstance{inner}
	wi := &WorkflowInstance{ID: "w"}
	wi.ActivityInstances = []*ActivityInstance{outer}

	wi.Link()

	assert.Nil(t, outer.Parent())
	assert.Same(t, wi, outer.Workflow())
	assert.Same(t, outer, inner.Parent())
	assert.Same(t, wi, inner.Workflow())
	assert.Same(t, &outer.ScopeInstance, inner.ParentScope())
	assert.Same(t, &wi.ScopeInstance, outer.ParentScope())
}

func TestFindActivityInstance(t *testing.T) {
	ended := time.Now()
	inner := &ActivityInstance{ID: "ai-2", ActivityID: "task"}
	closed := &ActivityInstance{ID: "ai-3", ActivityID: "task"}
	closed.End = &ended
	outer := &ActivityInstance{ID: "ai-1", ActivityID: "sub"}
	outer.ActivityInstances = []*ActivityInstance{inner, closed}
	wi := &WorkflowInstance{ID: "w"}
	wi.ActivityInstances = []*ActivityInstance{outer}

	assert.Same(t, inner, wi.FindActivityInstance("ai-2"))
	assert.Nil(t, wi.FindActivityInstance("ai-9"))

	open := wi.FindOpenActivityInstances("task")
	require.Len(t, open, 1)
	assert.Equal(t, "ai-2", open[0].ID)
	assert.True(t, wi.HasOpenActivity("task"))
	assert.False(t, wi.HasOpenActivity("other"))
}
