package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procflow/procflow/pkg/types"
)

const orderWorkflowYAML = `
id: order
name: Order handling
variables:
  - id: amount
    type: number
  - id: approved
    type: boolean
activities:
  - id: start
    kind: startEvent
  - id: review
    kind: userTask
    inputs:
      summary:
        template: "order over {{amount}}"
    outputs:
      approved: approved
    timers:
      - job_kind: reminder
        due_after: 24h
        recipient: reviews@example.com
  - id: decide
    kind: exclusiveGateway
    default_transition: reject
  - id: accepted
    kind: endEvent
  - id: rejected
    kind: endEvent
transitions:
  - from: start
    to: review
  - from: review
    to: decide
  - id: accept
    from: decide
    to: accepted
    condition: approved == true
  - id: reject
    from: decide
    to: rejected
`

func TestParseWorkflow(t *testing.T) {
	wf, err := Parse([]byte(orderWorkflowYAML))
	require.NoError(t, err)

	assert.Equal(t, "order", wf.ID)
	assert.Equal(t, "Order handling", wf.Name)
	require.Len(t, wf.Activities, 5)
	require.Len(t, wf.Transitions, 4)
	require.Len(t, wf.Variables, 2)

	review := wf.Activities[1]
	assert.Equal(t, types.KindUserTask, review.Kind)
	require.Contains(t, review.InputBindings, "summary")
	assert.Equal(t, "order over {{amount}}", review.InputBindings["summary"].Template)
	assert.Equal(t, "approved", review.OutputBindings["approved"])
	require.Len(t, review.Timers, 1)
	assert.Equal(t, "reminder", review.Timers[0].JobKind)

	decide := wf.Activities[2]
	assert.Equal(t, "reject", decide.DefaultTransitionID)
}

func TestParseGeneratesTransitionIDs(t *testing.T) {
	wf, err := Parse([]byte(orderWorkflowYAML))
	require.NoError(t, err)

	assert.Equal(t, "start->review", wf.Transitions[0].ID)
	assert.Equal(t, "review->decide", wf.Transitions[1].ID)
	// Declared ids stay untouched.
	assert.Equal(t, "accept", wf.Transitions[2].ID)
	assert.Equal(t, "reject", wf.Transitions[3].ID)
}

func TestParseGeneratedIDCollision(t *testing.T) {
	wf, err := Parse([]byte(`
activities:
  - id: a
    kind: userTask
  - id: b
    kind: userTask
transitions:
  - from: a
    to: b
  - from: a
    to: b
`))
	require.NoError(t, err)
	assert.Equal(t, "a->b", wf.Transitions[0].ID)
	assert.Equal(t, "a->b#2", wf.Transitions[1].ID)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("id: x\nbogus_field: 1\n"))
	assert.Error(t, err)
}

func TestParseNestedScope(t *testing.T) {
	wf, err := Parse([]byte(`
id: nested
activities:
  - id: sub
    kind: subProcess
    scope:
      activities:
        - id: inner-a
          kind: userTask
        - id: inner-b
          kind: endEvent
      transitions:
        - from: inner-a
          to: inner-b
`))
	require.NoError(t, err)
	sub := wf.Activities[0]
	require.NotNil(t, sub.NestedScope)
	assert.Equal(t, "inner-a->inner-b", sub.NestedScope.Transitions[0].ID)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(orderWorkflowYAML), 0o600))

	wf, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "order", wf.ID)

	_, err = ParseFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
