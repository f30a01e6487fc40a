package rest

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procflow/procflow/pkg/engine"
	"github.com/procflow/procflow/pkg/types"
)

const reviewWorkflowYAML = `
id: review
variables:
  - id: verdict
    type: string
activities:
  - id: start
    kind: startEvent
  - id: review
    kind: userTask
    outputs:
      verdict: verdict
  - id: done
    kind: endEvent
transitions:
  - from: start
    to: review
  - from: review
    to: done
`

func newTestServer() *Server {
	return NewServer(engine.New(engine.Config{}), DefaultConfig())
}

func deployReviewWorkflow(t *testing.T, s *Server) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/workflows", strings.NewReader(reviewWorkflowYAML))
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func startReviewInstance(t *testing.T, s *Server) StartInstanceResponse {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/workflows/review/instances", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out StartInstanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
}

func TestDeployWorkflowYAML(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/api/v1/workflows", strings.NewReader(reviewWorkflowYAML))
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out DeployResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "review", out.WorkflowID)
	assert.True(t, out.Deployed)
	assert.Empty(t, out.Errors)
}

func TestDeployWorkflowJSON(t *testing.T) {
	s := newTestServer()

	wf := types.Workflow{
		ID: "json-wf",
		Scope: types.Scope{
			Activities: []*types.Activity{
				{ID: "start", Kind: types.KindStartEvent},
				{ID: "done", Kind: types.KindEndEvent},
			},
			Transitions: []*types.Transition{
				{ID: "t", From: "start", To: "done"},
			},
		},
	}
	body, err := json.Marshal(&wf)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/workflows", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestDeployInvalidWorkflow(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/api/v1/workflows", strings.NewReader(`
id: broken
activities:
  - id: a
    kind: teleport
`))
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	var out DeployResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.False(t, out.Deployed)
	assert.NotEmpty(t, out.Errors)
}

func TestDeployMalformedBody(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/api/v1/workflows", strings.NewReader("{{ not yaml"))
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow(t *testing.T) {
	s := newTestServer()
	deployReviewWorkflow(t, s)

	req := httptest.NewRequest("GET", "/api/v1/workflows/review", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/workflows/nope", nil)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	var errResp ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "error_404", errResp.Error)
}

func TestInstanceLifecycle(t *testing.T) {
	s := newTestServer()
	deployReviewWorkflow(t, s)
	started := startReviewInstance(t, s)
	assert.False(t, started.Ended)

	// The instance waits on the user task.
	req := httptest.NewRequest("GET", "/api/v1/instances/"+started.InstanceID, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var wi types.WorkflowInstance
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wi))
	open := wi.FindOpenActivityInstances("review")
	require.Len(t, open, 1)

	msg, err := json.Marshal(SendMessageRequest{
		ActivityInstanceID: open[0].ID,
		Values:             map[string]any{"verdict": "approved"},
	})
	require.NoError(t, err)
	req = httptest.NewRequest("POST", "/api/v1/instances/"+started.InstanceID+"/messages", strings.NewReader(string(msg)))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The message response carries the instance after the step.
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wi))
	assert.True(t, wi.Ended())
}

func TestListInstances(t *testing.T) {
	s := newTestServer()
	deployReviewWorkflow(t, s)
	startReviewInstance(t, s)
	startReviewInstance(t, s)

	req := httptest.NewRequest("GET", "/api/v1/instances?workflow_id=review", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var instances []*types.WorkflowInstance
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&instances))
	assert.Len(t, instances, 2)

	req = httptest.NewRequest("GET", "/api/v1/instances?open_activity_id=nothing", nil)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(body))
}

func TestDeleteInstance(t *testing.T) {
	s := newTestServer()
	deployReviewWorkflow(t, s)
	started := startReviewInstance(t, s)

	req := httptest.NewRequest("DELETE", "/api/v1/instances/"+started.InstanceID, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var out DeleteInstancesResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Deleted)

	req = httptest.NewRequest("DELETE", "/api/v1/instances/"+started.InstanceID, nil)
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestSendMessageValidation(t *testing.T) {
	s := newTestServer()
	deployReviewWorkflow(t, s)
	started := startReviewInstance(t, s)

	req := httptest.NewRequest("POST", "/api/v1/instances/"+started.InstanceID+"/messages", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	msg := `{"activityInstanceId": "no-such-ai"}`
	req = httptest.NewRequest("POST", "/api/v1/instances/"+started.InstanceID+"/messages", strings.NewReader(msg))
	req.Header.Set("Content-Type", "application/json")
	resp, err = s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestRunDueJobs(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest("POST", "/api/v1/jobs/run", nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
