package rest

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/procflow/procflow/internal/parser"
	"github.com/procflow/procflow/pkg/engine"
	"github.com/procflow/procflow/pkg/types"
)

func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "ok"})
}

// deployWorkflow accepts a workflow definition as YAML (the notation) or
// JSON and deploys it. Validation errors come back as 422 with the
// issue list.
func (s *Server) deployWorkflow(c *fiber.Ctx) error {
	wf, err := decodeWorkflow(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	result, err := s.engine.Deploy(wf)
	if err != nil {
		return err
	}

	resp := DeployResponse{
		WorkflowID: result.WorkflowID,
		Deployed:   result.OK(),
		Warnings:   issueStrings(result.Warnings),
		Errors:     issueStrings(result.Errors),
	}
	if !result.OK() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func decodeWorkflow(c *fiber.Ctx) (*types.Workflow, error) {
	body := c.Body()
	if strings.Contains(c.Get(fiber.HeaderContentType), "json") {
		var wf types.Workflow
		if err := json.Unmarshal(body, &wf); err != nil {
			return nil, err
		}
		return &wf, nil
	}
	return parser.Parse(body)
}

func issueStrings(issues []types.Issue) []string {
	if len(issues) == 0 {
		return nil
	}
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}

func (s *Server) getWorkflow(c *fiber.Ctx) error {
	wf, err := s.engine.Workflow(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(wf)
}

func (s *Server) startInstance(c *fiber.Ctx) error {
	var req StartInstanceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}
	wi, err := s.engine.StartWorkflowInstance(c.Params("id"), req.Variables)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(StartInstanceResponse{
		InstanceID: wi.ID,
		Ended:      wi.Ended(),
	})
}

func (s *Server) listInstances(c *fiber.Ctx) error {
	q := engine.InstanceQuery{
		WorkflowID:     c.Query("workflow_id"),
		OpenActivityID: c.Query("open_activity_id"),
	}
	instances, err := s.engine.FindWorkflowInstances(q)
	if err != nil {
		return err
	}
	if instances == nil {
		instances = []*types.WorkflowInstance{}
	}
	return c.JSON(instances)
}

func (s *Server) getInstance(c *fiber.Ctx) error {
	wi, err := s.engine.WorkflowInstance(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(wi)
}

func (s *Server) deleteInstance(c *fiber.Ctx) error {
	n, err := s.engine.DeleteWorkflowInstances(engine.InstanceQuery{InstanceID: c.Params("id")})
	if err != nil {
		return err
	}
	if n == 0 {
		return fiber.NewError(fiber.StatusNotFound, "workflow instance not found")
	}
	return c.JSON(DeleteInstancesResponse{Deleted: n})
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if req.ActivityInstanceID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "activityInstanceId is required")
	}
	wi, err := s.engine.SendMessage(c.Params("id"), req.ActivityInstanceID, req.Values)
	if err != nil {
		return err
	}
	return c.JSON(wi)
}

// runDueJobs triggers one synchronous scheduler pass, mainly for tests
// and single-shot deployments without the background loop.
func (s *Server) runDueJobs(c *fiber.Ctx) error {
	if err := s.engine.RunDueJobs(); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
