package rest

// ErrorResponse represents an error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DeployResponse reports a deployment's outcome.
type DeployResponse struct {
	WorkflowID string   `json:"workflowId"`
	Deployed   bool     `json:"deployed"`
	Warnings   []string `json:"warnings,omitempty"`
	Errors     []string `json:"errors,omitempty"`
}

// StartInstanceRequest starts one instance of a deployed workflow.
type StartInstanceRequest struct {
	Variables map[string]any `json:"variables,omitempty"`
}

// StartInstanceResponse returns the new instance's identity and state.
type StartInstanceResponse struct {
	InstanceID string `json:"instanceId"`
	Ended      bool   `json:"ended"`
}

// SendMessageRequest delivers values to a waiting activity instance.
type SendMessageRequest struct {
	ActivityInstanceID string         `json:"activityInstanceId"`
	Values             map[string]any `json:"values,omitempty"`
}

// DeleteInstancesResponse reports how many instances were removed.
type DeleteInstancesResponse struct {
	Deleted int `json:"deleted"`
}

// HealthResponse is the health check reply.
type HealthResponse struct {
	Status string `json:"status"`
}
