package types

// ExecuteRequest is the in-process shape of the exchange sent to an
// out-of-process activity adapter.
type ExecuteRequest struct {
	ActivityKey        string                `json:"activityKey"`
	WorkflowInstanceID string                `json:"workflowInstanceId"`
	ActivityInstanceID string                `json:"activityInstanceId"`
	InputParameters    map[string]TypedValue `json:"inputParameters,omitempty"`
}

// ExecuteResponse is the adapter's reply. When Onwards is true the engine
// applies the output parameter values and continues past the activity;
// otherwise the activity instance stays open awaiting a later message.
type ExecuteResponse struct {
	OutputParameterValues map[string]any `json:"outputParameterValues,omitempty"`
	Onwards               bool           `json:"onwards"`
}
