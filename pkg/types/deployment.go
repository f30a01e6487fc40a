package types

import "fmt"

// Issue levels.
const (
	IssueWarning = "warning"
	IssueError   = "error"
)

// Issue is one compile-time diagnostic attached to a deployment.
type Issue struct {
	Level      string `json:"level"`
	ActivityID string `json:"activityId,omitempty"`
	Message    string `json:"message"`
}

func (i Issue) String() string {
	if i.ActivityID != "" {
		return fmt.Sprintf("%s [%s]: %s", i.Level, i.ActivityID, i.Message)
	}
	return fmt.Sprintf("%s: %s", i.Level, i.Message)
}

// Issues collects diagnostics produced while compiling a workflow.
// Errors block deployment; warnings do not.
type Issues struct {
	list []Issue
}

// AddError records an error-level issue.
func (is *Issues) AddError(activityID, format string, args ...any) {
	is.list = append(is.list, Issue{Level: IssueError, ActivityID: activityID, Message: fmt.Sprintf(format, args...)})
}

// AddWarning records a warning-level issue.
func (is *Issues) AddWarning(activityID, format string, args ...any) {
	is.list = append(is.list, Issue{Level: IssueWarning, ActivityID: activityID, Message: fmt.Sprintf(format, args...)})
}

// HasErrors reports whether any error-level issue was recorded.
func (is *Issues) HasErrors() bool {
	for _, i := range is.list {
		if i.Level == IssueError {
			return true
		}
	}
	return false
}

// Errors returns the error-level issues.
func (is *Issues) Errors() []Issue { return is.filter(IssueError) }

// Warnings returns the warning-level issues.
func (is *Issues) Warnings() []Issue { return is.filter(IssueWarning) }

func (is *Issues) filter(level string) []Issue {
	var out []Issue
	for _, i := range is.list {
		if i.Level == level {
			out = append(out, i)
		}
	}
	return out
}

// DeploymentResult reports the outcome of deploying a workflow. When
// Errors is non-empty no usable definition was created.
type DeploymentResult struct {
	WorkflowID string  `json:"workflowId,omitempty"`
	Warnings   []Issue `json:"warnings,omitempty"`
	Errors     []Issue `json:"errors,omitempty"`
}

// OK reports whether the deployment produced a usable definition.
func (r *DeploymentResult) OK() bool { return len(r.Errors) == 0 }
