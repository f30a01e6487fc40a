package types

import "time"

// Job kinds handled by the built-in job-type registry.
const (
	JobKindBoundaryTimer = "boundary-timer"
	JobKindEscalation    = "escalation"
	JobKindReminder      = "reminder"
	JobKindAsyncActivity = "async-activity"
)

// Job is a persisted, due-time-triggered unit of deferred engine
// re-entry. Jobs whose target activity instance has ended are discarded
// without executing.
type Job struct {
	ID                 string         `yaml:"id" json:"id"`
	Kind               string         `yaml:"kind" json:"kind"`
	WorkflowInstanceID string         `yaml:"workflow_instance_id" json:"workflowInstanceId"`
	ActivityInstanceID string         `yaml:"activity_instance_id" json:"activityInstanceId"`
	DueTime            time.Time      `yaml:"due_time" json:"dueTime"`
	Retries            int            `yaml:"retries,omitempty" json:"retries,omitempty"`
	MaxRetries         int            `yaml:"max_retries,omitempty" json:"maxRetries,omitempty"`
	Data               map[string]any `yaml:"data,omitempty" json:"data,omitempty"`
}

// DataString returns a string entry of the job payload.
func (j *Job) DataString(key string) string {
	if j.Data == nil {
		return ""
	}
	s, _ := j.Data[key].(string)
	return s
}
