// Package store defines the persistence contract the engine requires
// from its storage collaborator, plus an in-memory implementation used
// for embedding and tests.
package store

import (
	"fmt"
	"time"

	"github.com/procflow/procflow/pkg/types"
)

// NotFoundError reports a missing workflow, instance or job.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// InstanceQuery filters workflow instances. Zero fields do not filter.
type InstanceQuery struct {
	// InstanceID matches one instance by id.
	InstanceID string
	// WorkflowID matches instances of one deployed definition.
	WorkflowID string
	// OpenActivityID matches instances with an open instance of the
	// given activity id.
	OpenActivityID string
	// LockExpiredBefore matches instances whose lock expired before the
	// given time.
	LockExpiredBefore *time.Time
}

// Store is the persistence contract of the engine. Implementations must
// guarantee single-writer semantics per workflow instance: LockInstance
// blocks (or fails) while another step on the same instance is in
// flight.
type Store interface {
	// SaveWorkflow persists a compiled workflow definition.
	SaveWorkflow(wf *types.Workflow) error
	// WorkflowByID loads a compiled workflow definition.
	WorkflowByID(id string) (*types.Workflow, error)

	// CreateInstance registers a new workflow instance.
	CreateInstance(wi *types.WorkflowInstance) error
	// LockInstance acquires the instance's single-writer lock and
	// returns the instance.
	LockInstance(id string) (*types.WorkflowInstance, error)
	// SaveInstance persists the instance's state and releases its lock.
	SaveInstance(wi *types.WorkflowInstance) error
	// UnlockInstance releases the lock without persisting, for abort
	// paths.
	UnlockInstance(id string)
	// FindInstances returns the instances matching the query.
	FindInstances(q InstanceQuery) ([]*types.WorkflowInstance, error)
	// DeleteInstances removes the instances matching the query and
	// returns how many were removed. Jobs referencing them become
	// no-ops.
	DeleteInstances(q InstanceQuery) (int, error)

	// SaveJob inserts or updates a job.
	SaveJob(job *types.Job) error
	// JobsDue returns jobs whose due time is not after the given time.
	JobsDue(before time.Time) ([]*types.Job, error)
	// DeleteJob removes a job by id.
	DeleteJob(id string) error
}
