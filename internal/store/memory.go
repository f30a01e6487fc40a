package store

import (
	"sort"
	"sync"
	"time"

	"github.com/procflow/procflow/pkg/types"
)

// MemoryStore keeps workflows, instances and jobs in process memory.
// Instance locks are real mutexes, so concurrent steps on the same
// instance serialize instead of failing.
type MemoryStore struct {
	mu        sync.RWMutex
	workflows map[string]*types.Workflow
	instances map[string]*types.WorkflowInstance
	jobs      map[string]*types.Job
	locks     map[string]*sync.Mutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]*types.Workflow),
		instances: make(map[string]*types.WorkflowInstance),
		jobs:      make(map[string]*types.Job),
		locks:     make(map[string]*sync.Mutex),
	}
}

// SaveWorkflow persists a compiled workflow definition.
func (s *MemoryStore) SaveWorkflow(wf *types.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workflows[wf.ID] = wf
	return nil
}

// WorkflowByID loads a compiled workflow definition.
func (s *MemoryStore) WorkflowByID(id string) (*types.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[id]
	if !ok {
		return nil, &NotFoundError{Kind: "workflow", ID: id}
	}
	return wf, nil
}

// CreateInstance registers a new workflow instance.
func (s *MemoryStore) CreateInstance(wi *types.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[wi.ID] = wi
	s.locks[wi.ID] = &sync.Mutex{}
	return nil
}

// LockInstance acquires the instance's single-writer lock and returns
// the instance.
func (s *MemoryStore) LockInstance(id string) (*types.WorkflowInstance, error) {
	s.mu.RLock()
	wi, ok := s.instances[id]
	lock := s.locks[id]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Kind: "workflow instance", ID: id}
	}

	lock.Lock()

	// The instance may have been deleted while blocked on the lock.
	s.mu.RLock()
	_, stillThere := s.instances[id]
	s.mu.RUnlock()
	if !stillThere {
		lock.Unlock()
		return nil, &NotFoundError{Kind: "workflow instance", ID: id}
	}
	wi.Link()
	return wi, nil
}

// SaveInstance persists the instance and releases its lock. The memory
// store holds live pointers, so persisting is just the unlock.
func (s *MemoryStore) SaveInstance(wi *types.WorkflowInstance) error {
	s.UnlockInstance(wi.ID)
	return nil
}

// UnlockInstance releases the instance's lock without persisting.
func (s *MemoryStore) UnlockInstance(id string) {
	s.mu.RLock()
	lock := s.locks[id]
	s.mu.RUnlock()
	if lock != nil {
		lock.Unlock()
	}
}

// FindInstances returns the instances matching the query, ordered by id
// for deterministic results.
func (s *MemoryStore) FindInstances(q InstanceQuery) ([]*types.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.WorkflowInstance
	for _, wi := range s.instances {
		if matches(wi, q) {
			out = append(out, wi)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// DeleteInstances removes matching instances. Jobs referencing them are
// left behind and discarded by the scheduler as no-ops.
func (s *MemoryStore) DeleteInstances(q InstanceQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, wi := range s.instances {
		if matches(wi, q) {
			delete(s.instances, id)
			delete(s.locks, id)
			deleted++
		}
	}
	return deleted, nil
}

func matches(wi *types.WorkflowInstance, q InstanceQuery) bool {
	if q.InstanceID != "" && wi.ID != q.InstanceID {
		return false
	}
	if q.WorkflowID != "" && wi.WorkflowID != q.WorkflowID {
		return false
	}
	if q.OpenActivityID != "" && !wi.HasOpenActivity(q.OpenActivityID) {
		return false
	}
	// LockExpiredBefore only applies to stores with leased locks; the
	// memory store's mutex locks cannot expire.
	return true
}

// SaveJob inserts or updates a job.
func (s *MemoryStore) SaveJob(job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

// JobsDue returns jobs due at or before the given time, oldest first.
func (s *MemoryStore) JobsDue(before time.Time) ([]*types.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var due []*types.Job
	for _, j := range s.jobs {
		if !j.DueTime.After(before) {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].DueTime.Equal(due[j].DueTime) {
			return due[i].ID < due[j].ID
		}
		return due[i].DueTime.Before(due[j].DueTime)
	})
	return due, nil
}

// DeleteJob removes a job by id.
func (s *MemoryStore) DeleteJob(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}
