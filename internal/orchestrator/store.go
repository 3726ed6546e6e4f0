// Package orchestrator implements the Job Orchestrator: it accepts
// scenario submissions, runs the modeling pipeline in a background
// goroutine per job, and tracks job state through to completion.
package orchestrator

import (
	"errors"
	"sync"

	"github.com/gsudice/nsf-cosea/internal/model"
)

// ErrJobNotFound is returned by Get when no job exists for the given ID.
var ErrJobNotFound = errors.New("orchestrator: job not found")

// ErrInvalidTransition is returned when a status update would violate
// the job state machine: pending→running only, running→{completed,failed}
// only, terminal states immutable.
var ErrInvalidTransition = errors.New("orchestrator: invalid job status transition")

// Store is the job map's capability: create, read, and update jobs. The
// only implementation is an in-process map (no persistence, no
// clustering) — a single orchestrator instance owns every job it
// accepts, per the concurrency and resource model.
type Store interface {
	Create(job *model.ScenarioJob) error
	Get(jobID string) (*model.ScenarioJob, error)
	Update(jobID string, mutate func(*model.ScenarioJob) error) error
}

// entry pairs a job with its own mutex, so one job's update never blocks
// reads of another (per-job mutex ownership, distinct from the map-level
// lock that only protects the map's own structure).
type entry struct {
	mu  sync.Mutex
	job model.ScenarioJob
}

// MemoryStore is the in-process Store implementation: a map guarded by a
// single RWMutex for structural changes (insert), with per-job mutexes
// for field updates.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*entry
}

// NewMemoryStore creates an empty in-process job store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*entry)}
}

// Create inserts a new job. Job IDs are assumed unique (generated via
// google/uuid by the caller).
func (s *MemoryStore) Create(job *model.ScenarioJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.JobID] = &entry{job: *job}
	return nil
}

// Get returns a copy of the job's current state.
func (s *MemoryStore) Get(jobID string) (*model.ScenarioJob, error) {
	s.mu.RLock()
	e, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrJobNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	jobCopy := e.job
	return &jobCopy, nil
}

// Update applies mutate to the job under its own lock, rejecting any
// status transition outside the job state machine.
func (s *MemoryStore) Update(jobID string, mutate func(*model.ScenarioJob) error) error {
	s.mu.RLock()
	e, ok := s.jobs[jobID]
	s.mu.RUnlock()
	if !ok {
		return ErrJobNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	before := e.job.Status
	if err := mutate(&e.job); err != nil {
		return err
	}
	if !validTransition(before, e.job.Status) {
		e.job.Status = before
		return ErrInvalidTransition
	}
	return nil
}

func validTransition(from, to model.JobStatus) bool {
	if from == to {
		return true
	}
	switch from {
	case model.JobPending:
		return to == model.JobRunning
	case model.JobRunning:
		return to == model.JobCompleted || to == model.JobFailed
	default:
		return false // completed/failed are terminal
	}
}

// transitionTo is a small mutate helper for the common case of only
// changing status.
func transitionTo(status model.JobStatus) func(*model.ScenarioJob) error {
	return func(j *model.ScenarioJob) error {
		j.Status = status
		return nil
	}
}
