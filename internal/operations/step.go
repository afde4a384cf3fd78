package operations

import (
	"context"
	"time"
)

// Step represents a single step of a run
type Step interface {
	// ID returns the unique identifier for this step
	ID() string

	// Name returns the human-readable name for this step
	Name() string

	// Execute runs the step against the run state
	Execute(ctx context.Context, state *RunState) error
}

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepState represents the runtime state of a step
type StepState struct {
	ID        string
	Name      string
	Status    StepStatus
	StartTime *time.Time
	EndTime   *time.Time
	Error     error
}

// NewStepState creates a pending step state
func NewStepState(id, name string) *StepState {
	return &StepState{
		ID:     id,
		Name:   name,
		Status: StepStatusPending,
	}
}

// Start marks the step as active
func (s *StepState) Start() {
	now := time.Now()
	s.StartTime = &now
	s.Status = StepStatusActive
}

// Complete marks the step as completed
func (s *StepState) Complete() {
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusCompleted
}

// Fail marks the step as failed with err
func (s *StepState) Fail(err error) {
	now := time.Now()
	s.EndTime = &now
	s.Status = StepStatusFailed
	s.Error = err
}

// Skip marks the step as skipped
func (s *StepState) Skip() {
	s.Status = StepStatusSkipped
}

// Duration returns how long the step ran, or zero if it never started
func (s *StepState) Duration() time.Duration {
	if s.StartTime == nil {
		return 0
	}
	if s.EndTime == nil {
		return time.Since(*s.StartTime)
	}
	return s.EndTime.Sub(*s.StartTime)
}
