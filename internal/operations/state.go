package operations

import (
	"time"

	"tabkit/internal/config"
	"tabkit/internal/dataset"
	"tabkit/internal/exporter"
	"tabkit/internal/join"
)

// RunState carries the data and step states of one run. It is owned by the
// goroutine that calls Manager.Run.
type RunState struct {
	ID        string
	Options   *config.Options
	StartTime time.Time
	EndTime   *time.Time

	Inputs    []dataset.FileSpec
	Sink      exporter.Sink
	Datasets  []*dataset.Dataset
	Joined    *dataset.Dataset
	JoinStats join.Stats
	Result    exporter.Table

	Steps []*StepState
}

// NewRunState creates the state for a run of opts
func NewRunState(id string, opts *config.Options) *RunState {
	return &RunState{
		ID:        id,
		Options:   opts,
		StartTime: time.Now(),
	}
}

// Failed returns the failed step, or nil
func (s *RunState) Failed() *StepState {
	for _, st := range s.Steps {
		if st.Status == StepStatusFailed {
			return st
		}
	}
	return nil
}

// Duration returns the duration of the run
func (s *RunState) Duration() time.Duration {
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

func (s *RunState) finish() {
	now := time.Now()
	s.EndTime = &now
}
