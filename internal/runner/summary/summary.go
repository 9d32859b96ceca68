// Package summary aggregates a finalized event log into machine and
// human-readable readouts.
package summary

import (
	"fmt"
	"sort"
	"time"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/eventlog"
)

// StepSummary is one step's outcome in a run summary.
type StepSummary struct {
	StepID      string
	State       contracts.StepState
	Attempts    int
	ErrorClass  contracts.ErrorClass
	ErrorReason string
	StartedAt   string
	DurationMS  *int64
}

// RunSummary is the aggregate readout of one run.
type RunSummary struct {
	RunID           string
	FinalState      contracts.RunState
	CreatedAt       string
	CompletedAt     string
	DurationMS      *int64
	Steps           []StepSummary
	CompletedSteps  int
	FailedSteps     int
	SkippedSteps    int
	FailedHardGates []string
	TotalAttempts   int
	TotalRetries    int
}

// Generate produces a RunSummary for runDir by scanning its event log
// once and cross-referencing the declared DAG. Unlike a log-only view,
// consulting the DAG lets a step that the log never mentions be reported
// as SKIPPED once the run has reached a terminal state (the log itself
// never records a skip, so a pure event-count scan would
// silently drop skipped steps from the summary).
func Generate(runDir string, dag *contracts.PipelineDAG) (*RunSummary, error) {
	events, err := eventlog.ReadAll(runDir)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("summary: event log is empty")
	}

	first := events[0]
	s := &RunSummary{
		RunID:      first.RunID,
		FinalState: contracts.RunCreated,
		CreatedAt:  first.TimestampUTC,
	}

	stepState := make(map[string]contracts.StepState)
	stepAttempt := make(map[string]int)
	stepStart := make(map[string]string)
	stepEnd := make(map[string]string)
	stepErrClass := make(map[string]contracts.ErrorClass)
	stepErrReason := make(map[string]string)
	gateFailures := make(map[string]bool)
	retryCount := 0

	for _, e := range events {
		switch e.EventType {
		case contracts.EventRunStateChanged, contracts.EventRunCompleted:
			s.FinalState = contracts.RunState(e.NewState)
			s.CompletedAt = e.TimestampUTC
		case contracts.EventStepStarted:
			stepState[e.StepID] = contracts.StepRunning
			stepAttempt[e.StepID] = e.Attempt
			if _, seen := stepStart[e.StepID]; !seen {
				stepStart[e.StepID] = e.TimestampUTC
			}
		case contracts.EventStepSucceeded:
			stepState[e.StepID] = contracts.StepSucceeded
			stepEnd[e.StepID] = e.TimestampUTC
		case contracts.EventStepFailed:
			stepState[e.StepID] = contracts.StepFailed
			stepErrClass[e.StepID] = e.ErrorClass
			stepErrReason[e.StepID] = e.Reason
			stepEnd[e.StepID] = e.TimestampUTC
		case contracts.EventStepRetried:
			retryCount++
		case contracts.EventGateFailed:
			gateFailures[e.StepID] = true
		}
	}

	terminal := s.FinalState == contracts.RunSucceeded ||
		s.FinalState == contracts.RunFailed ||
		s.FinalState == contracts.RunRolledBack

	for _, step := range dag.Steps {
		st, observed := stepState[step.StepID]
		if !observed {
			if terminal {
				st = contracts.StepSkipped
			} else {
				st = contracts.StepPending
			}
		}

		attempts := 0
		if observed {
			attempts = stepAttempt[step.StepID] + 1
		}

		ss := StepSummary{
			StepID:      step.StepID,
			State:       st,
			Attempts:    attempts,
			ErrorClass:  stepErrClass[step.StepID],
			ErrorReason: stepErrReason[step.StepID],
			StartedAt:   stepStart[step.StepID],
		}
		if start, ok := stepStart[step.StepID]; ok {
			if end, ok := stepEnd[step.StepID]; ok {
				if d, ok := durationMS(start, end); ok {
					ss.DurationMS = &d
				}
			}
		}

		s.Steps = append(s.Steps, ss)

		switch st {
		case contracts.StepSucceeded:
			s.CompletedSteps++
		case contracts.StepFailed:
			s.FailedSteps++
		case contracts.StepSkipped:
			s.SkippedSteps++
		}
		s.TotalAttempts += attempts
	}
	s.TotalRetries = retryCount

	gateList := make([]string, 0, len(gateFailures))
	for id := range gateFailures {
		gateList = append(gateList, id)
	}
	sort.Strings(gateList)
	s.FailedHardGates = gateList

	if d, ok := durationMS(s.CreatedAt, s.CompletedAt); ok {
		s.DurationMS = &d
	}

	return s, nil
}

func durationMS(start, end string) (int64, bool) {
	if start == "" || end == "" {
		return 0, false
	}
	st, err := time.Parse(time.RFC3339Nano, start)
	if err != nil {
		return 0, false
	}
	et, err := time.Parse(time.RFC3339Nano, end)
	if err != nil {
		return 0, false
	}
	return et.Sub(st).Milliseconds(), true
}
