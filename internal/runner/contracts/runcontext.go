package contracts

import "context"

// RunContext is the in-memory projection of a run: everything the
// executor, reconstructor, and summary need, and nothing that cannot be
// rebuilt by replaying the event log.
type RunContext struct {
	RunID string

	RunState RunState

	StepStates  map[string]StepState
	StepAttempt map[string]int

	CompletedSteps  map[string]bool
	FailedHardGates map[string]bool

	// Artifacts maps step_id to the last artifact_path it emitted.
	Artifacts map[string]string
}

// NewRunContext returns a context for a freshly created run: every
// declared step PENDING, zero attempts, nothing completed.
func NewRunContext(runID string, dag *PipelineDAG) *RunContext {
	rc := &RunContext{
		RunID:           runID,
		RunState:        RunCreated,
		StepStates:      make(map[string]StepState, len(dag.Steps)),
		StepAttempt:     make(map[string]int, len(dag.Steps)),
		CompletedSteps:  make(map[string]bool),
		FailedHardGates: make(map[string]bool),
		Artifacts:       make(map[string]string),
	}
	for _, s := range dag.Steps {
		rc.StepStates[s.StepID] = StepPending
		rc.StepAttempt[s.StepID] = 0
	}
	return rc
}

// StepFunc is the opaque step callable contract: given the
// current run context and the step to execute, it performs the step's
// actual work and reports a success flag plus, on failure, a classified
// error. A callable must never append events to the log directly — the
// step executor is the sole writer.
type StepFunc func(ctx context.Context, rc *RunContext, stepID string) (success bool, errClass ErrorClass, reason string)
