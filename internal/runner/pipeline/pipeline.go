// Package pipeline orchestrates a full pipeline run: start, fail-closed
// execution, and resume.
package pipeline

import (
	"context"
	"fmt"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/eventlog"
	"github.com/northroot-labs/pipelinerunner/internal/runner/executor"
	"github.com/northroot-labs/pipelinerunner/internal/runner/resume"
	"github.com/northroot-labs/pipelinerunner/internal/runner/statemachine"
)

// Executor drives one run directory from creation (or reconstruction)
// through completion.
type Executor struct {
	RunDir string
	Log    *eventlog.EventLog
	DAG    *contracts.PipelineDAG
	Step   *executor.StepExecutor
	RunSM  *statemachine.RunStateMachine
}

// Open creates (or reopens) the run directory's event log and returns an
// Executor bound to it. steps maps step_id to its callable.
func Open(runDir string, dag *contracts.PipelineDAG, steps map[string]contracts.StepFunc) (*Executor, error) {
	log, err := eventlog.Open(runDir)
	if err != nil {
		return nil, err
	}
	return &Executor{
		RunDir: runDir,
		Log:    log,
		DAG:    dag,
		Step:   executor.New(log, dag, steps),
		RunSM:  statemachine.NewRunStateMachine(),
	}, nil
}

// Close releases the underlying event log's writer handle.
func (e *Executor) Close() error { return e.Log.Close() }

// Start creates a new run: emits run.created and returns an initialized
// context in state CREATED with every declared step PENDING.
func (e *Executor) Start(runID, reason string) (*contracts.RunContext, error) {
	if err := e.Log.Append(contracts.NewRunCreated(runID)); err != nil {
		return nil, err
	}
	return contracts.NewRunContext(runID, e.DAG), nil
}

// transitionRunState validates and logs a run-state transition, then
// applies it to rc.
func (e *Executor) transitionRunState(rc *contracts.RunContext, next contracts.RunState, reason string) error {
	if err := e.RunSM.ValidateTransition(rc.RunState, next); err != nil {
		return err
	}
	if err := e.Log.Append(contracts.NewRunStateChanged(rc.RunID, rc.RunState, next, reason)); err != nil {
		return err
	}
	rc.RunState = next
	return nil
}

func (e *Executor) failRun(rc *contracts.RunContext, reason string) error {
	if rc.RunState != contracts.RunFailed {
		if err := e.transitionRunState(rc, contracts.RunFailed, reason); err != nil {
			return err
		}
	}
	return e.Log.Append(contracts.NewRunCompleted(rc.RunID, contracts.RunFailed, reason))
}

func (e *Executor) completeRun(rc *contracts.RunContext, final contracts.RunState, reason string) error {
	if rc.RunState != final {
		if err := e.transitionRunState(rc, final, reason); err != nil {
			return err
		}
	}
	return e.Log.Append(contracts.NewRunCompleted(rc.RunID, final, reason))
}

// skipDownstream marks every PENDING step downstream of stepID as SKIPPED
// in memory. This is the in-memory half of invariant I5: no event is
// written for the skip, the absence of a step.started for these steps is
// itself the signal.
func (e *Executor) skipDownstream(rc *contracts.RunContext, stepID string) {
	for _, ds := range e.DAG.DownstreamOf(stepID) {
		if rc.StepStates[ds] == contracts.StepPending {
			rc.StepStates[ds] = contracts.StepSkipped
		}
	}
}

// runFrom walks the DAG starting at startIdx, applying the same gating
// and hard-gate-failure semantics to every step, and returns once the
// walk either hits a hard-gate failure, pauses on a manual gate, or
// exhausts the step list. overrideManualGate, when non-empty, names the
// one step (always startIdx's step) that should proceed despite being
// IsManualGated — set only when this call is resuming a run that was
// previously BLOCKED on exactly that step, i.e. the human-supplied
// override the manual gate is waiting for.
func (e *Executor) runFrom(ctx context.Context, rc *contracts.RunContext, startIdx int, overrideManualGate string) (contracts.RunState, error) {
	for _, step := range e.DAG.Steps[startIdx:] {
		stepID := step.StepID

		if rc.StepStates[stepID] == contracts.StepSucceeded {
			continue
		}

		permitted, _ := statemachine.CanExecuteStep(e.DAG, stepID, rc.CompletedSteps, rc.FailedHardGates)
		if !permitted {
			rc.StepStates[stepID] = contracts.StepSkipped
			continue
		}

		if step.IsManualGated && stepID != overrideManualGate {
			if err := e.transitionRunState(rc, contracts.RunBlocked, fmt.Sprintf("manual gate: %s", stepID)); err != nil {
				return rc.RunState, err
			}
			return rc.RunState, nil
		}

		if rc.StepStates[stepID] == contracts.StepFailed {
			rc.StepStates[stepID] = contracts.StepPending
		}

		success, err := e.Step.Execute(ctx, rc, stepID)
		if err != nil {
			return rc.RunState, err
		}

		if !success && step.IsHardGate {
			e.skipDownstream(rc, stepID)
			if err := e.failRun(rc, fmt.Sprintf("hard gate failed: %s", stepID)); err != nil {
				return rc.RunState, err
			}
			return rc.RunState, nil
		}
	}

	if len(rc.FailedHardGates) > 0 {
		if err := e.failRun(rc, "hard gate failures present"); err != nil {
			return rc.RunState, err
		}
	} else if err := e.completeRun(rc, contracts.RunSucceeded, "all steps succeeded"); err != nil {
		return rc.RunState, err
	}
	return rc.RunState, nil
}

// Execute runs the full pipeline from the start: CREATED ->
// PREFLIGHT_VALIDATED -> EXECUTING, then the DAG walk.
func (e *Executor) Execute(ctx context.Context, rc *contracts.RunContext) (contracts.RunState, error) {
	if err := e.transitionRunState(rc, contracts.RunPreflightValidated, "pre-execution validation passed"); err != nil {
		return rc.RunState, err
	}
	if err := e.transitionRunState(rc, contracts.RunExecuting, ""); err != nil {
		return rc.RunState, err
	}
	return e.runFrom(ctx, rc, 0, "")
}

// Resume re-enters execution from a reconstructed context. If startFrom
// is non-empty it overrides the auto-detected resume point (the caller
// is responsible for ensuring it is at or after that point).
func (e *Executor) Resume(ctx context.Context, rc *contracts.RunContext, startFrom string) (contracts.RunState, error) {
	wasBlocked := rc.RunState == contracts.RunBlocked

	switch rc.RunState {
	case contracts.RunCreated:
		if err := e.transitionRunState(rc, contracts.RunPreflightValidated, "resume: validation passed"); err != nil {
			return rc.RunState, err
		}
		if err := e.transitionRunState(rc, contracts.RunExecuting, "resume execution"); err != nil {
			return rc.RunState, err
		}
	case contracts.RunPreflightValidated:
		if err := e.transitionRunState(rc, contracts.RunExecuting, "resume execution"); err != nil {
			return rc.RunState, err
		}
	case contracts.RunFailed:
		if err := e.transitionRunState(rc, contracts.RunExecuting, "resume after transient failure"); err != nil {
			return rc.RunState, err
		}
	case contracts.RunBlocked:
		if err := e.transitionRunState(rc, contracts.RunExecuting, "resume after manual action"); err != nil {
			return rc.RunState, err
		}
	case contracts.RunExecuting:
		// Already EXECUTING (a crash mid-step leaves the run here). No
		// FSM edge applies since there is no state change, but resume
		// still logs a marker announcing re-entry so the log shows every
		// resume attempt.
		if err := e.Log.Append(contracts.NewRunStateChanged(rc.RunID, contracts.RunExecuting, contracts.RunExecuting, "resume")); err != nil {
			return rc.RunState, err
		}
	}

	point := startFrom
	if point == "" {
		point = resume.ResumePoint(e.DAG, rc)
	}
	if point == "" {
		if err := e.completeRun(rc, contracts.RunSucceeded, "all steps already complete (resume)"); err != nil {
			return rc.RunState, err
		}
		return rc.RunState, nil
	}

	idx := e.DAG.IndexOf(point)
	if idx < 0 {
		return rc.RunState, &contracts.UnknownStepError{StepID: point}
	}

	overrideManualGate := ""
	if wasBlocked {
		overrideManualGate = point
	}
	return e.runFrom(ctx, rc, idx, overrideManualGate)
}
