// Package executor drives a single pipeline step to a terminal outcome,
// implementing the retry-with-backoff loop.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/northroot-labs/pipelinerunner/internal/runner/backoff"
	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/eventlog"
	"github.com/northroot-labs/pipelinerunner/internal/runner/statemachine"
)

// StepExecutor executes individual pipeline steps with retry.
type StepExecutor struct {
	Log   *eventlog.EventLog
	DAG   *contracts.PipelineDAG
	Steps map[string]contracts.StepFunc

	Backoff backoff.Config
	Retry   statemachine.RetryPolicy

	// Sleep is injectable so tests can run retry loops without real
	// delays. Defaults to time.Sleep in New.
	Sleep func(time.Duration)
}

// New constructs a StepExecutor with real sleep behavior.
func New(log *eventlog.EventLog, dag *contracts.PipelineDAG, steps map[string]contracts.StepFunc) *StepExecutor {
	return &StepExecutor{
		Log:   log,
		DAG:   dag,
		Steps: steps,
		Sleep: time.Sleep,
	}
}

// Execute drives step stepID to a terminal outcome: succeeded, or failed
// (possibly after retries, possibly with gate.failed for a hard gate). It
// returns whether the step ultimately succeeded.
func (e *StepExecutor) Execute(ctx context.Context, rc *contracts.RunContext, stepID string) (bool, error) {
	step, ok := e.DAG.StepByID(stepID)
	if !ok {
		return false, &contracts.UnknownStepError{StepID: stepID}
	}

	fn, ok := e.Steps[stepID]
	if !ok {
		return false, e.emitUnimplemented(rc, step)
	}

	for {
		attempt := rc.StepAttempt[stepID]

		if err := e.Log.Append(contracts.NewStepStarted(rc.RunID, stepID, attempt)); err != nil {
			return false, err
		}
		rc.StepStates[stepID] = contracts.StepRunning

		// The step callable itself must not emit runner events; any
		// panic here propagates as an external interruption — the log
		// already records step.started with no terminal event, so
		// resume will find the step RUNNING and re-issue it.
		success, errClass, reason := fn(ctx, rc, stepID)

		if success {
			if err := e.Log.Append(contracts.NewStepSucceeded(rc.RunID, stepID, attempt, "")); err != nil {
				return false, err
			}
			rc.StepStates[stepID] = contracts.StepSucceeded
			rc.CompletedSteps[stepID] = true
			return true, nil
		}

		if errClass == "" {
			errClass = contracts.ErrUnknown
		}
		if reason == "" {
			reason = "step failed"
		}

		if err := e.Log.Append(contracts.NewStepFailed(rc.RunID, stepID, attempt, errClass, reason)); err != nil {
			return false, err
		}

		if step.IsHardGate {
			if err := e.Log.Append(contracts.NewGateFailed(rc.RunID, stepID, errClass, reason)); err != nil {
				return false, err
			}
			rc.FailedHardGates[stepID] = true
			rc.StepStates[stepID] = contracts.StepFailed
			return false, nil
		}

		if e.Retry.AllowsRetry(step, errClass, attempt) {
			rc.StepAttempt[stepID] = attempt + 1
			newAttempt := rc.StepAttempt[stepID]

			retryReason := fmt.Sprintf("retrying after %s", errClass)
			if err := e.Log.Append(contracts.NewStepRetried(rc.RunID, stepID, newAttempt, retryReason)); err != nil {
				return false, err
			}

			delay := backoff.DelayForAttempt(attempt, e.Backoff, backoff.Seed(rc.RunID, stepID, attempt))
			e.Sleep(delay)
			continue
		}

		rc.StepStates[stepID] = contracts.StepFailed
		return false, nil
	}
}

// emitUnimplemented handles the "no callable registered for this step"
// case: a single step.failed with class UNKNOWN, no step.started, no
// retry path. A hard-gate step additionally gets gate.failed, matching
// the retry-loop path in Execute.
func (e *StepExecutor) emitUnimplemented(rc *contracts.RunContext, step contracts.StepDefinition) error {
	attempt := rc.StepAttempt[step.StepID]
	reason := fmt.Sprintf("no implementation for step: %s", step.StepID)
	if err := e.Log.Append(contracts.NewStepFailed(rc.RunID, step.StepID, attempt, contracts.ErrUnknown, reason)); err != nil {
		return err
	}
	rc.StepStates[step.StepID] = contracts.StepFailed
	if step.IsHardGate {
		if err := e.Log.Append(contracts.NewGateFailed(rc.RunID, step.StepID, contracts.ErrUnknown, reason)); err != nil {
			return err
		}
		rc.FailedHardGates[step.StepID] = true
	}
	return nil
}
