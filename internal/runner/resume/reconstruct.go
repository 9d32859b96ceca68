// Package resume rebuilds a run context purely from the event log and
// decides whether, and where, execution may continue.
package resume

import (
	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/eventlog"
)

// Reconstruct replays runDir's event log into a fresh RunContext. An
// empty log or a first event that is not run.created is a
// *contracts.ReconstructionError. Reconstruction is idempotent (P6):
// calling it twice against the same log yields equal contexts.
func Reconstruct(runDir string, dag *contracts.PipelineDAG) (*contracts.RunContext, error) {
	events, err := eventlog.ReadAll(runDir)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, &contracts.ReconstructionError{Reason: "empty event log"}
	}
	if events[0].EventType != contracts.EventRunCreated {
		return nil, &contracts.ReconstructionError{Reason: "first event is not run.created"}
	}

	runID := events[0].RunID
	rc := contracts.NewRunContext(runID, dag)

	for _, e := range events[1:] {
		applyEvent(rc, e)
	}
	return rc, nil
}

// applyEvent implements the replay dispatch table.
func applyEvent(rc *contracts.RunContext, e contracts.Event) {
	switch e.EventType {
	case contracts.EventRunStateChanged, contracts.EventRunCompleted:
		rc.RunState = contracts.RunState(e.NewState)
	case contracts.EventStepStarted:
		rc.StepStates[e.StepID] = contracts.StepRunning
		rc.StepAttempt[e.StepID] = e.Attempt
	case contracts.EventStepSucceeded:
		rc.StepStates[e.StepID] = contracts.StepSucceeded
		rc.CompletedSteps[e.StepID] = true
	case contracts.EventStepFailed:
		rc.StepStates[e.StepID] = contracts.StepFailed
	case contracts.EventGateFailed:
		rc.FailedHardGates[e.StepID] = true
	case contracts.EventStepRetried:
		rc.StepStates[e.StepID] = contracts.StepPending
		rc.StepAttempt[e.StepID] = e.Attempt
	case contracts.EventArtifactEmitted:
		rc.Artifacts[e.StepID] = e.ArtifactPath
	case contracts.EventRunCreated:
		// Only valid as the first event; handled by Reconstruct itself.
	case contracts.EventRunOverrideApplied:
		// Reserved vocabulary; nothing in this runner emits it yet, so
		// replay has nothing to apply.
	}
}
