package resume

import "github.com/northroot-labs/pipelinerunner/internal/runner/contracts"

// CanResume implements the resume guard:
//
//	SUCCEEDED, ROLLED_BACK        -> never
//	FAILED                        -> only if no failed hard gates
//	BLOCKED/CREATED/PREFLIGHT_VALIDATED/EXECUTING -> always
func CanResume(rc *contracts.RunContext) bool {
	switch rc.RunState {
	case contracts.RunSucceeded, contracts.RunRolledBack:
		return false
	case contracts.RunFailed:
		return len(rc.FailedHardGates) == 0
	case contracts.RunBlocked, contracts.RunCreated, contracts.RunPreflightValidated, contracts.RunExecuting:
		return true
	default:
		return false
	}
}

// Validate returns a *contracts.ResumeError describing why rc cannot be
// resumed, or nil if it can.
func Validate(rc *contracts.RunContext) error {
	if CanResume(rc) {
		return nil
	}
	reason := "run is in a terminal state"
	if rc.RunState == contracts.RunFailed {
		reason = "run has one or more failed hard gates"
	}
	return &contracts.ResumeError{RunID: rc.RunID, Reason: reason}
}

// ResumePoint returns the first step in DAG order whose state is neither
// SUCCEEDED nor SKIPPED, or "" if every step is terminal-successful or
// skipped. See SPEC_FULL.md Part F for the rationale behind using this
// broader rule (which also picks up a step left RUNNING by a crash)
// rather than the narrower {PENDING, FAILED} allowlist in the reference
// implementation.
func ResumePoint(dag *contracts.PipelineDAG, rc *contracts.RunContext) string {
	for _, step := range dag.Steps {
		st := rc.StepStates[step.StepID]
		if st != contracts.StepSucceeded && st != contracts.StepSkipped {
			return step.StepID
		}
	}
	return ""
}
