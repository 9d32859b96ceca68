package resume

import (
	"testing"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
)

func TestCanResume_TerminalStatesRejected(t *testing.T) {
	for _, st := range []contracts.RunState{contracts.RunSucceeded, contracts.RunRolledBack} {
		rc := &contracts.RunContext{RunState: st}
		if CanResume(rc) {
			t.Errorf("CanResume(%s) = true, want false", st)
		}
	}
}

func TestCanResume_FailedWithHardGateRejected(t *testing.T) {
	rc := &contracts.RunContext{
		RunState:        contracts.RunFailed,
		FailedHardGates: map[string]bool{"step_2": true},
	}
	if CanResume(rc) {
		t.Error("a FAILED run with a failed hard gate must not be resumable")
	}
}

func TestCanResume_FailedWithoutHardGateAllowed(t *testing.T) {
	rc := &contracts.RunContext{
		RunState:        contracts.RunFailed,
		FailedHardGates: map[string]bool{},
	}
	if !CanResume(rc) {
		t.Error("a FAILED run with no failed hard gate should be resumable")
	}
}

func TestCanResume_NonTerminalStatesAllowed(t *testing.T) {
	for _, st := range []contracts.RunState{
		contracts.RunCreated, contracts.RunPreflightValidated,
		contracts.RunExecuting, contracts.RunBlocked,
	} {
		rc := &contracts.RunContext{RunState: st, FailedHardGates: map[string]bool{}}
		if !CanResume(rc) {
			t.Errorf("CanResume(%s) = false, want true", st)
		}
	}
}

func TestValidate_ReturnsResumeErrorWithReason(t *testing.T) {
	rc := &contracts.RunContext{RunState: contracts.RunSucceeded}
	err := Validate(rc)
	if err == nil {
		t.Fatal("expected an error")
	}
	if _, ok := err.(*contracts.ResumeError); !ok {
		t.Errorf("error type = %T, want *contracts.ResumeError", err)
	}
}

func TestValidate_NilOnResumableRun(t *testing.T) {
	rc := &contracts.RunContext{RunState: contracts.RunBlocked, FailedHardGates: map[string]bool{}}
	if err := Validate(rc); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}
}

func TestResumePoint_SkipsSucceededAndSkipped(t *testing.T) {
	dag := contracts.NewPipelineDAG([]contracts.StepDefinition{
		{StepID: "a"}, {StepID: "b"}, {StepID: "c"},
	})
	rc := &contracts.RunContext{
		StepStates: map[string]contracts.StepState{
			"a": contracts.StepSucceeded,
			"b": contracts.StepSkipped,
			"c": contracts.StepPending,
		},
	}
	if got := ResumePoint(dag, rc); got != "c" {
		t.Errorf("ResumePoint = %q, want c", got)
	}
}

func TestResumePoint_PicksUpRunningStep(t *testing.T) {
	dag := contracts.NewPipelineDAG([]contracts.StepDefinition{
		{StepID: "a"}, {StepID: "b"},
	})
	rc := &contracts.RunContext{
		StepStates: map[string]contracts.StepState{
			"a": contracts.StepSucceeded,
			"b": contracts.StepRunning,
		},
	}
	if got := ResumePoint(dag, rc); got != "b" {
		t.Errorf("ResumePoint = %q, want b (left RUNNING by a crash)", got)
	}
}

func TestResumePoint_EmptyWhenAllTerminal(t *testing.T) {
	dag := contracts.NewPipelineDAG([]contracts.StepDefinition{
		{StepID: "a"}, {StepID: "b"},
	})
	rc := &contracts.RunContext{
		StepStates: map[string]contracts.StepState{
			"a": contracts.StepSucceeded,
			"b": contracts.StepSkipped,
		},
	}
	if got := ResumePoint(dag, rc); got != "" {
		t.Errorf("ResumePoint = %q, want empty", got)
	}
}
