package statemachine

import (
	"testing"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
)

func TestRunStateMachine_LegalAndIllegalTransitions(t *testing.T) {
	m := NewRunStateMachine()

	legal := []struct{ from, to contracts.RunState }{
		{contracts.RunCreated, contracts.RunPreflightValidated},
		{contracts.RunPreflightValidated, contracts.RunExecuting},
		{contracts.RunExecuting, contracts.RunBlocked},
		{contracts.RunExecuting, contracts.RunSucceeded},
		{contracts.RunBlocked, contracts.RunExecuting},
		{contracts.RunFailed, contracts.RunRolledBack},
	}
	for _, c := range legal {
		if !m.CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s -> %s) = false, want true", c.from, c.to)
		}
		if err := m.ValidateTransition(c.from, c.to); err != nil {
			t.Errorf("ValidateTransition(%s -> %s) = %v, want nil", c.from, c.to, err)
		}
	}

	illegal := []struct{ from, to contracts.RunState }{
		{contracts.RunCreated, contracts.RunExecuting},
		{contracts.RunSucceeded, contracts.RunExecuting},
		{contracts.RunRolledBack, contracts.RunExecuting},
		{contracts.RunFailed, contracts.RunExecuting},
	}
	for _, c := range illegal {
		if m.CanTransition(c.from, c.to) {
			t.Errorf("CanTransition(%s -> %s) = true, want false", c.from, c.to)
		}
		if err := m.ValidateTransition(c.from, c.to); err == nil {
			t.Errorf("ValidateTransition(%s -> %s) = nil, want an error", c.from, c.to)
		}
	}
}

func TestStepStateMachine_LegalAndIllegalTransitions(t *testing.T) {
	m := NewStepStateMachine()

	if !m.CanTransition(contracts.StepPending, contracts.StepRunning) {
		t.Error("pending -> running should be legal")
	}
	if !m.CanTransition(contracts.StepPending, contracts.StepSkipped) {
		t.Error("pending -> skipped should be legal")
	}
	if !m.CanTransition(contracts.StepFailed, contracts.StepRunning) {
		t.Error("failed -> running (retry) should be legal")
	}
	if m.CanTransition(contracts.StepSucceeded, contracts.StepRunning) {
		t.Error("succeeded -> running should be illegal (terminal)")
	}
	if m.CanTransition(contracts.StepSkipped, contracts.StepRunning) {
		t.Error("skipped -> running should be illegal (terminal)")
	}
}

func TestRetryPolicy_Rules(t *testing.T) {
	rp := RetryPolicy{}

	hardGate := contracts.StepDefinition{StepID: "g", IsHardGate: true, MaxRetries: 3, RetryClasses: []contracts.ErrorClass{contracts.ErrTransientIO}}
	if rp.AllowsRetry(hardGate, contracts.ErrHardGateFailed, 0) {
		t.Error("hard gate + HARD_GATE_FAILED must never retry")
	}
	if !rp.AllowsRetry(hardGate, contracts.ErrTransientIO, 0) {
		t.Error("hard gate may still retry TRANSIENT_IO within max_retries")
	}
	if rp.AllowsRetry(hardGate, contracts.ErrTransientIO, 3) {
		t.Error("attempt >= max_retries must not retry")
	}

	plain := contracts.StepDefinition{StepID: "p", MaxRetries: 2, RetryClasses: []contracts.ErrorClass{contracts.ErrValidationFailed}}
	if rp.AllowsRetry(plain, contracts.ErrTransientIO, 0) {
		t.Error("error class not in retry_classes must not retry")
	}
	if !rp.AllowsRetry(plain, contracts.ErrValidationFailed, 1) {
		t.Error("in retry_classes and attempt < max_retries should retry")
	}
}

func TestCanExecuteStep(t *testing.T) {
	dag := contracts.NewPipelineDAG([]contracts.StepDefinition{
		{StepID: "a", IsHardGate: true},
		{StepID: "b"},
		{StepID: "c"},
	})

	if _, reason := CanExecuteStep(dag, "zzz", nil, nil); reason != "unknown step" {
		t.Errorf("unknown step reason = %q", reason)
	}

	permitted, reason := CanExecuteStep(dag, "a", nil, nil)
	if !permitted || reason != "" {
		t.Errorf("first step should always be permitted, got (%v, %q)", permitted, reason)
	}

	permitted, reason = CanExecuteStep(dag, "b", map[string]bool{}, nil)
	if permitted {
		t.Error("b should be blocked: a not completed")
	}
	if reason == "" {
		t.Error("expected a missing-dependency reason")
	}

	permitted, reason = CanExecuteStep(dag, "c", map[string]bool{"a": true, "b": true}, nil)
	if !permitted || reason != "" {
		t.Errorf("c should be permitted once a,b complete, got (%v, %q)", permitted, reason)
	}

	permitted, reason = CanExecuteStep(dag, "c", map[string]bool{"a": true, "b": true}, map[string]bool{"a": true})
	if permitted {
		t.Error("c should be blocked: upstream hard gate a failed")
	}
	if reason == "" {
		t.Error("expected a blocked-by-hard-gate reason")
	}
}
