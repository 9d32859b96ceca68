package statemachine

import "github.com/northroot-labs/pipelinerunner/internal/runner/contracts"

// RetryPolicy evaluates whether a failed step attempt may be retried.
type RetryPolicy struct{}

// AllowsRetry implements the retry eligibility rules: a hard gate failing
// with HARD_GATE_FAILED is never retried; otherwise retry iff errClass is
// in the step's retry_classes and currentAttempt < step.MaxRetries. A
// hard-gated step may still retry TRANSIENT_IO up to MaxRetries — only
// the hard-gate-failure class itself is excluded.
func (RetryPolicy) AllowsRetry(step contracts.StepDefinition, errClass contracts.ErrorClass, currentAttempt int) bool {
	if step.IsHardGate && errClass == contracts.ErrHardGateFailed {
		return false
	}
	if currentAttempt >= step.MaxRetries {
		return false
	}
	return step.InRetryClasses(errClass)
}
