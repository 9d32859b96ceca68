// Package statemachine implements the run/step transition tables, the
// retry policy, and DAG gating.
package statemachine

import "github.com/northroot-labs/pipelinerunner/internal/runner/contracts"

// RunStateMachine is a pure lookup over the run-state transition table. It
// holds no state of its own.
type RunStateMachine struct {
	transitions map[contracts.RunState]map[contracts.RunState]bool
}

// NewRunStateMachine builds the machine from the fixed transition table.
func NewRunStateMachine() *RunStateMachine {
	table := map[contracts.RunState][]contracts.RunState{
		contracts.RunCreated:            {contracts.RunPreflightValidated, contracts.RunFailed},
		contracts.RunPreflightValidated: {contracts.RunExecuting, contracts.RunFailed},
		contracts.RunExecuting:          {contracts.RunBlocked, contracts.RunFailed, contracts.RunSucceeded},
		contracts.RunBlocked:            {contracts.RunExecuting, contracts.RunFailed, contracts.RunRolledBack},
		contracts.RunFailed:             {contracts.RunRolledBack},
		contracts.RunSucceeded:          nil,
		contracts.RunRolledBack:         nil,
	}
	m := &RunStateMachine{transitions: make(map[contracts.RunState]map[contracts.RunState]bool, len(table))}
	for from, tos := range table {
		set := make(map[contracts.RunState]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		m.transitions[from] = set
	}
	return m
}

// CanTransition is a pure lookup: no side effects, no error on an illegal
// edge.
func (m *RunStateMachine) CanTransition(from, to contracts.RunState) bool {
	return m.transitions[from][to]
}

// ValidateTransition returns a *contracts.TransitionError when the edge is
// not in the table. The executor always calls this guarded form; an
// invalid transition here is a programming error, not a runtime
// condition.
func (m *RunStateMachine) ValidateTransition(from, to contracts.RunState) error {
	if m.CanTransition(from, to) {
		return nil
	}
	return &contracts.TransitionError{Machine: "run", From: string(from), To: string(to)}
}
