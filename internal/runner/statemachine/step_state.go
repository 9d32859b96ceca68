package statemachine

import "github.com/northroot-labs/pipelinerunner/internal/runner/contracts"

// StepStateMachine is a pure lookup over the step-state transition table.
type StepStateMachine struct {
	transitions map[contracts.StepState]map[contracts.StepState]bool
}

// NewStepStateMachine builds the machine from the fixed transition table.
func NewStepStateMachine() *StepStateMachine {
	table := map[contracts.StepState][]contracts.StepState{
		contracts.StepPending:     {contracts.StepRunning, contracts.StepSkipped},
		contracts.StepRunning:     {contracts.StepSucceeded, contracts.StepFailed},
		contracts.StepFailed:      {contracts.StepRunning, contracts.StepCompensated},
		contracts.StepSucceeded:   nil,
		contracts.StepSkipped:     nil,
		contracts.StepCompensated: nil,
	}
	m := &StepStateMachine{transitions: make(map[contracts.StepState]map[contracts.StepState]bool, len(table))}
	for from, tos := range table {
		set := make(map[contracts.StepState]bool, len(tos))
		for _, to := range tos {
			set[to] = true
		}
		m.transitions[from] = set
	}
	return m
}

// CanTransition is a pure lookup.
func (m *StepStateMachine) CanTransition(from, to contracts.StepState) bool {
	return m.transitions[from][to]
}

// ValidateTransition returns a *contracts.TransitionError when the edge is
// not in the table.
func (m *StepStateMachine) ValidateTransition(from, to contracts.StepState) error {
	if m.CanTransition(from, to) {
		return nil
	}
	return &contracts.TransitionError{Machine: "step", From: string(from), To: string(to)}
}
