package statemachine

import (
	"fmt"
	"strings"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
)

// CanExecuteStep implements the fail-closed DAG gate: a step
// may run only once every upstream step has completed and none of them is
// a failed hard gate. The returned reason is empty when permitted=true.
func CanExecuteStep(
	dag *contracts.PipelineDAG,
	stepID string,
	completed map[string]bool,
	failedHardGates map[string]bool,
) (permitted bool, reason string) {
	if _, ok := dag.StepByID(stepID); !ok {
		return false, "unknown step"
	}

	upstream := dag.UpstreamOf(stepID)

	var blockedBy []string
	for _, u := range upstream {
		if failedHardGates[u] {
			blockedBy = append(blockedBy, u)
		}
	}
	if len(blockedBy) > 0 {
		return false, fmt.Sprintf("blocked by failed hard gate(s): %s", strings.Join(blockedBy, ", "))
	}

	var missing []string
	for _, u := range upstream {
		if !completed[u] {
			missing = append(missing, u)
		}
	}
	if len(missing) > 0 {
		return false, fmt.Sprintf("missing upstream dependencies: %s", strings.Join(missing, ", "))
	}

	return true, ""
}
