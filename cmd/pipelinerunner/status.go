package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/northroot-labs/pipelinerunner/internal/runner/resume"
)

type statusDoc struct {
	RunID           string            `json:"run_id"`
	RunState        string            `json:"run_state"`
	StepStates      map[string]string `json:"step_states"`
	StepAttempt     map[string]int    `json:"step_attempt"`
	CompletedSteps  int               `json:"completed_steps"`
	FailedHardGates []string          `json:"failed_hard_gates"`
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	runDir, rest, ok := requireRunDir(args, stderr)
	if !ok {
		return 1
	}

	var manifestPath string
	var asJSON bool
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--manifest":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--manifest requires a value")
				return 1
			}
			manifestPath = rest[i]
		case "--json":
			asJSON = true
		default:
			fmt.Fprintf(stderr, "unknown arg: %s\n", rest[i])
			return 1
		}
	}

	dag, err := loadDAG(manifestPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	rc, err := resume.Reconstruct(runDir, dag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	doc := statusDoc{
		RunID:          rc.RunID,
		RunState:       string(rc.RunState),
		StepStates:     make(map[string]string, len(rc.StepStates)),
		StepAttempt:    rc.StepAttempt,
		CompletedSteps: len(rc.CompletedSteps),
	}
	for id, st := range rc.StepStates {
		doc.StepStates[id] = string(st)
	}
	for id := range rc.FailedHardGates {
		doc.FailedHardGates = append(doc.FailedHardGates, id)
	}
	sort.SliceStable(doc.FailedHardGates, func(i, j int) bool { return dag.IndexOf(doc.FailedHardGates[i]) < dag.IndexOf(doc.FailedHardGates[j]) })

	if asJSON {
		b, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, string(b))
		return 0
	}

	fmt.Fprintf(stdout, "run_id=%s\n", doc.RunID)
	fmt.Fprintf(stdout, "run_state=%s\n", doc.RunState)

	ids := make([]string, 0, len(dag.Steps))
	for _, s := range dag.Steps {
		ids = append(ids, s.StepID)
	}
	sort.SliceStable(ids, func(i, j int) bool { return dag.IndexOf(ids[i]) < dag.IndexOf(ids[j]) })
	for _, id := range ids {
		line := fmt.Sprintf("  %-30s %s", id, doc.StepStates[id])
		if attempt := doc.StepAttempt[id]; attempt > 0 {
			line += fmt.Sprintf(" (attempt %d)", attempt)
		}
		fmt.Fprintln(stdout, line)
	}

	fmt.Fprintf(stdout, "completed_steps=%d\n", doc.CompletedSteps)
	if len(doc.FailedHardGates) > 0 {
		fmt.Fprintf(stdout, "failed_hard_gates=%s\n", strings.Join(doc.FailedHardGates, ", "))
	}
	return 0
}
