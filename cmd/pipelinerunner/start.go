package main

import (
	"context"
	"fmt"
	"io"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/pipeline"
)

func runStart(args []string, stdout, stderr io.Writer) int {
	runDir, rest, ok := requireRunDir(args, stderr)
	if !ok {
		return 1
	}

	var manifestPath, runID, reason string
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--manifest":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--manifest requires a value")
				return 1
			}
			manifestPath = rest[i]
		case "--run-id":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--run-id requires a value")
				return 1
			}
			runID = rest[i]
		case "--reason":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--reason requires a value")
				return 1
			}
			reason = rest[i]
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
	if runID == "" {
		runID = contracts.NewRunID()
	}

	exec, err := pipeline.Open(runDir, dag, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer exec.Close()

	rc, err := exec.Start(runID, reason)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	final, err := exec.Execute(context.Background(), rc)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fmt.Fprintf(stdout, "run_id=%s\n", rc.RunID)
	fmt.Fprintf(stdout, "final_state=%s\n", final)

	if final == contracts.RunSucceeded {
		return 0
	}
	return 1
}
