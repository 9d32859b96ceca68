package main

import (
	"context"
	"fmt"
	"io"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/pipeline"
	"github.com/northroot-labs/pipelinerunner/internal/runner/resume"
)

func runResume(args []string, stdout, stderr io.Writer) int {
	runDir, rest, ok := requireRunDir(args, stderr)
	if !ok {
		return 1
	}

	var manifestPath, startFrom string
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "--manifest":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--manifest requires a value")
				return 1
			}
			manifestPath = rest[i]
		case "--start-from":
			i++
			if i >= len(rest) {
				fmt.Fprintln(stderr, "--start-from requires a value")
				return 1
			}
			startFrom = rest[i]
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
	if err := resume.Validate(rc); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	exec, err := pipeline.Open(runDir, dag, nil)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer exec.Close()

	final, err := exec.Resume(context.Background(), rc, startFrom)
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
