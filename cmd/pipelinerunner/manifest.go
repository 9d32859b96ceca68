package main

import (
	"fmt"
	"io"

	"github.com/northroot-labs/pipelinerunner/internal/runner/config"
	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
)

// loadDAG loads the manifest at path. An empty path falls back to the
// built-in demonstration pipeline, useful for quick manual exploration
// without first hand-writing a manifest file. Only the manifest's step list
// is returned; its retry settings are not passed on, so the step executor
// runs with the backoff package defaults.
func loadDAG(path string) (*contracts.PipelineDAG, error) {
	if path == "" {
		return contracts.ExamplePipeline(), nil
	}
	m, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", path, err)
	}
	return m.DAG, nil
}

func requireRunDir(args []string, stderr io.Writer) (string, []string, bool) {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "run_dir is required")
		return "", nil, false
	}
	return args[0], args[1:], true
}
