package main

import (
	"fmt"
	"io"

	"github.com/northroot-labs/pipelinerunner/internal/runner/summary"
)

func runSummary(args []string, stdout, stderr io.Writer) int {
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

	s, err := summary.Generate(runDir, dag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	if asJSON {
		b, err := s.ToJSON()
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		fmt.Fprintln(stdout, string(b))
		return 0
	}

	fmt.Fprintln(stdout, s.ToText())
	return 0
}
