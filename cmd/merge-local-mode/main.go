// Command merge-local-mode updates or adds a single mode block in a
// workspace's modes.local.yaml, leaving every other mode untouched.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/northroot-labs/pipelinerunner/internal/localmode"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: merge-local-mode <modes.local.yaml> <mode> <path1> [path2 ...] --repos r1 [r2 ...]")
}

func run(args []string, stderr io.Writer) int {
	if len(args) < 4 {
		usage(stderr)
		return 1
	}

	reposIdx := -1
	for i, a := range args {
		if a == "--repos" {
			reposIdx = i
			break
		}
	}
	if reposIdx == -1 {
		usage(stderr)
		return 1
	}

	yamlPath := args[0]
	modeName := args[1]
	paths := args[2:reposIdx]
	repos := args[reposIdx+1:]

	if yamlPath == "" || modeName == "" || len(paths) == 0 || len(repos) == 0 {
		usage(stderr)
		return 1
	}

	if err := localmode.Merge(yamlPath, modeName, paths, repos); err != nil {
		fmt.Fprintf(stderr, "merge-local-mode: %v\n", err)
		return 1
	}
	return 0
}
