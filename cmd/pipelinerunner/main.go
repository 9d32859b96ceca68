// Command pipelinerunner drives fail-closed, resumable pipeline runs from
// the command line: start, resume, status, events, summary.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "start":
		os.Exit(runStart(os.Args[2:], os.Stdout, os.Stderr))
	case "resume":
		os.Exit(runResume(os.Args[2:], os.Stdout, os.Stderr))
	case "status":
		os.Exit(runStatus(os.Args[2:], os.Stdout, os.Stderr))
	case "events":
		os.Exit(runEvents(os.Args[2:], os.Stdout, os.Stderr))
	case "summary":
		os.Exit(runSummary(os.Args[2:], os.Stdout, os.Stderr))
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  pipelinerunner start <run_dir> --manifest <file> [--run-id ID] [--reason S]")
	fmt.Fprintln(os.Stderr, "  pipelinerunner resume <run_dir> --manifest <file> [--start-from STEP]")
	fmt.Fprintln(os.Stderr, "  pipelinerunner status <run_dir> --manifest <file> [--json]")
	fmt.Fprintln(os.Stderr, "  pipelinerunner events <run_dir> [--tail N] [--follow] [--json]")
	fmt.Fprintln(os.Stderr, "  pipelinerunner summary <run_dir> --manifest <file> [--json]")
}
