// Command baseline-verify checks repos on disk against the org-wide
// dependency baseline registry: schema validation, pinned-tag integrity,
// and the protected-branch publish gate.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/northroot-labs/pipelinerunner/internal/baseline"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: baseline-verify [--workspace-root DIR] [--registry PATH] <command> [flags]")
	fmt.Fprintln(stderr, "commands:")
	fmt.Fprintln(stderr, "  schema                            validate registry shape")
	fmt.Fprintln(stderr, "  verify-tags                        verify pinned tags resolve and match")
	fmt.Fprintln(stderr, "  check-publish --repo R --branch B [--head H] [--no-fetch]")
}

func run(args []string, stdout, stderr io.Writer) int {
	workspaceRoot := "."
	if v := os.Getenv("NORTHROOT_WORKSPACE"); v != "" {
		workspaceRoot = v
	}
	registryPath := filepath.Join("northroot-workspaces", "baselines", "registry.json")

	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--workspace-root":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "baseline-verify: --workspace-root requires a value")
				return 1
			}
			i++
			workspaceRoot = args[i]
		case "--registry":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "baseline-verify: --registry requires a value")
				return 1
			}
			i++
			registryPath = args[i]
		default:
			rest = append(rest, args[i])
		}
	}

	if len(rest) == 0 {
		usage(stderr)
		return 1
	}

	absRoot, err := filepath.Abs(workspaceRoot)
	if err != nil {
		fmt.Fprintf(stderr, "baseline-verify: FAIL: %v\n", err)
		return 1
	}
	if !filepath.IsAbs(registryPath) {
		registryPath = filepath.Join(absRoot, registryPath)
	}

	reg, err := baseline.LoadRegistry(registryPath)
	if err != nil {
		fmt.Fprintf(stderr, "baseline-verify: FAIL: %v\n", err)
		return 1
	}
	if err := reg.Validate(); err != nil {
		fmt.Fprintf(stderr, "baseline-verify: FAIL: %v\n", err)
		return 1
	}

	switch rest[0] {
	case "schema":
		fmt.Fprintln(stdout, "schema: ok")
		return 0
	case "verify-tags":
		return runVerifyTags(reg, absRoot, stdout, stderr)
	case "check-publish":
		return runCheckPublish(rest[1:], reg, absRoot, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "baseline-verify: unknown command %q\n", rest[0])
		usage(stderr)
		return 1
	}
}

func runVerifyTags(reg *baseline.Registry, workspaceRoot string, stdout, stderr io.Writer) int {
	checked, err := baseline.VerifyTags(reg, workspaceRoot)
	if err != nil {
		fmt.Fprintf(stderr, "baseline-verify: FAIL: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "verify-tags: ok (%d pinned tag(s) checked)\n", checked)
	return 0
}

func runCheckPublish(args []string, reg *baseline.Registry, workspaceRoot string, stdout, stderr io.Writer) int {
	var repo, branch, head string
	head = "HEAD"
	fetch := true

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--repo":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "check-publish: --repo requires a value")
				return 1
			}
			i++
			repo = args[i]
		case "--branch":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "check-publish: --branch requires a value")
				return 1
			}
			i++
			branch = args[i]
		case "--head":
			if i+1 >= len(args) {
				fmt.Fprintln(stderr, "check-publish: --head requires a value")
				return 1
			}
			i++
			head = args[i]
		case "--no-fetch":
			fetch = false
		default:
			fmt.Fprintf(stderr, "check-publish: unrecognized flag %q\n", args[i])
			return 1
		}
	}
	if repo == "" || branch == "" {
		fmt.Fprintln(stderr, "check-publish: --repo and --branch are required")
		return 1
	}

	result, err := baseline.CheckPublish(reg, workspaceRoot, repo, branch, head, fetch)
	if err != nil {
		fmt.Fprintf(stderr, "baseline-verify: FAIL: %v\n", err)
		return 1
	}
	if result.Skipped {
		fmt.Fprintf(stdout, "check-publish: non-protected branch %s; policy not required\n", branch)
		return 0
	}
	fmt.Fprintf(stdout, "check-publish: ok (%s %s head=%s descends-from %s:%s)\n",
		result.Repo, result.Branch, result.HeadSHA, result.RequiredBucket, result.BaselineSHA)
	return 0
}
