package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
	"github.com/northroot-labs/pipelinerunner/internal/runner/pipeline"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "manifest.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const oneStepManifest = `
version: 1
steps:
  - step_id: only_step
`

func TestRunStart_UnimplementedNonHardGateStepStillSucceedsTheRun(t *testing.T) {
	// A step with no registered callable always fails, but only hard-gate
	// failures fail the run as a whole.
	manifest := writeManifest(t, oneStepManifest)
	runDir := filepath.Join(t.TempDir(), "run1")

	var stdout, stderr bytes.Buffer
	code := runStart([]string{runDir, "--manifest", manifest}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("exit code = %d, want 0 (non-hard-gate failure does not fail the run), stderr=%s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "final_state=succeeded") {
		t.Errorf("stdout = %q, want final_state=succeeded", stdout.String())
	}
}

func TestRunStart_UnimplementedHardGateStepFailsTheRun(t *testing.T) {
	manifest := writeManifest(t, `
version: 1
steps:
  - step_id: only_step
    is_hard_gate: true
`)
	runDir := filepath.Join(t.TempDir(), "run1")

	var stdout, stderr bytes.Buffer
	code := runStart([]string{runDir, "--manifest", manifest}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1 (hard-gate failure fails the run)", code)
	}
	if !strings.Contains(stdout.String(), "final_state=failed") {
		t.Errorf("stdout = %q, want final_state=failed", stdout.String())
	}
}

func TestRunStart_MissingRunDirFails(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runStart(nil, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
}

func TestRunStatusAndSummary_AfterStart(t *testing.T) {
	manifest := writeManifest(t, oneStepManifest)
	runDir := filepath.Join(t.TempDir(), "run1")

	var out, errOut bytes.Buffer
	runStart([]string{runDir, "--manifest", manifest}, &out, &errOut)

	out.Reset()
	errOut.Reset()
	code := runStatus([]string{runDir, "--manifest", manifest, "--json"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("runStatus exit code = %d, stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), `"run_state"`) {
		t.Errorf("status json missing run_state: %s", out.String())
	}

	out.Reset()
	errOut.Reset()
	code = runSummary([]string{runDir, "--manifest", manifest, "--json"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("runSummary exit code = %d, stderr=%s", code, errOut.String())
	}
	if !strings.Contains(out.String(), `"run_id"`) {
		t.Errorf("summary json missing run_id: %s", out.String())
	}
}

func TestRunStatus_HumanTextShowsAttemptsCompletedAndFailedGates(t *testing.T) {
	manifest := writeManifest(t, `
version: 1
steps:
  - step_id: flaky_step
    max_retries: 2
    retry_classes: [transient_io]
  - step_id: strict_gate
    is_hard_gate: true
`)
	runDir := filepath.Join(t.TempDir(), "run1")

	dag, err := loadDAG(manifest)
	if err != nil {
		t.Fatal(err)
	}

	attempts := 0
	flaky := func(ctx context.Context, rc *contracts.RunContext, stepID string) (bool, contracts.ErrorClass, string) {
		attempts++
		if attempts < 2 {
			return false, contracts.ErrTransientIO, "not yet"
		}
		return true, "", ""
	}
	gate := func(ctx context.Context, rc *contracts.RunContext, stepID string) (bool, contracts.ErrorClass, string) {
		return false, contracts.ErrHardGateFailed, "policy violation"
	}

	exec, err := pipeline.Open(runDir, dag, map[string]contracts.StepFunc{
		"flaky_step":  flaky,
		"strict_gate": gate,
	})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := exec.Start("run-status-1", "test")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exec.Execute(context.Background(), rc); err != nil {
		t.Fatal(err)
	}
	exec.Close()

	var out, errOut bytes.Buffer
	code := runStatus([]string{runDir, "--manifest", manifest}, &out, &errOut)
	if code != 0 {
		t.Fatalf("runStatus exit code = %d, stderr=%s", code, errOut.String())
	}

	text := out.String()
	if !strings.Contains(text, "flaky_step") || !strings.Contains(text, "(attempt 1)") {
		t.Errorf("status text missing flaky_step attempt count: %s", text)
	}
	if !strings.Contains(text, "completed_steps=1") {
		t.Errorf("status text missing completed_steps: %s", text)
	}
	if !strings.Contains(text, "failed_hard_gates=strict_gate") {
		t.Errorf("status text missing failed_hard_gates: %s", text)
	}
}

func TestRunEvents_TailAndJSON(t *testing.T) {
	manifest := writeManifest(t, oneStepManifest)
	runDir := filepath.Join(t.TempDir(), "run1")

	var out, errOut bytes.Buffer
	runStart([]string{runDir, "--manifest", manifest}, &out, &errOut)

	out.Reset()
	code := runEvents([]string{runDir, "--tail", "1", "--json"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("runEvents exit code = %d, stderr=%s", code, errOut.String())
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("tail 1 produced %d lines, want 1: %q", len(lines), out.String())
	}
	if !strings.Contains(lines[0], `"event_type"`) {
		t.Errorf("event line not JSON: %s", lines[0])
	}
}

func TestRunResume_FailedWithHardGateFailureIsRejected(t *testing.T) {
	manifest := writeManifest(t, `
version: 1
steps:
  - step_id: only_step
    is_hard_gate: true
`)
	runDir := filepath.Join(t.TempDir(), "run1")

	var out, errOut bytes.Buffer
	runStart([]string{runDir, "--manifest", manifest}, &out, &errOut)

	out.Reset()
	errOut.Reset()
	code := runResume([]string{runDir, "--manifest", manifest}, &out, &errOut)
	if code != 1 {
		t.Fatalf("runResume exit code = %d, want 1 (hard gate failure blocks resume)", code)
	}
}
