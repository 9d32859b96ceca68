package contracts

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHashString_DeterministicAndLength(t *testing.T) {
	h1 := HashString("hello world")
	h2 := HashString("hello world")
	if h1 != h2 {
		t.Errorf("HashString not deterministic: %q vs %q", h1, h2)
	}
	if len(h1) != hashDigestLen {
		t.Errorf("HashString length = %d, want %d", len(h1), hashDigestLen)
	}
	if HashString("different") == h1 {
		t.Error("different inputs produced the same hash")
	}
}

func TestEvent_ToJSONLine_OmitsUnsetOptionalFields(t *testing.T) {
	e := NewRunCreated("run-1")
	line, err := e.ToJSONLine()
	if err != nil {
		t.Fatalf("ToJSONLine: %v", err)
	}
	s := string(line)
	for _, field := range []string{"step_id", "error_class", "reason", "artifact_path"} {
		if strings.Contains(s, field) {
			t.Errorf("expected %q to be omitted from %s", field, s)
		}
	}
	var decoded Event
	if err := json.Unmarshal(line, &decoded); err != nil {
		t.Fatalf("round-trip decode: %v", err)
	}
	if decoded.EventType != EventRunCreated || decoded.RunID != "run-1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestEvent_StepFailed_CarriesErrorClassAndReason(t *testing.T) {
	e := NewStepFailed("run-1", "step-a", 2, ErrTransientIO, "disk full")
	if e.ErrorClass != ErrTransientIO || e.Reason != "disk full" || e.Attempt != 2 {
		t.Errorf("NewStepFailed = %+v", e)
	}
}

func TestNewRunID_AndNewEventID_AreUniqueAndNonEmpty(t *testing.T) {
	a := NewRunID()
	b := NewRunID()
	if a == "" || b == "" || a == b {
		t.Errorf("NewRunID produced non-unique or empty ids: %q, %q", a, b)
	}
	if NewEventID() == NewEventID() {
		t.Error("NewEventID produced a duplicate")
	}
}

func TestPipelineDAG_UpstreamAndDownstream(t *testing.T) {
	dag := NewPipelineDAG([]StepDefinition{
		{StepID: "a"}, {StepID: "b"}, {StepID: "c"},
	})
	if got := dag.UpstreamOf("c"); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("UpstreamOf(c) = %v", got)
	}
	if got := dag.DownstreamOf("a"); len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("DownstreamOf(a) = %v", got)
	}
	if dag.IndexOf("nope") != -1 {
		t.Error("IndexOf for unknown step should be -1")
	}
	if _, ok := dag.StepByID("nope"); ok {
		t.Error("StepByID for unknown step should report not-found")
	}
}

func TestStepDefinition_InRetryClasses_DefaultsToTransientIO(t *testing.T) {
	s := StepDefinition{StepID: "x"}
	if !s.InRetryClasses(ErrTransientIO) {
		t.Error("a step with no declared retry_classes should default to allowing TRANSIENT_IO")
	}
	if s.InRetryClasses(ErrValidationFailed) {
		t.Error("default retry_classes should not include VALIDATION_FAILED")
	}
}

func TestExamplePipeline_HasEightSteps(t *testing.T) {
	dag := ExamplePipeline()
	if len(dag.Steps) != 8 {
		t.Fatalf("ExamplePipeline has %d steps, want 8", len(dag.Steps))
	}
	if !dag.Steps[0].IsHardGate {
		t.Error("preflight_contract_check should be a hard gate")
	}
	last := dag.Steps[len(dag.Steps)-1]
	if !last.IsManualGated {
		t.Error("publish_internal should be manual-gated")
	}
}

func TestTransitionError_Message(t *testing.T) {
	err := &TransitionError{Machine: "run", From: "succeeded", To: "executing"}
	if !strings.Contains(err.Error(), "succeeded") || !strings.Contains(err.Error(), "executing") {
		t.Errorf("TransitionError.Error() = %q", err.Error())
	}
}
