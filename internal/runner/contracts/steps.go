package contracts

// StepDefinition is a declared, statically known node in the pipeline DAG.
type StepDefinition struct {
	StepID        string
	Name          string
	IsHardGate    bool
	IsManualGated bool
	MaxRetries    int
	RetryClasses  []ErrorClass
}

// InRetryClasses reports whether the given error class is one this step
// declares as retry-eligible. Step definitions with no explicit
// RetryClasses default to {TRANSIENT_IO}, matching the Python original's
// dataclass default.
func (s StepDefinition) InRetryClasses(ec ErrorClass) bool {
	classes := s.RetryClasses
	if classes == nil {
		classes = []ErrorClass{ErrTransientIO}
	}
	for _, c := range classes {
		if c == ec {
			return true
		}
	}
	return false
}

// PipelineDAG is an ordered sequence of step definitions. The ordering *is*
// the dependency graph: step i depends on all steps < i.
type PipelineDAG struct {
	Steps []StepDefinition

	index map[string]int
}

// NewPipelineDAG builds a DAG from an ordered step list, precomputing the
// step_id -> position index used by every lookup below.
func NewPipelineDAG(steps []StepDefinition) *PipelineDAG {
	idx := make(map[string]int, len(steps))
	for i, s := range steps {
		idx[s.StepID] = i
	}
	return &PipelineDAG{Steps: steps, index: idx}
}

// StepByID returns the declared step and whether it was found.
func (d *PipelineDAG) StepByID(stepID string) (StepDefinition, bool) {
	i, ok := d.index[stepID]
	if !ok {
		return StepDefinition{}, false
	}
	return d.Steps[i], true
}

// IndexOf returns the declared position of stepID, or -1 if unknown.
func (d *PipelineDAG) IndexOf(stepID string) int {
	i, ok := d.index[stepID]
	if !ok {
		return -1
	}
	return i
}

// UpstreamOf returns every step declared before stepID.
func (d *PipelineDAG) UpstreamOf(stepID string) []string {
	i := d.IndexOf(stepID)
	if i < 0 {
		return nil
	}
	out := make([]string, 0, i)
	for _, s := range d.Steps[:i] {
		out = append(out, s.StepID)
	}
	return out
}

// DownstreamOf returns every step declared after stepID.
func (d *PipelineDAG) DownstreamOf(stepID string) []string {
	i := d.IndexOf(stepID)
	if i < 0 {
		return nil
	}
	out := make([]string, 0, len(d.Steps)-i-1)
	for _, s := range d.Steps[i+1:] {
		out = append(out, s.StepID)
	}
	return out
}

// ExamplePipeline is the demonstration pipeline ported from the reference
// implementation's PIPELINE_STEPS: eight steps with a representative mix of
// hard gates, bounded retries, and one manual-gated publish step. It is not
// load-bearing for any runner behavior; it exists as a ready-made fixture
// for tests, docs, and manual exploration of the CLI.
func ExamplePipeline() *PipelineDAG {
	return NewPipelineDAG([]StepDefinition{
		{StepID: "preflight_contract_check", Name: "Preflight contract check", IsHardGate: true},
		{StepID: "phase_benchmark", Name: "Phase benchmark", IsHardGate: true, MaxRetries: 2},
		{StepID: "stage_data_layout", Name: "Stage data layout", MaxRetries: 3},
		{StepID: "build_steward_bundle", Name: "Build steward bundle", MaxRetries: 2},
		{StepID: "validate_bundle_quality", Name: "Validate bundle quality", IsHardGate: true},
		{StepID: "build_minimal_deliverable", Name: "Build minimal deliverable", MaxRetries: 2},
		{StepID: "verify_artifacts", Name: "Verify artifacts", IsHardGate: true},
		{StepID: "publish_internal", Name: "Publish internal", IsManualGated: true},
	})
}
