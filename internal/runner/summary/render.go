package summary

import (
	"encoding/json"
	"fmt"
	"strings"
)

// machineStep and machineDoc mirror the command-line JSON schema.
type machineStep struct {
	StepID      string  `json:"step_id"`
	State       string  `json:"state"`
	Attempts    int     `json:"attempts"`
	ErrorClass  *string `json:"error_class"`
	ErrorReason *string `json:"error_reason"`
	DurationMS  *int64  `json:"duration_ms"`
}

type machineStats struct {
	TotalSteps    int `json:"total_steps"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
	TotalAttempts int `json:"total_attempts"`
	TotalRetries  int `json:"total_retries"`
}

type machineDoc struct {
	RunID           string        `json:"run_id"`
	FinalState      string        `json:"final_state"`
	CreatedAt       string        `json:"created_at"`
	CompletedAt     *string       `json:"completed_at"`
	DurationMS      *int64        `json:"duration_ms"`
	Steps           []machineStep `json:"steps"`
	Stats           machineStats  `json:"stats"`
	FailedHardGates []string      `json:"failed_hard_gates"`
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToJSON encodes the summary as the exact machine schema.
func (s *RunSummary) ToJSON() ([]byte, error) {
	steps := make([]machineStep, 0, len(s.Steps))
	for _, st := range s.Steps {
		steps = append(steps, machineStep{
			StepID:      st.StepID,
			State:       string(st.State),
			Attempts:    st.Attempts,
			ErrorClass:  strPtrOrNil(string(st.ErrorClass)),
			ErrorReason: strPtrOrNil(st.ErrorReason),
			DurationMS:  st.DurationMS,
		})
	}
	doc := machineDoc{
		RunID:       s.RunID,
		FinalState:  string(s.FinalState),
		CreatedAt:   s.CreatedAt,
		CompletedAt: strPtrOrNil(s.CompletedAt),
		DurationMS:  s.DurationMS,
		Steps:       steps,
		Stats: machineStats{
			TotalSteps:    len(s.Steps),
			Completed:     s.CompletedSteps,
			Failed:        s.FailedSteps,
			Skipped:       s.SkippedSteps,
			TotalAttempts: s.TotalAttempts,
			TotalRetries:  s.TotalRetries,
		},
		FailedHardGates: s.FailedHardGates,
	}
	return json.MarshalIndent(doc, "", "  ")
}

var runStatusGlyph = map[string]string{
	"succeeded":   "✓",
	"failed":      "✗",
	"rolled_back": "↺",
}

var stepStatusGlyph = map[string]string{
	"succeeded":   "✓",
	"failed":      "✗",
	"skipped":     "⊘",
	"compensated": "↺",
}

// ToText renders the fixed-width human table.
func (s *RunSummary) ToText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run Summary: %s\n", s.RunID)
	b.WriteString(strings.Repeat("=", 60) + "\n")

	glyph := runStatusGlyph[string(s.FinalState)]
	if glyph == "" {
		glyph = "•"
	}
	fmt.Fprintf(&b, "Status: %s %s\n", glyph, strings.ToUpper(string(s.FinalState)))
	fmt.Fprintf(&b, "Created: %s\n", s.CreatedAt)
	if s.CompletedAt != "" {
		fmt.Fprintf(&b, "Completed: %s\n", s.CompletedAt)
	}
	if s.DurationMS != nil {
		fmt.Fprintf(&b, "Duration: %.2fs\n", float64(*s.DurationMS)/1000)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Steps: %d total (%d completed, %d failed, %d skipped)\n",
		len(s.Steps), s.CompletedSteps, s.FailedSteps, s.SkippedSteps)
	fmt.Fprintf(&b, "Retries: %d\n", s.TotalRetries)
	if len(s.FailedHardGates) > 0 {
		fmt.Fprintf(&b, "Hard gate failures: %s\n", strings.Join(s.FailedHardGates, ", "))
	}
	b.WriteString("\n")

	b.WriteString("Steps:\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, st := range s.Steps {
		g := stepStatusGlyph[string(st.State)]
		if g == "" {
			g = "•"
		}
		fmt.Fprintf(&b, "  %s %-30s %s", g, st.StepID, st.State)
		if st.Attempts > 1 {
			fmt.Fprintf(&b, " (attempts: %d)", st.Attempts)
		}
		b.WriteString("\n")
		if st.ErrorReason != "" {
			fmt.Fprintf(&b, "      Error: %s\n", st.ErrorReason)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
