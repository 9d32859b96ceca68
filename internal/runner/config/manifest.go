// Package config loads pipeline manifests: the declared step list and
// retry-backoff parameters of a pipeline run. Loading is a
// three-pass shape: a strict decode, then defaults, then validation.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/northroot-labs/pipelinerunner/internal/runner/backoff"
	"github.com/northroot-labs/pipelinerunner/internal/runner/contracts"
)

// StepConfig is one manifest entry. RetryClasses defaults at the
// contracts.StepDefinition layer (InRetryClasses), not here.
type StepConfig struct {
	StepID        string   `json:"step_id" yaml:"step_id"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	IsHardGate    bool     `json:"is_hard_gate,omitempty" yaml:"is_hard_gate,omitempty"`
	IsManualGated bool     `json:"is_manual_gated,omitempty" yaml:"is_manual_gated,omitempty"`
	MaxRetries    *int     `json:"max_retries,omitempty" yaml:"max_retries,omitempty"`
	RetryClasses  []string `json:"retry_classes,omitempty" yaml:"retry_classes,omitempty"`
}

// RetryConfig overrides the default backoff parameters.
type RetryConfig struct {
	BaseSeconds float64 `json:"base_seconds,omitempty" yaml:"base_seconds,omitempty"`
	CapSeconds  float64 `json:"cap_seconds,omitempty" yaml:"cap_seconds,omitempty"`
}

// ManifestFile is the on-disk shape of a pipeline manifest (JSON or YAML).
type ManifestFile struct {
	Version int          `json:"version" yaml:"version"`
	Steps   []StepConfig `json:"steps" yaml:"steps"`
	Retry   RetryConfig  `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// Manifest is a loaded, validated manifest ready to drive a run: the
// static DAG plus the backoff parameters to use for it.
type Manifest struct {
	DAG    *contracts.PipelineDAG
	Backoff backoff.Config
}

var validErrorClasses = map[string]contracts.ErrorClass{
	string(contracts.ErrTransientIO):          contracts.ErrTransientIO,
	string(contracts.ErrContractInputMissing): contracts.ErrContractInputMissing,
	string(contracts.ErrHardGateFailed):       contracts.ErrHardGateFailed,
	string(contracts.ErrValidationFailed):     contracts.ErrValidationFailed,
	string(contracts.ErrUnknown):              contracts.ErrUnknown,
}

// Load reads, schema-validates, strict-decodes, defaults, and validates
// the manifest at path, returning the fully built Manifest.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))

	if err := validateAgainstSchema(b, ext); err != nil {
		return nil, fmt.Errorf("manifest schema: %w", err)
	}

	var mf ManifestFile
	switch ext {
	case ".json":
		err = decodeJSONStrict(b, &mf)
	default:
		err = decodeYAMLStrict(b, &mf)
	}
	if err != nil {
		return nil, fmt.Errorf("manifest decode: %w", err)
	}

	applyDefaults(&mf)
	if err := validateManifest(&mf); err != nil {
		return nil, fmt.Errorf("manifest validate: %w", err)
	}

	return build(&mf), nil
}

func build(mf *ManifestFile) *Manifest {
	steps := make([]contracts.StepDefinition, 0, len(mf.Steps))
	for _, s := range mf.Steps {
		var classes []contracts.ErrorClass
		for _, c := range s.RetryClasses {
			classes = append(classes, validErrorClasses[c])
		}
		steps = append(steps, contracts.StepDefinition{
			StepID:        s.StepID,
			Name:          s.Name,
			IsHardGate:    s.IsHardGate,
			IsManualGated: s.IsManualGated,
			MaxRetries:    *s.MaxRetries,
			RetryClasses:  classes,
		})
	}
	return &Manifest{
		DAG: contracts.NewPipelineDAG(steps),
		Backoff: backoff.Config{
			BaseSeconds: mf.Retry.BaseSeconds,
			CapSeconds:  mf.Retry.CapSeconds,
		},
	}
}

func decodeJSONStrict(b []byte, mf *ManifestFile) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(mf); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("json: multiple top-level values are not allowed")
		}
		return err
	}
	return nil
}

func decodeYAMLStrict(b []byte, mf *ManifestFile) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(mf); err != nil {
		return err
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("yaml: multiple documents are not allowed")
		}
		return err
	}
	return nil
}

func applyDefaults(mf *ManifestFile) {
	if mf.Version == 0 {
		mf.Version = 1
	}
	if mf.Retry.BaseSeconds == 0 {
		mf.Retry.BaseSeconds = backoff.DefaultBaseSeconds
	}
	if mf.Retry.CapSeconds == 0 {
		mf.Retry.CapSeconds = backoff.DefaultCapSeconds
	}
	for i := range mf.Steps {
		if mf.Steps[i].MaxRetries == nil {
			zero := 0
			mf.Steps[i].MaxRetries = &zero
		}
		mf.Steps[i].StepID = strings.TrimSpace(mf.Steps[i].StepID)
	}
}

func validateManifest(mf *ManifestFile) error {
	if mf.Version != 1 {
		return fmt.Errorf("unsupported manifest version: %d", mf.Version)
	}
	if len(mf.Steps) == 0 {
		return fmt.Errorf("steps: at least one step is required")
	}
	seen := make(map[string]bool, len(mf.Steps))
	for i, s := range mf.Steps {
		if s.StepID == "" {
			return fmt.Errorf("steps[%d].step_id is required", i)
		}
		if seen[s.StepID] {
			return fmt.Errorf("steps[%d]: duplicate step_id %q", i, s.StepID)
		}
		seen[s.StepID] = true
		if *s.MaxRetries < 0 {
			return fmt.Errorf("steps[%d] (%s): max_retries must be >= 0", i, s.StepID)
		}
		if s.IsHardGate && s.IsManualGated {
			return fmt.Errorf("steps[%d] (%s): is_hard_gate and is_manual_gated are mutually exclusive", i, s.StepID)
		}
		for _, c := range s.RetryClasses {
			if _, ok := validErrorClasses[c]; !ok {
				return fmt.Errorf("steps[%d] (%s): unknown retry class %q", i, s.StepID, c)
			}
		}
	}
	if mf.Retry.BaseSeconds <= 0 {
		return fmt.Errorf("retry.base_seconds must be > 0")
	}
	if mf.Retry.CapSeconds < mf.Retry.BaseSeconds {
		return fmt.Errorf("retry.cap_seconds must be >= retry.base_seconds")
	}
	return nil
}
