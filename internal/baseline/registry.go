// Package baseline verifies the org-wide dependency baseline registry: a
// JSON file pinning each tracked repo's required tags per bucket, and the
// policy around which branches must satisfy those pins before a publish.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Pin is one bucket's pinned tag/sha pair for a repo.
type Pin struct {
	Tag string `json:"tag"`
	SHA string `json:"sha"`
}

// RepoConfig is one repo's entry in the registry.
type RepoConfig struct {
	Pins                      map[string]Pin `json:"pins"`
	RequiredBucketForProtected string        `json:"required_bucket_for_protected,omitempty"`
}

// Policy is the registry's org-wide publish policy.
type Policy struct {
	RequireAnnotatedTags            bool     `json:"require_annotated_tags"`
	ProtectedBranchPatterns         []string `json:"protected_branch_patterns"`
	DefaultRequiredBucketForProtected string `json:"default_required_bucket_for_protected"`
}

// Registry is the full baseline registry document.
type Registry struct {
	SchemaVersion int                   `json:"schema_version"`
	Org           string                `json:"org"`
	Policy        Policy                `json:"policy"`
	Buckets       map[string]bool       `json:"buckets"`
	Repos         map[string]RepoConfig `json:"repos"`
}

// LoadRegistry reads and JSON-decodes the registry at path. It does not
// validate; call Validate separately so callers can distinguish "file
// unreadable" from "file malformed" from "file structurally invalid".
func LoadRegistry(path string) (*Registry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := json.Unmarshal(b, &reg); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return &reg, nil
}

// Validate checks the registry's structural shape: required top-level
// keys, bucket references that actually exist, and well-formed pins.
func (r *Registry) Validate() error {
	if r.SchemaVersion == 0 {
		return fmt.Errorf("registry missing key: schema_version")
	}
	if r.Org == "" {
		return fmt.Errorf("registry missing key: org")
	}
	if r.Policy.ProtectedBranchPatterns == nil {
		return fmt.Errorf("policy missing key: protected_branch_patterns")
	}
	if r.Policy.DefaultRequiredBucketForProtected == "" {
		return fmt.Errorf("policy missing key: default_required_bucket_for_protected")
	}
	if !r.Buckets[r.Policy.DefaultRequiredBucketForProtected] {
		return fmt.Errorf("default_required_bucket_for_protected not present in buckets")
	}
	if len(r.Repos) == 0 {
		return fmt.Errorf("repos must be a non-empty object")
	}
	for repoName, repoCfg := range r.Repos {
		if !strings.Contains(repoName, "/") {
			return fmt.Errorf("repo key must look like org/repo: %s", repoName)
		}
		if repoCfg.Pins == nil {
			return fmt.Errorf("%s: missing pins", repoName)
		}
		reqBucket := repoCfg.RequiredBucketForProtected
		if reqBucket == "" {
			reqBucket = r.Policy.DefaultRequiredBucketForProtected
		}
		if !r.Buckets[reqBucket] {
			return fmt.Errorf("%s: unknown required bucket %s", repoName, reqBucket)
		}
		for bucketName, pin := range repoCfg.Pins {
			if !r.Buckets[bucketName] {
				return fmt.Errorf("%s: unknown bucket in pins: %s", repoName, bucketName)
			}
			if pin.Tag == "" || pin.SHA == "" {
				return fmt.Errorf("%s:%s pin must contain tag and sha", repoName, bucketName)
			}
		}
	}
	return nil
}

// RequiredBucket returns the bucket a repo must satisfy on a protected
// branch, falling back to the registry's default.
func (r *Registry) RequiredBucket(repoFullName string) string {
	cfg := r.Repos[repoFullName]
	if cfg.RequiredBucketForProtected != "" {
		return cfg.RequiredBucketForProtected
	}
	return r.Policy.DefaultRequiredBucketForProtected
}

// RepoLocalPath mirrors the workspace layout convention: <root>/repos/<name>,
// where <name> is the part of "org/name" after the slash.
func RepoLocalPath(workspaceRoot, repoFullName string) string {
	parts := strings.SplitN(repoFullName, "/", 2)
	name := repoFullName
	if len(parts) == 2 {
		name = parts[1]
	}
	return filepath.Join(workspaceRoot, "repos", name)
}
