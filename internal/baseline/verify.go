package baseline

import (
	"fmt"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/northroot-labs/pipelinerunner/internal/baseline/gitutil"
)

// IsProtectedBranch reports whether branchName matches any of the
// registry's protected_branch_patterns. Patterns use doublestar glob
// syntax rather than Python's fnmatch; a plain "*" matches within one
// path segment only, so "release/*" matches "release/1.2" but not
// "release/1.2/hotfix", and "**" is needed to cross a '/'.
func (r *Registry) IsProtectedBranch(branchName string) bool {
	for _, pattern := range r.Policy.ProtectedBranchPatterns {
		if ok, _ := doublestar.Match(pattern, branchName); ok {
			return true
		}
	}
	return false
}

// VerifyTags resolves every pinned tag in the registry against the repos
// checked out under workspaceRoot and confirms each resolves to its
// expected SHA. Repos not present on disk are skipped (they may not be
// checked out in this workspace). It returns the count of pins checked.
func VerifyTags(reg *Registry, workspaceRoot string) (int, error) {
	requireAnnotated := reg.Policy.RequireAnnotatedTags
	checked := 0
	for repoFullName, repoCfg := range reg.Repos {
		repoDir := RepoLocalPath(workspaceRoot, repoFullName)
		if _, err := os.Stat(repoDir); err != nil {
			continue
		}
		for bucketName, pin := range repoCfg.Pins {
			tagName := strings.TrimSpace(pin.Tag)
			expectedSHA := strings.TrimSpace(pin.SHA)
			if tagName == "" {
				continue
			}
			commitSHA, err := gitutil.ResolveTagCommit(repoDir, tagName, requireAnnotated)
			if err != nil {
				return checked, fmt.Errorf("%s:%s: %w", repoFullName, bucketName, err)
			}
			if expectedSHA != "" && commitSHA != expectedSHA {
				return checked, fmt.Errorf("%s:%s expected %s, got %s from tag %s",
					repoFullName, bucketName, expectedSHA, commitSHA, tagName)
			}
			checked++
		}
	}
	return checked, nil
}

// PublishCheckResult summarizes a successful check-publish gate pass.
type PublishCheckResult struct {
	Repo          string
	Branch        string
	HeadSHA       string
	RequiredBucket string
	BaselineSHA   string
	Skipped       bool // true when branch is not protected and no check ran
}

// CheckPublish enforces the protected-branch publish gate: on a protected
// branch, the repo's required bucket must have a pin whose tag resolves
// to the expected SHA, and head must descend from that pin. fetchRemote
// controls whether tag refs are refreshed from origin before resolving.
func CheckPublish(reg *Registry, workspaceRoot, repoFullName, branch, head string, fetchRemote bool) (*PublishCheckResult, error) {
	repoCfg, ok := reg.Repos[repoFullName]
	if !ok {
		return nil, fmt.Errorf("repo not found in registry: %s", repoFullName)
	}

	if !reg.IsProtectedBranch(branch) {
		return &PublishCheckResult{Repo: repoFullName, Branch: branch, Skipped: true}, nil
	}

	reqBucket := reg.RequiredBucket(repoFullName)
	pin, ok := repoCfg.Pins[reqBucket]
	if !ok {
		return nil, fmt.Errorf("%s: missing pin for required bucket %s on protected branch", repoFullName, reqBucket)
	}

	tagName := strings.TrimSpace(pin.Tag)
	expectedSHA := strings.TrimSpace(pin.SHA)
	if tagName == "" {
		return nil, fmt.Errorf("%s:%s pin missing tag", repoFullName, reqBucket)
	}
	if expectedSHA == "" {
		return nil, fmt.Errorf("%s:%s pin missing sha", repoFullName, reqBucket)
	}

	repoDir := RepoLocalPath(workspaceRoot, repoFullName)
	if _, err := os.Stat(repoDir); err != nil {
		return nil, fmt.Errorf("local repo path missing: %s", repoDir)
	}

	if fetchRemote {
		if err := gitutil.FetchTags(repoDir, "origin"); err != nil {
			return nil, err
		}
	}

	pinSHA, err := gitutil.ResolveTagCommit(repoDir, tagName, reg.Policy.RequireAnnotatedTags)
	if err != nil {
		return nil, err
	}
	if pinSHA != expectedSHA {
		return nil, fmt.Errorf("%s:%s pin sha mismatch: expected %s, tag resolved %s",
			repoFullName, reqBucket, expectedSHA, pinSHA)
	}

	headSHA, err := gitutil.RevParse(repoDir, head)
	if err != nil {
		return nil, err
	}

	isAncestor, err := gitutil.IsAncestor(repoDir, pinSHA, headSHA)
	if err != nil {
		return nil, err
	}
	if !isAncestor {
		return nil, fmt.Errorf("%s: head %s is not descendant of %s baseline %s",
			repoFullName, headSHA, reqBucket, pinSHA)
	}

	return &PublishCheckResult{
		Repo:           repoFullName,
		Branch:         branch,
		HeadSHA:        headSHA,
		RequiredBucket: reqBucket,
		BaselineSHA:    pinSHA,
	}, nil
}
