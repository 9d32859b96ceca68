// Package gitutil wraps the handful of read-only git subcommands the
// baseline verifier needs: resolving tags, checking ancestry, and
// refreshing tag refs from a remote. It never mutates the working tree.
package gitutil

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

type CommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func runGit(dir string, args ...string) (string, string, error) {
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	outStr := stdout.String()
	errStr := stderr.String()
	if err != nil {
		return outStr, errStr, &CommandError{Args: args, Stdout: outStr, Stderr: errStr, Err: err}
	}
	return outStr, errStr, nil
}

// RevParse resolves ref to a commit SHA.
func RevParse(dir, ref string) (string, error) {
	out, _, err := runGit(dir, "rev-parse", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ObjectType returns the object type ("commit", "tag", "tree", "blob") of ref.
func ObjectType(dir, ref string) (string, error) {
	out, _, err := runGit(dir, "cat-file", "-t", ref)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ResolveTagCommit returns the commit SHA a tag ultimately points at.
// requireAnnotated rejects lightweight tags (object type other than "tag").
func ResolveTagCommit(dir, tagName string, requireAnnotated bool) (string, error) {
	objType, err := ObjectType(dir, "refs/tags/"+tagName)
	if err != nil {
		return "", err
	}
	if requireAnnotated && objType != "tag" {
		return "", fmt.Errorf("tag %s is %s; annotated tags required", tagName, objType)
	}
	out, _, err := runGit(dir, "rev-list", "-n", "1", tagName)
	if err != nil {
		return "", err
	}
	sha := strings.TrimSpace(out)
	if sha == "" {
		return "", fmt.Errorf("unable to resolve commit for tag %s", tagName)
	}
	return sha, nil
}

// IsAncestor reports whether ancestorSHA is an ancestor of (or equal to)
// descendantSHA.
func IsAncestor(dir, ancestorSHA, descendantSHA string) (bool, error) {
	cmd := exec.Command("git", "-C", dir, "merge-base", "--is-ancestor", ancestorSHA, descendantSHA)
	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FetchTags refreshes tag refs (and prunes stale ones) from remote.
func FetchTags(dir, remote string) error {
	_, _, err := runGit(dir, "fetch", "--prune", "--tags", remote)
	return err
}
