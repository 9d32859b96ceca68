// Package localmode merges a single named mode block into a workspace's
// modes.local.yaml override file, leaving every other mode block
// untouched. Unlike a line-oriented splice, it parses the existing
// document into a yaml.Node tree and replaces just the target mapping
// entry, so comments and key order on unrelated blocks survive.
package localmode

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const header = "# Local mode overrides (gitignored). Promoted with: enter.sh <mode> --local\n" +
	"# Same structure as repos/docs/internal/workspace/modes.yaml\n\n"

// Mode is one entry under the top-level "modes" map.
type Mode struct {
	Focus        string   `yaml:"focus"`
	InScopePaths []string `yaml:"in_scope_paths"`
	Repos        []string `yaml:"repos"`
}

// Merge reads path (if it exists), replaces or inserts the mode named
// modeName with a fresh local-override block for paths/repos, and writes
// the result back to path. Every other mode already present is preserved
// verbatim.
func Merge(path, modeName string, paths, repos []string) error {
	modesNode, err := loadModesNode(path)
	if err != nil {
		return err
	}

	newBlock := &yaml.Node{Kind: yaml.MappingNode}
	if err := newBlock.Encode(Mode{
		Focus:        "(local override)",
		InScopePaths: paths,
		Repos:        repos,
	}); err != nil {
		return err
	}

	replaceOrInsertMode(modesNode, modeName, newBlock)

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "modes"},
			modesNode,
		},
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append([]byte(header), out...), 0o644)
}

// loadModesNode returns the mapping node under "modes" in the file at
// path, or a fresh empty mapping node if the file does not exist or has
// no such key yet.
func loadModesNode(path string) (*yaml.Node, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("localmode: parsing %s: %w", path, err)
	}
	if len(root.Content) == 0 {
		return &yaml.Node{Kind: yaml.MappingNode}, nil
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("localmode: %s: top-level document is not a mapping", path)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "modes" {
			return doc.Content[i+1], nil
		}
	}
	return &yaml.Node{Kind: yaml.MappingNode}, nil
}

// replaceOrInsertMode mutates modesNode's key/value pairs in place,
// replacing the value for key modeName if present, appending it otherwise.
func replaceOrInsertMode(modesNode *yaml.Node, modeName string, block *yaml.Node) {
	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: modeName}
	for i := 0; i+1 < len(modesNode.Content); i += 2 {
		if modesNode.Content[i].Value == modeName {
			modesNode.Content[i+1] = block
			return
		}
	}
	modesNode.Content = append(modesNode.Content, keyNode, block)
}
