package options

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// Parse decodes a partial YAML configuration. An empty document yields an empty tree.
func Parse(data []byte) (Tree, error) {
	var t Tree
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse options: %w", err)
	}
	if t == nil {
		t = Tree{}
	}
	return t, nil
}

// Load reads a partial YAML configuration file.
func Load(path string) (Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read options %s: %w", path, err)
	}
	return Parse(data)
}

// Encode serialises a tree as YAML.
func Encode(t Tree) ([]byte, error) {
	data, err := yaml.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode options: %w", err)
	}
	return data, nil
}

// Diff returns the leaves of current that differ from base, as a partial tree
// suitable for persisting user overrides.
func Diff(base, current domain.Options) Tree {
	return diffTree(ToTree(base), ToTree(current))
}

func diffTree(base, current Tree) Tree {
	out := Tree{}
	for k, cv := range current {
		bv := base[k]
		if cRec, ok := cv.(Tree); ok {
			bRec, _ := bv.(Tree)
			if sub := diffTree(bRec, cRec); len(sub) > 0 {
				out[k] = sub
			}
			continue
		}
		if bv != cv {
			out[k] = cv
		}
	}
	return out
}
