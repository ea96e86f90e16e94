package formatting

import (
	"strings"
)

// TreeNode is one line of a rendered tree.
type TreeNode struct {
	Name     string
	IsFolder bool
	Depth    int
	IsLast   bool   // last child of its parent
	Metadata string // pre-rendered suffix, e.g. "(277 words)"
}

// TreeRenderer draws a flat node list as a tree with box-drawing characters.
type TreeRenderer struct{}

// NewTreeRenderer creates a new TreeRenderer instance.
func NewTreeRenderer() *TreeRenderer {
	return &TreeRenderer{}
}

// Render converts nodes into a tree string. Nodes must be in depth-first
// order with Depth and IsLast set.
//
// Example output:
//
//	/ (root)
//	├── file1.md (100 words)
//	├── folder/
//	│   └── file2.md (200 words)
//	└── file3.md (150 words)
func (r *TreeRenderer) Render(nodes []TreeNode) string {
	if len(nodes) == 0 {
		return ""
	}

	var result strings.Builder

	// Depths that still have siblings pending get continuation lines.
	continuations := make(map[int]bool)

	for i, node := range nodes {
		line := r.buildPrefix(node.Depth, node.IsLast, continuations) + node.Name

		if node.IsFolder && !strings.HasSuffix(node.Name, "/") {
			line += "/"
		}
		if node.Metadata != "" {
			line += " " + node.Metadata
		}

		result.WriteString(line)
		if i < len(nodes)-1 {
			result.WriteString("\n")
		}

		if node.IsLast {
			delete(continuations, node.Depth)
		} else {
			continuations[node.Depth] = true
		}
	}

	return result.String()
}

// buildPrefix creates the branch prefix for a node.
func (r *TreeRenderer) buildPrefix(depth int, isLast bool, continuations map[int]bool) string {
	if depth == 0 {
		return ""
	}

	// Cell d covers the ancestor at depth d+1; depth 0 is the root label
	// and never needs a continuation line.
	var prefix strings.Builder
	for d := 0; d < depth-1; d++ {
		if continuations[d+1] {
			prefix.WriteString("│   ")
		} else {
			prefix.WriteString("    ")
		}
	}

	if isLast {
		prefix.WriteString("└── ")
	} else {
		prefix.WriteString("├── ")
	}

	return prefix.String()
}
