package tree

import (
	"cmp"
	"slices"

	"github.com/aukilabs/scenestream/bounds"
)

// DebugInfo is a snapshot of a tree used for visualization.
type DebugInfo struct {
	Kind     string      `json:"kind"`
	Strategy string      `json:"strategy"`
	MaxDepth int         `json:"max_depth"`
	Bounds   bounds.AABB `json:"bounds"`
	Objects  int         `json:"objects"`
	Nodes    []NodeInfo  `json:"nodes"`
}

type NodeInfo struct {
	Bounds  bounds.AABB `json:"bounds"`
	Depth   int         `json:"depth"`
	Objects int         `json:"objects"`

	// The Morton code of linear tree leaves.
	Key *uint32 `json:"key,omitempty"`
}

func newDebugInfo(l *lattice, s Strategy, objects int) DebugInfo {
	return DebugInfo{
		Kind:     l.kind.String(),
		Strategy: s.String(),
		MaxDepth: l.maxDepth,
		Bounds:   l.root,
		Objects:  objects,
	}
}

func sortNodes(nodes []NodeInfo) {
	slices.SortFunc(nodes, func(a, b NodeInfo) int {
		if c := cmp.Compare(a.Depth, b.Depth); c != 0 {
			return c
		}

		var ka, kb uint32
		if a.Key != nil {
			ka = *a.Key
		}
		if b.Key != nil {
			kb = *b.Key
		}
		return cmp.Compare(ka, kb)
	})
}
