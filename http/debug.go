package http

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/stream"
	"github.com/aukilabs/scenestream/tree"
	"github.com/go-gl/mathgl/mgl32"
)

// Gradient colors tree nodes by depth, from Min at the root to Max at the
// deepest level.
type Gradient struct {
	Min mgl32.Vec4
	Max mgl32.Vec4
}

// DefaultGradient goes from opaque white to translucent red.
func DefaultGradient() Gradient {
	return Gradient{
		Min: mgl32.Vec4{1, 1, 1, 1},
		Max: mgl32.Vec4{1, 0, 0, 0.5},
	}
}

// Color returns the RGBA hex color of a node at the given depth.
func (g Gradient) Color(depth, maxDepth int) string {
	var t float32
	if maxDepth > 0 {
		t = mgl32.Clamp(float32(depth)/float32(maxDepth), 0, 1)
	}

	c := g.Min.Add(g.Max.Sub(g.Min).Mul(t))
	return fmt.Sprintf("#%02x%02x%02x%02x",
		channel(c[0]),
		channel(c[1]),
		channel(c[2]),
		channel(c[3]),
	)
}

func channel(v float32) uint8 {
	return uint8(math.Round(float64(mgl32.Clamp(v, 0, 1) * 255)))
}

type treeDebugResponse struct {
	Kind     string          `json:"kind"`
	Strategy string          `json:"strategy"`
	MaxDepth int             `json:"max_depth"`
	Bounds   bounds.AABB     `json:"bounds"`
	Objects  int             `json:"objects"`
	Nodes    []treeDebugNode `json:"nodes"`
}

type treeDebugNode struct {
	Bounds  bounds.AABB `json:"bounds"`
	Depth   int         `json:"depth"`
	Objects int         `json:"objects"`
	Key     *uint32     `json:"key,omitempty"`
	Color   string      `json:"color"`
}

// HandleTreeDebug responds with the nodes of the tree returned by debugInfo,
// each colored by its depth. The min_depth and max_depth query parameters
// restrict the nodes to a range of depths.
func HandleTreeDebug(debugInfo func() tree.DebugInfo, g Gradient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info := debugInfo()

		minDepth, err := depthParam(r, "min_depth", 0)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		maxDepth, err := depthParam(r, "max_depth", info.MaxDepth)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}

		res := treeDebugResponse{
			Kind:     info.Kind,
			Strategy: info.Strategy,
			MaxDepth: info.MaxDepth,
			Bounds:   info.Bounds,
			Objects:  info.Objects,
			Nodes:    make([]treeDebugNode, 0, len(info.Nodes)),
		}

		for _, n := range info.Nodes {
			if n.Depth < minDepth || n.Depth > maxDepth {
				continue
			}

			res.Nodes = append(res.Nodes, treeDebugNode{
				Bounds:  n.Bounds,
				Depth:   n.Depth,
				Objects: n.Objects,
				Key:     n.Key,
				Color:   g.Color(n.Depth, info.MaxDepth),
			})
		}

		writeJSON(w, http.StatusOK, res)
	}
}

// HandleStats responds with the statistics of a controller.
func HandleStats(stats func() stream.Stats) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stats())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func depthParam(r *http.Request, name string, defaultValue int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultValue, nil
	}

	depth, err := strconv.Atoi(v)
	if err != nil || depth < 0 {
		return 0, errors.New("invalid depth parameter").
			WithTag("name", name).
			WithTag("value", v)
	}
	return depth, nil
}
