// Package bounds provides the axis-aligned box used to describe the extent of
// trees, tree nodes, detectors and scene objects.
package bounds

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	ErrTypeInvalidBounds = "invalid_bounds"
)

// AABB is an immutable axis-aligned bounding box.
type AABB struct {
	Min mgl32.Vec3 `json:"min" yaml:"min"`
	Max mgl32.Vec3 `json:"max" yaml:"max"`
}

// New returns the box centered on center with the given size.
func New(center, size mgl32.Vec3) AABB {
	extents := size.Mul(0.5)
	return AABB{
		Min: center.Sub(extents),
		Max: center.Add(extents),
	}
}

func FromMinMax(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

func (b AABB) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b AABB) Extents() mgl32.Vec3 {
	return b.Size().Mul(0.5)
}

// Validate returns an error when the box min is greater than its max on any
// axis.
func (b AABB) Validate() error {
	for i := 0; i < 3; i++ {
		if b.Min[i] > b.Max[i] {
			return errors.New("bounds min is greater than max").
				WithType(ErrTypeInvalidBounds).
				WithTag("min", b.Min).
				WithTag("max", b.Max).
				WithTag("axis", i)
		}
	}
	return nil
}

// Corners returns the 8 corners of the box. The corner at index x*4 + y*2 + z
// takes the max value on each axis whose bit is set and the min value
// otherwise.
func (b AABB) Corners() [8]mgl32.Vec3 {
	var corners [8]mgl32.Vec3
	for i := range corners {
		corners[i] = b.Corner(i>>2&1, i>>1&1, i&1)
	}
	return corners
}

// Corner returns the corner selected by the given 0 (min) or 1 (max) sides.
func (b AABB) Corner(x, y, z int) mgl32.Vec3 {
	c := b.Min
	if x != 0 {
		c[0] = b.Max[0]
	}
	if y != 0 {
		c[1] = b.Max[1]
	}
	if z != 0 {
		c[2] = b.Max[2]
	}
	return c
}

// Encapsulate returns the smallest box containing both b and o.
func (b AABB) Encapsulate(o AABB) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], o.Min[i])
		b.Max[i] = max(b.Max[i], o.Max[i])
	}
	return b
}

// Union returns the smallest box containing all the given boxes. It returns
// the zero box when boxes is empty.
func Union(boxes ...AABB) AABB {
	if len(boxes) == 0 {
		return AABB{}
	}

	u := boxes[0]
	for _, b := range boxes[1:] {
		u = u.Encapsulate(b)
	}
	return u
}

// Contains reports whether p lies inside b. Faces are inclusive.
func Contains(b AABB, p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Intersects reports whether a and b overlap. Touching faces count as an
// overlap.
func Intersects(a, b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// FullyContains reports whether every corner of inner lies inside outer.
func FullyContains(outer, inner AABB) bool {
	for _, c := range inner.Corners() {
		if !Contains(outer, c) {
			return false
		}
	}
	return true
}

// RegionCode returns the bitmask of the child cells around p that b reaches.
//
// With ignoreY, bit xi*2 + zi is set for the 4 quadrants of the XZ plane.
// Otherwise bit xi*4 + yi*2 + zi is set for the 8 octants. An index of 0
// stands for the negative side of p on that axis and 1 for the positive side.
// Comparisons are inclusive so a box touching p reaches both sides.
func RegionCode(b AABB, p mgl32.Vec3, ignoreY bool) int {
	var sides [3][2]bool
	for axis := 0; axis < 3; axis++ {
		sides[axis][0] = b.Min[axis] <= p[axis]
		sides[axis][1] = b.Max[axis] >= p[axis]
	}

	code := 0
	if ignoreY {
		for xi := 0; xi < 2; xi++ {
			for zi := 0; zi < 2; zi++ {
				if sides[0][xi] && sides[2][zi] {
					code |= 1 << (xi*2 + zi)
				}
			}
		}
		return code
	}

	for xi := 0; xi < 2; xi++ {
		for yi := 0; yi < 2; yi++ {
			for zi := 0; zi < 2; zi++ {
				if sides[0][xi] && sides[1][yi] && sides[2][zi] {
					code |= 1 << (xi*4 + yi*2 + zi)
				}
			}
		}
	}
	return code
}
