package tree

import (
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/detector"
	"github.com/go-gl/mathgl/mgl32"
)

// lattice maps the integer coordinates of the max depth grid to world
// positions. Every node boundary lies on the lattice so a position shared by
// several nodes always converts to the same float values.
type lattice struct {
	kind     Kind
	maxDepth int
	cells    uint32
	root     bounds.AABB
	size     mgl32.Vec3
}

// cell is a tree node addressed by its lower lattice corner and its depth.
type cell struct {
	lo    [3]uint32
	depth int
}

func newLattice(c Config) *lattice {
	root := c.Bounds()
	return &lattice{
		kind:     c.Kind,
		maxDepth: c.MaxDepth,
		cells:    1 << c.MaxDepth,
		root:     root,
		size:     root.Size(),
	}
}

func (l *lattice) quad() bool {
	return l.kind == Quad
}

// divisions returns the number of max depth cells along an axis. Quad trees
// do not split the Y axis.
func (l *lattice) divisions(axis int) uint32 {
	if axis == 1 && l.quad() {
		return 1
	}
	return l.cells
}

func (l *lattice) span(c cell, axis int) uint32 {
	if axis == 1 && l.quad() {
		return 1
	}
	return l.cells >> c.depth
}

func (l *lattice) coord(axis int, i uint32) float32 {
	switch n := l.divisions(axis); i {
	case 0:
		return l.root.Min[axis]
	case n:
		return l.root.Max[axis]
	default:
		return l.root.Min[axis] + l.size[axis]*float32(i)/float32(n)
	}
}

func (l *lattice) point(i [3]uint32) mgl32.Vec3 {
	return mgl32.Vec3{
		l.coord(0, i[0]),
		l.coord(1, i[1]),
		l.coord(2, i[2]),
	}
}

func (l *lattice) bounds(c cell) bounds.AABB {
	var hi [3]uint32
	for axis := range hi {
		hi[axis] = c.lo[axis] + l.span(c, axis)
	}
	return bounds.FromMinMax(l.point(c.lo), l.point(hi))
}

// center returns the point where the cell splits into its children.
func (l *lattice) center(c cell) mgl32.Vec3 {
	b := l.bounds(c)
	center := b.Center()

	for axis := 0; axis < 3; axis++ {
		if span := l.span(c, axis); span >= 2 {
			center[axis] = l.coord(axis, c.lo[axis]+span/2)
		}
	}
	return center
}

func (l *lattice) rootCell() cell {
	return cell{}
}

// child returns the child at the given index. Oct children are indexed
// xi*4 + yi*2 + zi and quad children xi*2 + zi.
func (l *lattice) child(c cell, index int) cell {
	xi, yi, zi := l.childSides(index)

	child := cell{lo: c.lo, depth: c.depth + 1}
	child.lo[0] += uint32(xi) * l.span(c, 0) / 2
	child.lo[2] += uint32(zi) * l.span(c, 2) / 2
	if !l.quad() {
		child.lo[1] += uint32(yi) * l.span(c, 1) / 2
	}
	return child
}

func (l *lattice) childSides(index int) (xi, yi, zi int) {
	if l.quad() {
		return index >> 1 & 1, 0, index & 1
	}
	return index >> 2 & 1, index >> 1 & 1, index & 1
}

func (l *lattice) regionCode(d detector.Detector, c cell) int {
	p := l.center(c)
	return d.RegionCode(p[0], p[1], p[2], l.quad())
}

// CullingCode holds the clip codes of the 8 corners of a node, indexed
// x*4 + y*2 + z where 0 is the min side and 1 the max side of an axis.
type CullingCode [8]uint8

// Culled reports whether every corner is outside of a same frustum plane.
func (c CullingCode) Culled() bool {
	code := c[0]
	for _, corner := range c[1:] {
		code &= corner
	}
	return code != 0
}

// cullingCode computes the clip code of every corner of the cell.
func (l *lattice) cullingCode(d detector.Detector, c cell) CullingCode {
	var code CullingCode
	for i, p := range l.bounds(c).Corners() {
		code[i] = uint8(d.RegionCode(p[0], p[1], p[2], l.quad()))
	}
	return code
}

// childCullingCodes derives the culling code of every child of the cell from
// the cell code. The cell corners are reused and only the missing points of
// the 3x3x3 grid of child corners are computed, 19 for oct trees and 10 for
// quad trees whose Y axis keeps the 2 root levels.
func (l *lattice) childCullingCodes(d detector.Detector, c cell, code CullingCode) [8]CullingCode {
	var grid [3][3][3]uint8

	var half [3]uint32
	for axis := range half {
		half[axis] = l.span(c, axis) / 2
	}

	ySteps, yStride := 3, 2
	if l.quad() {
		ySteps, yStride = 2, 1
		half[1] = l.span(c, 1)
	}

	for x := 0; x < 3; x++ {
		for y := 0; y < ySteps; y++ {
			for z := 0; z < 3; z++ {
				if x%2 == 0 && z%2 == 0 && y%yStride == 0 {
					grid[x][y][z] = code[x/2*4+y/yStride*2+z/2]
					continue
				}

				p := l.point([3]uint32{
					c.lo[0] + uint32(x)*half[0],
					c.lo[1] + uint32(y)*half[1],
					c.lo[2] + uint32(z)*half[2],
				})
				grid[x][y][z] = uint8(d.RegionCode(p[0], p[1], p[2], l.quad()))
			}
		}
	}

	var children [8]CullingCode
	for i := 0; i < l.kind.childCount(); i++ {
		xi, yi, zi := l.childSides(i)
		for corner := range children[i] {
			cx, cy, cz := corner>>2&1, corner>>1&1, corner&1
			children[i][corner] = grid[xi+cx][yi+cy][zi+cz]
		}
	}
	return children
}
