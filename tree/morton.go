package tree

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// part1By1 spreads the lower 16 bits of x over the even bits.
func part1By1(x uint32) uint32 {
	x &= 0x0000ffff
	x = (x ^ (x << 8)) & 0x00ff00ff
	x = (x ^ (x << 4)) & 0x0f0f0f0f
	x = (x ^ (x << 2)) & 0x33333333
	x = (x ^ (x << 1)) & 0x55555555
	return x
}

// part1By2 spreads the lower 10 bits of x over every third bit.
func part1By2(x uint32) uint32 {
	x &= 0x000003ff
	x = (x ^ (x << 16)) & 0xff0000ff
	x = (x ^ (x << 8)) & 0x0300f00f
	x = (x ^ (x << 4)) & 0x030c30c3
	x = (x ^ (x << 2)) & 0x09249249
	return x
}

func compact1By1(x uint32) uint32 {
	x &= 0x55555555
	x = (x ^ (x >> 1)) & 0x33333333
	x = (x ^ (x >> 2)) & 0x0f0f0f0f
	x = (x ^ (x >> 4)) & 0x00ff00ff
	x = (x ^ (x >> 8)) & 0x0000ffff
	return x
}

func compact1By2(x uint32) uint32 {
	x &= 0x09249249
	x = (x ^ (x >> 2)) & 0x030c30c3
	x = (x ^ (x >> 4)) & 0x0300f00f
	x = (x ^ (x >> 8)) & 0xff0000ff
	x = (x ^ (x >> 16)) & 0x000003ff
	return x
}

// EncodeMorton2 interleaves the bits of x and z, x taking the lowest bit.
func EncodeMorton2(x, z uint32) uint32 {
	return part1By1(z)<<1 | part1By1(x)
}

// EncodeMorton3 interleaves the bits of x, y and z, x taking the lowest bit.
func EncodeMorton3(x, y, z uint32) uint32 {
	return part1By2(z)<<2 | part1By2(y)<<1 | part1By2(x)
}

func (l *lattice) encode(i [3]uint32) uint32 {
	if l.quad() {
		return EncodeMorton2(i[0], i[2])
	}
	return EncodeMorton3(i[0], i[1], i[2])
}

func (l *lattice) decode(key uint32) [3]uint32 {
	if l.quad() {
		return [3]uint32{compact1By1(key), 0, compact1By1(key >> 1)}
	}
	return [3]uint32{compact1By2(key), compact1By2(key >> 1), compact1By2(key >> 2)}
}

// gridCoord converts a world coordinate to the index of the max depth cell
// holding it, clamped to the grid.
func (l *lattice) gridCoord(axis int, v float32) uint32 {
	n := l.divisions(axis)
	if l.size[axis] == 0 {
		return 0
	}

	delta := l.size[axis] / float32(n)
	f := math.Floor(float64((v - l.root.Min[axis]) / delta))
	switch {
	case f < 0 || math.IsNaN(f):
		return 0
	case f >= float64(n):
		return n - 1
	default:
		return uint32(f)
	}
}

// mortonKey returns the Morton code of the max depth cell holding p.
func (l *lattice) mortonKey(p mgl32.Vec3) uint32 {
	return l.encode([3]uint32{
		l.gridCoord(0, p[0]),
		l.gridCoord(1, p[1]),
		l.gridCoord(2, p[2]),
	})
}

// leafKey returns the Morton code of a max depth cell. It matches the
// mortonKey of any point strictly inside the cell.
func (l *lattice) leafKey(c cell) uint32 {
	return l.encode(c.lo)
}

// MortonKey returns the Morton code of the max depth cell of the tree
// described by c holding p. Points outside of the tree are clamped to the
// closest cell.
func MortonKey(c Config, p mgl32.Vec3) uint32 {
	return newLattice(c).mortonKey(p)
}
