package tree

import (
	"math"
	"math/rand"
	"testing"

	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/detector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestLatticeBounds(t *testing.T) {
	l := newLattice(Config{
		Size:     mgl32.Vec3{100, 100, 100},
		MaxDepth: 2,
		Kind:     Quad,
	})

	root := l.rootCell()
	require.Equal(t, l.root, l.bounds(root))
	require.Equal(t, mgl32.Vec3{0, 0, 0}, l.center(root))

	child := l.child(root, 3)
	require.Equal(t, bounds.FromMinMax(mgl32.Vec3{0, -50, 0}, mgl32.Vec3{50, 50, 50}), l.bounds(child))
	require.Equal(t, mgl32.Vec3{25, 0, 25}, l.center(child))

	child = l.child(root, 1)
	require.Equal(t, bounds.FromMinMax(mgl32.Vec3{-50, -50, 0}, mgl32.Vec3{0, 50, 50}), l.bounds(child))

	t.Run("oct children", func(t *testing.T) {
		l := newLattice(Config{
			Size:     mgl32.Vec3{100, 100, 100},
			MaxDepth: 2,
			Kind:     Oct,
		})

		child := l.child(l.rootCell(), 1*4+0*2+1)
		require.Equal(t, bounds.FromMinMax(mgl32.Vec3{0, -50, 0}, mgl32.Vec3{50, 0, 50}), l.bounds(child))

		leaf := l.child(child, 7)
		require.Equal(t, bounds.FromMinMax(mgl32.Vec3{25, -25, 25}, mgl32.Vec3{50, 0, 50}), l.bounds(leaf))
		require.Equal(t, mgl32.Vec3{37.5, -12.5, 37.5}, l.center(leaf))
	})
}

// checkChildCullingCodes walks the whole tree and compares every propagated
// child code with the code computed from the child corners.
func checkChildCullingCodes(t *testing.T, l *lattice, d detector.Detector) {
	var walk func(c cell, code CullingCode)
	walk = func(c cell, code CullingCode) {
		if c.depth == l.maxDepth {
			return
		}

		children := l.childCullingCodes(d, c, code)
		for i := 0; i < l.kind.childCount(); i++ {
			child := l.child(c, i)
			require.Equal(t, l.cullingCode(d, child), children[i],
				"depth %d child %d", child.depth, i)
			walk(child, children[i])
		}

		for i := l.kind.childCount(); i < len(children); i++ {
			require.Equal(t, CullingCode{}, children[i])
		}
	}

	root := l.rootCell()
	walk(root, l.cullingCode(d, root))
}

func TestChildCullingCodes(t *testing.T) {
	configs := []Config{
		{Size: mgl32.Vec3{100, 100, 100}, MaxDepth: 3, Kind: Quad},
		{Size: mgl32.Vec3{100, 100, 100}, MaxDepth: 3, Kind: Oct},
		{Center: mgl32.Vec3{13.7, -2.1, 501.3}, Size: mgl32.Vec3{333.3, 77.7, 123.4}, MaxDepth: 4, Kind: Quad},
		{Center: mgl32.Vec3{13.7, -2.1, 501.3}, Size: mgl32.Vec3{333.3, 77.7, 123.4}, MaxDepth: 4, Kind: Oct},
	}

	cameras := []detector.Camera{
		testCamera(mgl32.Vec3{0, 0, -200}, mgl32.Vec3{}, 10),
		testCamera(mgl32.Vec3{-120, 30, -150}, mgl32.Vec3{10, 0, 20}, 35),
		testCamera(mgl32.Vec3{0, 20, 0}, mgl32.Vec3{30, 0, 500}, 60),
		testCamera(mgl32.Vec3{0, 300, 400}, mgl32.Vec3{0, 0, 500}, 90),
	}

	for _, c := range configs {
		for _, camera := range cameras {
			checkChildCullingCodes(t, newLattice(c), detector.NewFrustumDetector(camera))
		}
	}

	t.Run("with margins", func(t *testing.T) {
		d := &detector.FrustumDetector{
			Camera:  cameras[1],
			Margins: &bounds.Margins{Left: 0.2, Right: 0.1, Down: -0.1, Up: 0.3},
		}
		checkChildCullingCodes(t, newLattice(configs[1]), d)
	})
}

func FuzzChildCullingCodes(f *testing.F) {
	f.Add(float32(0), float32(0), float32(-200), float32(0), float32(0), float32(0), float32(10), uint8(3), true)
	f.Add(float32(-120), float32(30), float32(-150), float32(10), float32(0), float32(20), float32(35), uint8(4), false)
	f.Add(float32(3.3), float32(70), float32(1), float32(-5), float32(0), float32(2), float32(120), uint8(2), true)

	f.Fuzz(func(t *testing.T, ex, ey, ez, tx, ty, tz, fov float32, depth uint8, oct bool) {
		for _, v := range []float32{ex, ey, ez, tx, ty, tz, fov} {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) || math.Abs(float64(v)) > 1e6 {
				t.Skip()
			}
		}

		kind := Quad
		if oct {
			kind = Oct
		}

		l := newLattice(Config{
			Center:   mgl32.Vec3{1.5, -3, 7},
			Size:     mgl32.Vec3{100, 60, 140},
			MaxDepth: int(depth%4) + 1,
			Kind:     kind,
		})

		camera := testCamera(mgl32.Vec3{ex, ey, ez}, mgl32.Vec3{tx, ty, tz}, float32(math.Mod(math.Abs(float64(fov)), 170))+1)
		checkChildCullingCodes(t, l, detector.NewFrustumDetector(camera))
	})
}

func TestMorton(t *testing.T) {
	require.Equal(t, uint32(1), EncodeMorton2(1, 0))
	require.Equal(t, uint32(2), EncodeMorton2(0, 1))
	require.Equal(t, uint32(15), EncodeMorton2(3, 3))
	require.Equal(t, uint32(1), EncodeMorton3(1, 0, 0))
	require.Equal(t, uint32(2), EncodeMorton3(0, 1, 0))
	require.Equal(t, uint32(4), EncodeMorton3(0, 0, 1))
	require.Equal(t, uint32(0b111111), EncodeMorton3(3, 3, 3))

	t.Run("decode", func(t *testing.T) {
		quad := newLattice(Config{Size: mgl32.Vec3{1, 1, 1}, MaxDepth: MaxQuadDepth})
		require.Equal(t, [3]uint32{65535, 0, 1234}, quad.decode(quad.encode([3]uint32{65535, 0, 1234})))

		oct := newLattice(Config{Size: mgl32.Vec3{1, 1, 1}, MaxDepth: MaxOctDepth, Kind: Oct})
		require.Equal(t, [3]uint32{1023, 17, 512}, oct.decode(oct.encode([3]uint32{1023, 17, 512})))
	})

	t.Run("points are clamped to the grid", func(t *testing.T) {
		c := Config{Size: mgl32.Vec3{100, 100, 100}, MaxDepth: 2}
		require.Equal(t, uint32(0), MortonKey(c, mgl32.Vec3{-500, 0, -500}))
		require.Equal(t, EncodeMorton2(3, 3), MortonKey(c, mgl32.Vec3{500, 0, 500}))
		require.Equal(t, EncodeMorton2(3, 3), MortonKey(c, mgl32.Vec3{50, 0, 50}))
	})
}

// nearSplit reports whether p is too close to a max depth cell boundary for
// a tiny object around it to fit in a single leaf.
func nearSplit(l *lattice, p mgl32.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if l.divisions(axis) == 1 {
			continue
		}

		delta := l.size[axis] / float32(l.divisions(axis))
		f := float64((p[axis] - l.root.Min[axis]) / delta)
		if frac := f - math.Floor(f); frac < 0.01 || frac > 0.99 {
			return true
		}
	}
	return false
}

func TestMortonKeyMatchesPointerDescent(t *testing.T) {
	for _, kind := range []Kind{Quad, Oct} {
		t.Run(kind.String(), func(t *testing.T) {
			c := Config{
				Center:   mgl32.Vec3{10, 20, -30},
				Size:     mgl32.Vec3{100, 80, 120},
				MaxDepth: 5,
				Kind:     kind,
			}
			l := newLattice(c)
			tree := newPointerTree[*testObject](l)
			rng := rand.New(rand.NewSource(3))

			for i := 0; i < 500; i++ {
				p := mgl32.Vec3{
					l.root.Min[0] + rng.Float32()*l.size[0],
					l.root.Min[1] + rng.Float32()*l.size[1],
					l.root.Min[2] + rng.Float32()*l.size[2],
				}
				if nearSplit(l, p) {
					continue
				}

				key := MortonKey(c, p)
				require.Equal(t, key, MortonKey(c, p))

				o := newTestObject(p, mgl32.Vec3{0.001, 0.001, 0.001})
				if kind == Quad {
					o.bounds.Min[1] = l.root.Min[1]
					o.bounds.Max[1] = l.root.Max[1]
				}
				tree.Add(o)

				ref := tree.refs[o.ID()]
				require.Equal(t, c.MaxDepth, ref.node.cell.depth)
				require.Equal(t, key, l.leafKey(ref.node.cell))
				require.True(t, bounds.Contains(l.bounds(ref.node.cell), p))
			}
		})
	}
}

func TestLinearLeafKeys(t *testing.T) {
	c := Config{Size: mgl32.Vec3{100, 100, 100}, MaxDepth: 2, Strategy: Linear}
	tree, err := New[*testObject](c)
	require.NoError(t, err)

	tree.Add(newTestObject(mgl32.Vec3{-40, 0, 40}, mgl32.Vec3{1, 1, 1}))

	info := tree.DebugInfo()
	require.Len(t, info.Nodes, 1)
	require.NotNil(t, info.Nodes[0].Key)
	require.Equal(t, EncodeMorton2(0, 3), *info.Nodes[0].Key)
	require.Equal(t, MortonKey(c, mgl32.Vec3{-40, 0, 40}), *info.Nodes[0].Key)
	require.Equal(t, bounds.FromMinMax(mgl32.Vec3{-50, -50, 25}, mgl32.Vec3{-25, 50, 50}), info.Nodes[0].Bounds)
}
