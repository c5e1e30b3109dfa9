package detector

import (
	"testing"

	"github.com/aukilabs/scenestream/bounds"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestRegionDetector(t *testing.T) {
	d := NewRegionDetector(FixedPosition{25, 0, 25}, mgl32.Vec3{10, 10, 10})

	t.Run("is inside", func(t *testing.T) {
		require.True(t, d.IsInside(bounds.New(mgl32.Vec3{25, 0, 25}, mgl32.Vec3{1, 1, 1})))
		require.True(t, d.IsInside(bounds.New(mgl32.Vec3{31, 0, 25}, mgl32.Vec3{2, 2, 2})))
		require.False(t, d.IsInside(bounds.New(mgl32.Vec3{-25, 0, 25}, mgl32.Vec3{1, 1, 1})))
	})

	t.Run("region code", func(t *testing.T) {
		require.Equal(t, 8, d.RegionCode(0, 0, 0, true))
		require.Equal(t, 1<<7, d.RegionCode(0, -100, 0, false))
	})

	t.Run("position follows the source", func(t *testing.T) {
		pos := mgl32.Vec3{1, 2, 3}
		d := NewRegionDetector(PositionFunc(func() mgl32.Vec3 { return pos }), mgl32.Vec3{1, 1, 1})
		require.Equal(t, pos, d.Position())

		pos = mgl32.Vec3{4, 5, 6}
		require.Equal(t, pos, d.Position())
		require.False(t, d.UsesFrustumCulling())
	})

	t.Run("missing source stays at the origin", func(t *testing.T) {
		var d RegionDetector
		require.Equal(t, mgl32.Vec3{}, d.Position())
	})
}

func TestSphereDetector(t *testing.T) {
	d := NewSphereDetector(FixedPosition{0, 0, 0}, 5)

	require.True(t, d.IsInside(bounds.New(mgl32.Vec3{6, 0, 0}, mgl32.Vec3{2, 2, 2})))
	require.False(t, d.IsInside(bounds.New(mgl32.Vec3{6, 6, 0}, mgl32.Vec3{2, 2, 2})))
	require.Equal(t, 15, d.RegionCode(0, 0, 0, true))
	require.Equal(t, 1<<3, d.RegionCode(-10, 0, -10, true))
	require.False(t, d.UsesFrustumCulling())
}

func testCamera() Camera {
	return Camera{
		Eye:    mgl32.Vec3{0, 0, -200},
		Target: mgl32.Vec3{0, 0, 0},
		FovY:   10,
		Aspect: 1,
		Near:   0.1,
		Far:    1000,
	}
}

func TestFrustumDetector(t *testing.T) {
	d := NewFrustumDetector(testCamera())
	require.True(t, d.UsesFrustumCulling())
	require.Equal(t, mgl32.Vec3{0, 0, -200}, d.Position())

	t.Run("point in view has an empty clip code", func(t *testing.T) {
		require.Zero(t, d.RegionCode(0, 0, 0, false))
		require.NotZero(t, d.RegionCode(40, 0, 0, false))
		require.NotZero(t, d.RegionCode(0, 0, -300, false))
	})

	t.Run("is inside", func(t *testing.T) {
		require.True(t, d.IsInside(bounds.New(mgl32.Vec3{}, mgl32.Vec3{2, 2, 2})))
		require.False(t, d.IsInside(bounds.New(mgl32.Vec3{40, 0, 0}, mgl32.Vec3{2, 2, 2})))

		// Spans the frustum while every corner is outside.
		require.True(t, d.IsInside(bounds.New(mgl32.Vec3{}, mgl32.Vec3{200, 200, 2})))
	})

	t.Run("box behind the camera", func(t *testing.T) {
		require.False(t, d.IsInside(bounds.New(mgl32.Vec3{0, 0, -400}, mgl32.Vec3{10, 10, 10})))
	})

	t.Run("margins widen the frustum", func(t *testing.T) {
		b := bounds.New(mgl32.Vec3{20, 0, 0}, mgl32.Vec3{2, 2, 2})
		require.False(t, d.IsInside(b))

		wide := &FrustumDetector{
			Camera:  testCamera(),
			Margins: &bounds.Margins{Right: 2, Left: -2},
		}
		require.True(t, wide.IsInside(b))
	})

	t.Run("missing camera detects nothing", func(t *testing.T) {
		var d FrustumDetector
		require.False(t, d.IsInside(bounds.New(mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})))
		require.Zero(t, d.RegionCode(0, 0, 0, false))
	})
}

func TestCameraOrthographic(t *testing.T) {
	c := Camera{
		Eye:              mgl32.Vec3{0, 100, 0},
		Target:           mgl32.Vec3{0, 0, 0},
		Up:               mgl32.Vec3{0, 0, 1},
		Near:             1,
		Far:              500,
		OrthographicSize: 10,
	}
	d := NewFrustumDetector(c)

	require.True(t, d.IsInside(bounds.New(mgl32.Vec3{5, 0, 5}, mgl32.Vec3{1, 1, 1})))
	require.False(t, d.IsInside(bounds.New(mgl32.Vec3{20, 0, 0}, mgl32.Vec3{1, 1, 1})))
}
