// Package detector defines what a tree query is run against: a region around
// a tracked position or the view frustum of a camera.
package detector

import (
	"github.com/aukilabs/scenestream/bounds"
	"github.com/go-gl/mathgl/mgl32"
)

// Detector represents a query volume.
type Detector interface {
	// Reports whether the given bounds are detected. Region detectors test
	// an intersection, frustum detectors test that the bounds are not fully
	// outside of a frustum plane.
	IsInside(b bounds.AABB) bool

	// For region detectors, returns the bitmask of the child cells around
	// (x, y, z) the detector reaches. Quadrants are used when ignoreY is
	// set, octants otherwise.
	//
	// For frustum detectors, returns the clip code of the point.
	RegionCode(x, y, z float32, ignoreY bool) int

	// The reference point used to detect movement.
	Position() mgl32.Vec3

	// Reports whether the tree must run the frustum culling traversal.
	UsesFrustumCulling() bool
}

// PositionSource is polled by detectors for their current position.
type PositionSource interface {
	Position() mgl32.Vec3
}

// PositionFunc adapts a function to a PositionSource.
type PositionFunc func() mgl32.Vec3

func (f PositionFunc) Position() mgl32.Vec3 {
	return f()
}

// FixedPosition is a PositionSource that never moves.
type FixedPosition mgl32.Vec3

func (p FixedPosition) Position() mgl32.Vec3 {
	return mgl32.Vec3(p)
}

// RegionDetector detects everything intersecting a fixed size box centered
// on a tracked position.
type RegionDetector struct {
	Source PositionSource
	Size   mgl32.Vec3
}

// NewRegionDetector returns a region detector of the given size following
// source.
func NewRegionDetector(source PositionSource, size mgl32.Vec3) *RegionDetector {
	return &RegionDetector{
		Source: source,
		Size:   size,
	}
}

func (d *RegionDetector) Bounds() bounds.AABB {
	return bounds.New(d.Position(), d.Size)
}

func (d *RegionDetector) IsInside(b bounds.AABB) bool {
	return bounds.Intersects(d.Bounds(), b)
}

func (d *RegionDetector) RegionCode(x, y, z float32, ignoreY bool) int {
	return bounds.RegionCode(d.Bounds(), mgl32.Vec3{x, y, z}, ignoreY)
}

func (d *RegionDetector) Position() mgl32.Vec3 {
	if d.Source == nil {
		return mgl32.Vec3{}
	}
	return d.Source.Position()
}

func (d *RegionDetector) UsesFrustumCulling() bool {
	return false
}

// SphereDetector detects everything within a radius of a tracked position.
type SphereDetector struct {
	Source PositionSource
	Radius float32
}

func NewSphereDetector(source PositionSource, radius float32) *SphereDetector {
	return &SphereDetector{
		Source: source,
		Radius: radius,
	}
}

func (d *SphereDetector) IsInside(b bounds.AABB) bool {
	center := d.Position()

	var distSq float32
	for i := 0; i < 3; i++ {
		closest := mgl32.Clamp(center[i], b.Min[i], b.Max[i])
		delta := center[i] - closest
		distSq += delta * delta
	}
	return distSq <= d.Radius*d.Radius
}

// RegionCode uses the box enclosing the sphere. Cells reached by that box
// but not by the sphere are rejected when their objects are tested with
// IsInside.
func (d *SphereDetector) RegionCode(x, y, z float32, ignoreY bool) int {
	diameter := d.Radius * 2
	b := bounds.New(d.Position(), mgl32.Vec3{diameter, diameter, diameter})
	return bounds.RegionCode(b, mgl32.Vec3{x, y, z}, ignoreY)
}

func (d *SphereDetector) Position() mgl32.Vec3 {
	if d.Source == nil {
		return mgl32.Vec3{}
	}
	return d.Source.Position()
}

func (d *SphereDetector) UsesFrustumCulling() bool {
	return false
}
