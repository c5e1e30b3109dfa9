package detector

import (
	"github.com/aukilabs/scenestream/bounds"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraSource is polled by frustum detectors for the camera state.
type CameraSource interface {
	Position() mgl32.Vec3
	ViewProjection() mgl32.Mat4
}

// FrustumDetector detects everything inside the view frustum of a camera.
type FrustumDetector struct {
	Camera CameraSource

	// Optional margins applied to the side planes.
	Margins *bounds.Margins
}

func NewFrustumDetector(camera CameraSource) *FrustumDetector {
	return &FrustumDetector{Camera: camera}
}

// IsInside reports whether b is not entirely on the outer side of a single
// frustum plane.
func (d *FrustumDetector) IsInside(b bounds.AABB) bool {
	if d.Camera == nil {
		return false
	}

	vp := d.Camera.ViewProjection()
	code := bounds.ClipAll
	for _, c := range b.Corners() {
		code &= d.clipCode(c, vp)
		if code == 0 {
			return true
		}
	}
	return false
}

func (d *FrustumDetector) RegionCode(x, y, z float32, ignoreY bool) int {
	if d.Camera == nil {
		return 0
	}
	return int(d.clipCode(mgl32.Vec3{x, y, z}, d.Camera.ViewProjection()))
}

func (d *FrustumDetector) Position() mgl32.Vec3 {
	if d.Camera == nil {
		return mgl32.Vec3{}
	}
	return d.Camera.Position()
}

func (d *FrustumDetector) UsesFrustumCulling() bool {
	return true
}

func (d *FrustumDetector) clipCode(p mgl32.Vec3, vp mgl32.Mat4) uint8 {
	if d.Margins != nil {
		return bounds.ComputeClipCodeWithMargins(p, vp, *d.Margins)
	}
	return bounds.ComputeClipCode(p, vp)
}

// Camera is a CameraSource described by its pose and projection.
type Camera struct {
	Eye    mgl32.Vec3 `json:"eye"    yaml:"eye"`
	Target mgl32.Vec3 `json:"target" yaml:"target"`
	Up     mgl32.Vec3 `json:"up"     yaml:"up"`

	// Vertical field of view in degrees.
	FovY   float32 `json:"fov_y"  yaml:"fov_y"`
	Aspect float32 `json:"aspect" yaml:"aspect"`
	Near   float32 `json:"near"   yaml:"near"`
	Far    float32 `json:"far"    yaml:"far"`

	// When set, an orthographic projection of the given half height is used
	// instead of the perspective one.
	OrthographicSize float32 `json:"orthographic_size,omitempty" yaml:"orthographic_size"`
}

func (c Camera) Position() mgl32.Vec3 {
	return c.Eye
}

func (c Camera) ViewProjection() mgl32.Mat4 {
	up := c.Up
	if up == (mgl32.Vec3{}) {
		up = mgl32.Vec3{0, 1, 0}
	}

	aspect := c.Aspect
	if aspect == 0 {
		aspect = 1
	}

	view := mgl32.LookAtV(c.Eye, c.Target, up)

	var projection mgl32.Mat4
	if c.OrthographicSize > 0 {
		h := c.OrthographicSize
		projection = mgl32.Ortho(-h*aspect, h*aspect, -h, h, c.Near, c.Far)
	} else {
		projection = mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
	}
	return projection.Mul4(view)
}
