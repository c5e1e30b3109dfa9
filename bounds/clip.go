package bounds

import "github.com/go-gl/mathgl/mgl32"

// Clip code bits, one per frustum plane.
const (
	ClipLeft   uint8 = 0x01
	ClipRight  uint8 = 0x02
	ClipBottom uint8 = 0x04
	ClipTop    uint8 = 0x08
	ClipNear   uint8 = 0x10
	ClipFar    uint8 = 0x20

	ClipAll = ClipLeft | ClipRight | ClipBottom | ClipTop | ClipNear | ClipFar
)

// Margins moves the side planes of a frustum in normalized device
// coordinates. A positive Right or Up widens the frustum on that side, a
// positive Left or Down narrows it.
type Margins struct {
	Left  float32 `json:"left"  yaml:"left"`
	Right float32 `json:"right" yaml:"right"`
	Down  float32 `json:"down"  yaml:"down"`
	Up    float32 `json:"up"    yaml:"up"`
}

// ComputeClipCode transforms p by the view projection matrix and returns the
// set of frustum planes it lies outside of. 0 means p is inside the frustum.
func ComputeClipCode(p mgl32.Vec3, viewProjection mgl32.Mat4) uint8 {
	return ComputeClipCodeWithMargins(p, viewProjection, Margins{})
}

// ComputeClipCodeWithMargins works like ComputeClipCode with the left, right,
// bottom and top planes moved by the given margins.
func ComputeClipCodeWithMargins(p mgl32.Vec3, viewProjection mgl32.Mat4, m Margins) uint8 {
	v := viewProjection.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	x, y, z, w := v[0], v[1], v[2], v[3]

	var code uint8
	if x < (-1+m.Left)*w {
		code |= ClipLeft
	}
	if x > (1+m.Right)*w {
		code |= ClipRight
	}
	if y < (-1+m.Down)*w {
		code |= ClipBottom
	}
	if y > (1+m.Up)*w {
		code |= ClipTop
	}
	if z < -w {
		code |= ClipNear
	}
	if z > w {
		code |= ClipFar
	}
	return code
}
