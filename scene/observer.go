package scene

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/detector"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	RegionObserver  = "region"
	SphereObserver  = "sphere"
	FrustumObserver = "frustum"
)

// ObserverSpec describes what moves through a scene and how it detects the
// objects to stream.
type ObserverSpec struct {
	Detector  string       `yaml:"detector"`
	Waypoints []mgl32.Vec3 `yaml:"waypoints"`
	Speed     float32      `yaml:"speed"`
	Loop      bool         `yaml:"loop"`

	// The region detector size.
	Size mgl32.Vec3 `yaml:"size"`

	// The sphere detector radius.
	Radius float32 `yaml:"radius"`

	// The frustum detector camera.
	Camera CameraSpec `yaml:"camera"`
}

type CameraSpec struct {
	Offset    mgl32.Vec3 `yaml:"offset"`
	FovY      float32    `yaml:"fov_y"`
	Aspect    float32    `yaml:"aspect"`
	Near      float32    `yaml:"near"`
	Far       float32    `yaml:"far"`
	Smoothing float32    `yaml:"smoothing"`
}

func (s ObserverSpec) Validate() error {
	if s.Speed < 0 {
		return errors.New("negative observer speed").
			WithType(ErrTypeInvalidManifest).
			WithTag("speed", s.Speed)
	}

	switch s.Detector {
	case RegionObserver:
		if s.Size[0] <= 0 || s.Size[1] <= 0 || s.Size[2] <= 0 {
			return errors.New("invalid region detector size").
				WithType(ErrTypeInvalidManifest).
				WithTag("size", s.Size)
		}

	case SphereObserver:
		if s.Radius <= 0 {
			return errors.New("invalid sphere detector radius").
				WithType(ErrTypeInvalidManifest).
				WithTag("radius", s.Radius)
		}

	case FrustumObserver:
		c := s.Camera
		if c.FovY <= 0 || c.FovY >= 180 || c.Near <= 0 || c.Far <= c.Near || c.Offset == (mgl32.Vec3{}) {
			return errors.New("invalid frustum detector camera").
				WithType(ErrTypeInvalidManifest).
				WithTag("fov_y", c.FovY).
				WithTag("near", c.Near).
				WithTag("far", c.Far).
				WithTag("offset", c.Offset)
		}

	default:
		return errors.New("unknown observer detector").
			WithType(ErrTypeInvalidManifest).
			WithTag("detector", s.Detector)
	}

	return nil
}

// Observer is a walker with the detector following it.
type Observer struct {
	Walker   *Walker
	Camera   *FollowCamera
	Detector detector.Detector
}

// NewObserver returns the observer described by the given spec.
func NewObserver(s ObserverSpec) (*Observer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	o := &Observer{
		Walker: NewWalker(s.Waypoints, s.Speed, s.Loop),
	}

	switch s.Detector {
	case RegionObserver:
		o.Detector = detector.NewRegionDetector(o.Walker, s.Size)

	case SphereObserver:
		o.Detector = detector.NewSphereDetector(o.Walker, s.Radius)

	case FrustumObserver:
		o.Camera = NewFollowCamera(o.Walker, s.Camera.Offset, detector.Camera{
			FovY:   s.Camera.FovY,
			Aspect: s.Camera.Aspect,
			Near:   s.Camera.Near,
			Far:    s.Camera.Far,
		})
		if s.Camera.Smoothing > 0 {
			o.Camera.Smoothing = s.Camera.Smoothing
		}
		o.Detector = detector.NewFrustumDetector(o.Camera)
	}

	return o, nil
}

// Advance moves the observer by the given elapsed time.
func (o *Observer) Advance(dt time.Duration) {
	o.Walker.Advance(dt)
	if o.Camera != nil {
		o.Camera.Advance(dt)
	}
}

// Walker moves a position along waypoints at a constant speed.
type Walker struct {
	waypoints []mgl32.Vec3
	speed     float32
	loop      bool
	pos       mgl32.Vec3
	next      int
	done      bool
}

// NewWalker returns a walker starting at the first waypoint. Walkers without
// waypoints stay at the origin.
func NewWalker(waypoints []mgl32.Vec3, speed float32, loop bool) *Walker {
	w := &Walker{
		waypoints: waypoints,
		speed:     speed,
		loop:      loop,
		next:      1,
	}

	if len(waypoints) != 0 {
		w.pos = waypoints[0]
	}
	if len(waypoints) < 2 {
		w.done = true
	}
	return w
}

func (w *Walker) Position() mgl32.Vec3 {
	return w.pos
}

// Done reports whether the walker reached its last waypoint and does not
// loop.
func (w *Walker) Done() bool {
	return w.done
}

// Advance moves the walker along its path by the distance covered during
// dt.
func (w *Walker) Advance(dt time.Duration) {
	remaining := w.speed * float32(dt.Seconds())
	stalled := 0

	for remaining > 0 && !w.done {
		target := w.waypoints[w.next]
		delta := target.Sub(w.pos)
		dist := delta.Len()

		if dist > remaining {
			w.pos = w.pos.Add(delta.Mul(remaining / dist))
			return
		}

		if dist == 0 {
			// A loop of identical waypoints.
			stalled++
			if stalled > len(w.waypoints) {
				return
			}
		} else {
			stalled = 0
		}

		w.pos = target
		remaining -= dist
		w.next++

		if w.next == len(w.waypoints) {
			if !w.loop {
				w.done = true
				return
			}
			w.next = 0
		}
	}
}

// FollowCamera is a camera smoothly following a target from a fixed offset
// while looking at it.
type FollowCamera struct {
	Target detector.PositionSource
	Offset mgl32.Vec3

	// How fast the camera catches up with its target, per second.
	Smoothing float32

	lens detector.Camera
	eye  mgl32.Vec3
}

// NewFollowCamera returns a camera placed at the target position plus offset.
// The lens provides the projection settings.
func NewFollowCamera(target detector.PositionSource, offset mgl32.Vec3, lens detector.Camera) *FollowCamera {
	return &FollowCamera{
		Target:    target,
		Offset:    offset,
		Smoothing: 10,
		lens:      lens,
		eye:       target.Position().Add(offset),
	}
}

// Advance moves the camera toward the target position plus offset.
func (c *FollowCamera) Advance(dt time.Duration) {
	t := mgl32.Clamp(float32(dt.Seconds())*c.Smoothing, 0, 1)
	dest := c.Target.Position().Add(c.Offset)
	c.eye = c.eye.Add(dest.Sub(c.eye).Mul(t))
}

func (c *FollowCamera) Position() mgl32.Vec3 {
	return c.eye
}

func (c *FollowCamera) ViewProjection() mgl32.Mat4 {
	camera := c.lens
	camera.Eye = c.eye
	camera.Target = c.Target.Position()
	return camera.ViewProjection()
}
