// Package scene loads scene manifests and provides the payloads and moving
// observers used to stream them.
package scene

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/stream"
	"github.com/aukilabs/scenestream/tree"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

const (
	ErrTypeInvalidManifest = "invalid_scene_manifest"

	compressedExt = ".zst"
)

// Box is a box described by its center and size.
type Box struct {
	Center mgl32.Vec3 `yaml:"center"`
	Size   mgl32.Vec3 `yaml:"size"`
}

func (b Box) AABB() bounds.AABB {
	return bounds.New(b.Center, b.Size)
}

// Manifest describes a scene.
type Manifest struct {
	Name string `yaml:"name"`

	// The streamed area. The union of the object bounds is used when
	// omitted.
	Bounds *Box `yaml:"bounds,omitempty"`

	Tree      TreeSettings   `yaml:"tree"`
	Streaming StreamSettings `yaml:"streaming"`
	Objects   []Object       `yaml:"objects"`
	Observer  ObserverSpec   `yaml:"observer"`
}

type TreeSettings struct {
	Kind     string `yaml:"kind"`
	Strategy string `yaml:"strategy"`
	MaxDepth int    `yaml:"max_depth"`
}

// StreamSettings overrides the default streaming options. Zero values keep
// the defaults.
type StreamSettings struct {
	Async           bool          `yaml:"async"`
	MaxCreateCount  int           `yaml:"max_create_count"`
	MinCreateCount  int           `yaml:"min_create_count"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	DestroyInterval time.Duration `yaml:"destroy_interval"`
}

// Object is a prop placed in a scene.
type Object struct {
	ID       uuid.UUID  `yaml:"id"`
	Resource string     `yaml:"resource"`
	Position mgl32.Vec3 `yaml:"position"`
	Rotation mgl32.Vec3 `yaml:"rotation"`
	Scale    mgl32.Vec3 `yaml:"scale"`

	// The streaming bounds. A box of the object scale centered on its
	// position is used when omitted.
	Bounds *Box `yaml:"bounds,omitempty"`
}

func (o Object) AABB() bounds.AABB {
	if o.Bounds != nil {
		return o.Bounds.AABB()
	}
	return bounds.New(o.Position, o.Scale)
}

// Load reads the manifest at the given path. Files ending with .zst are
// decompressed.
func Load(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, errors.New("opening scene manifest failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if strings.HasSuffix(path, compressedExt) {
		dec, err := zstd.NewReader(r)
		if err != nil {
			return Manifest{}, errors.New("creating scene manifest decoder failed").
				WithTag("path", path).
				Wrap(err)
		}
		defer dec.Close()
		r = dec
	}

	m, err := Parse(r)
	if err != nil {
		return Manifest{}, errors.New("loading scene manifest failed").
			WithType(ErrTypeInvalidManifest).
			WithTag("path", path).
			Wrap(err)
	}
	return m, nil
}

// Parse decodes and validates a YAML manifest.
func Parse(r io.Reader) (Manifest, error) {
	var m Manifest

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, errors.New("decoding scene manifest failed").
			WithType(ErrTypeInvalidManifest).
			Wrap(err)
	}

	m.setDefaults()
	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Save writes the manifest to the given path. Files ending with .zst are
// compressed.
func Save(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New("creating scene manifest failed").
			WithTag("path", path).
			Wrap(err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := encode(w, path, m); err != nil {
		return errors.New("writing scene manifest failed").
			WithTag("path", path).
			Wrap(err)
	}

	if err := w.Flush(); err != nil {
		return errors.New("flushing scene manifest failed").
			WithTag("path", path).
			Wrap(err)
	}
	return f.Close()
}

func encode(w io.Writer, path string, m Manifest) error {
	if !strings.HasSuffix(path, compressedExt) {
		return yaml.NewEncoder(w).Encode(m)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return err
	}

	if err := yaml.NewEncoder(enc).Encode(m); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func (m *Manifest) setDefaults() {
	if m.Tree.Kind == "" {
		m.Tree.Kind = tree.Quad.String()
	}
	if m.Tree.Strategy == "" {
		m.Tree.Strategy = tree.Pointer.String()
	}
	if m.Tree.MaxDepth == 0 {
		m.Tree.MaxDepth = 5
	}

	for i := range m.Objects {
		o := &m.Objects[i]
		if o.ID == uuid.Nil {
			o.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%d", m.Name, i)))
		}
		if o.Scale == (mgl32.Vec3{}) {
			o.Scale = mgl32.Vec3{1, 1, 1}
		}
	}

	if m.Observer.Detector == "" {
		m.Observer.Detector = RegionObserver
	}
	if m.Observer.Detector == RegionObserver && m.Observer.Size == (mgl32.Vec3{}) {
		m.Observer.Size = mgl32.Vec3{20, 20, 20}
	}
}

// Validate returns an error describing the first problem found in the
// manifest.
func (m Manifest) Validate() error {
	if m.Name == "" {
		return errors.New("scene name is missing").
			WithType(ErrTypeInvalidManifest)
	}

	if m.Bounds == nil && len(m.Objects) == 0 {
		return errors.New("scene bounds are required for a scene without objects").
			WithType(ErrTypeInvalidManifest).
			WithTag("scene", m.Name)
	}

	if _, err := m.TreeConfig(); err != nil {
		return errors.New("invalid scene tree").
			WithType(ErrTypeInvalidManifest).
			WithTag("scene", m.Name).
			Wrap(err)
	}

	if _, err := m.StreamOptions(stream.Parent{}); err != nil {
		return errors.New("invalid scene streaming settings").
			WithType(ErrTypeInvalidManifest).
			WithTag("scene", m.Name).
			Wrap(err)
	}

	ids := make(map[uuid.UUID]struct{}, len(m.Objects))
	for i, o := range m.Objects {
		if o.Resource == "" {
			return errors.New("scene object resource is missing").
				WithType(ErrTypeInvalidManifest).
				WithTag("scene", m.Name).
				WithTag("index", i)
		}

		if err := o.AABB().Validate(); err != nil {
			return errors.New("invalid scene object bounds").
				WithType(ErrTypeInvalidManifest).
				WithTag("scene", m.Name).
				WithTag("index", i).
				Wrap(err)
		}

		if _, ok := ids[o.ID]; ok {
			return errors.New("duplicate scene object id").
				WithType(ErrTypeInvalidManifest).
				WithTag("scene", m.Name).
				WithTag("index", i).
				WithTag("object_id", o.ID.String())
		}
		ids[o.ID] = struct{}{}
	}

	if err := m.Observer.Validate(); err != nil {
		return errors.New("invalid scene observer").
			WithType(ErrTypeInvalidManifest).
			WithTag("scene", m.Name).
			Wrap(err)
	}

	return nil
}

// SceneBounds returns the streamed area.
func (m Manifest) SceneBounds() bounds.AABB {
	if m.Bounds != nil {
		return m.Bounds.AABB()
	}

	boxes := make([]bounds.AABB, len(m.Objects))
	for i, o := range m.Objects {
		boxes[i] = o.AABB()
	}
	return bounds.Union(boxes...)
}

// TreeConfig returns the config of the tree indexing the scene objects.
func (m Manifest) TreeConfig() (tree.Config, error) {
	kind, err := tree.ParseKind(m.Tree.Kind)
	if err != nil {
		return tree.Config{}, err
	}

	strategy, err := tree.ParseStrategy(m.Tree.Strategy)
	if err != nil {
		return tree.Config{}, err
	}

	b := m.SceneBounds()
	c := tree.Config{
		Center:   b.Center(),
		Size:     b.Size(),
		MaxDepth: m.Tree.MaxDepth,
		Kind:     kind,
		Strategy: strategy,
	}
	return c, c.Validate()
}

// StreamOptions returns the options of a controller streaming the scene into
// the given parent.
func (m Manifest) StreamOptions(parent stream.Parent) (stream.Options, error) {
	c, err := m.TreeConfig()
	if err != nil {
		return stream.Options{}, err
	}

	opts := stream.DefaultOptions()
	opts.Name = m.Name
	opts.Tree = c
	opts.Parent = parent
	opts.Async = m.Streaming.Async

	if m.Streaming.MaxCreateCount != 0 {
		opts.MaxCreateCount = m.Streaming.MaxCreateCount
	}
	if m.Streaming.MinCreateCount != 0 {
		opts.MinCreateCount = m.Streaming.MinCreateCount
	}
	if m.Streaming.RefreshInterval != 0 {
		opts.RefreshInterval = m.Streaming.RefreshInterval
	}
	if m.Streaming.DestroyInterval != 0 {
		opts.DestroyInterval = m.Streaming.DestroyInterval
	}

	return opts, opts.Validate()
}
