// Package tree implements bounded quad and oct trees used to find the scene
// objects reached by a detector.
//
// Two storage strategies share the same contract. The pointer strategy keeps
// a lazily grown node hierarchy and stores each object at the shallowest node
// fully containing it. The linear strategy keeps only max depth leaves in a
// map keyed by their Morton code and stores an object in every leaf it
// overlaps.
package tree

import (
	"reflect"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/detector"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	ErrTypeInvalidConfig = "invalid_tree_config"
	ErrTypeCorruptIndex  = "corrupt_tree_index"

	// The deepest trees whose max depth cell coordinates still fit a 32 bit
	// Morton code.
	MaxQuadDepth = 16
	MaxOctDepth  = 10
)

// Object represents something stored in a tree.
type Object interface {
	// A unique identifier, used as the key of the tree back-references.
	ID() uuid.UUID

	// The bounds of the object. They must not change while the object is in a
	// tree.
	Bounds() bounds.AABB
}

// Tree represents a bounded spatial index.
type Tree[T Object] interface {
	// The root bounds.
	Bounds() bounds.AABB

	MaxDepth() int

	// Adds an object. Objects outside of the root bounds and objects
	// already in the tree are ignored.
	Add(obj T)

	// Removes an object. Unknown objects are ignored.
	Remove(obj T)

	// Reports whether the object is in the tree.
	Contains(obj T) bool

	// Removes all the objects.
	Clear()

	// The number of objects in the tree.
	Len() int

	// Calls fn with every object detected by d. Each object is reported at
	// most once per call.
	Trigger(d detector.Detector, fn func(T))

	// Returns a snapshot of the tree structure.
	DebugInfo() DebugInfo
}

// Kind is the number of children per node.
type Kind int

const (
	// Quad trees split the XZ plane into 4 children and keep the root height.
	Quad Kind = iota

	// Oct trees split every axis into 8 children.
	Oct
)

func (k Kind) String() string {
	if k == Oct {
		return "oct"
	}
	return "quad"
}

func (k Kind) childCount() int {
	if k == Oct {
		return 8
	}
	return 4
}

// ParseKind returns the kind with the given name.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "quad", "quadtree", "2d":
		return Quad, nil

	case "oct", "octree", "3d":
		return Oct, nil

	default:
		return Quad, errors.New("unknown tree kind").
			WithType(ErrTypeInvalidConfig).
			WithTag("kind", s)
	}
}

// Strategy is the storage layout of a tree.
type Strategy int

const (
	Pointer Strategy = iota
	Linear
)

func (s Strategy) String() string {
	if s == Linear {
		return "linear"
	}
	return "pointer"
}

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(s) {
	case "pointer", "node":
		return Pointer, nil

	case "linear", "morton":
		return Linear, nil

	default:
		return Pointer, errors.New("unknown tree strategy").
			WithType(ErrTypeInvalidConfig).
			WithTag("strategy", s)
	}
}

// Config describes a tree.
type Config struct {
	Center   mgl32.Vec3
	Size     mgl32.Vec3
	MaxDepth int
	Kind     Kind
	Strategy Strategy
}

func (c Config) Bounds() bounds.AABB {
	return bounds.New(c.Center, c.Size)
}

func (c Config) Validate() error {
	if err := c.Bounds().Validate(); err != nil {
		return errors.New("invalid tree bounds").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	maxDepth := MaxQuadDepth
	if c.Kind == Oct {
		maxDepth = MaxOctDepth
	}

	if c.MaxDepth < 0 || c.MaxDepth > maxDepth {
		return errors.New("invalid tree max depth").
			WithType(ErrTypeInvalidConfig).
			WithTag("kind", c.Kind.String()).
			WithTag("max_depth", c.MaxDepth).
			WithTag("limit", maxDepth)
	}

	return nil
}

// New returns the tree described by the given config.
func New[T Object](c Config) (Tree[T], error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	l := newLattice(c)
	if c.Strategy == Linear {
		return newLinearTree[T](l), nil
	}
	return newPointerTree[T](l), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func mustBeValid(obj Object) bounds.AABB {
	b := obj.Bounds()
	if err := b.Validate(); err != nil {
		panic(errors.New("adding object with invalid bounds").
			WithTag("object_id", obj.ID().String()).
			Wrap(err))
	}
	return b
}
