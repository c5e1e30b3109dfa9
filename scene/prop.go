package scene

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/resource"
	"github.com/aukilabs/scenestream/stream"
)

// Prop is a scene object payload instantiated from a resource.
type Prop struct {
	object    Object
	bounds    bounds.AABB
	resources *resource.Cache
	asset     *resource.Asset
	shown     bool
}

func NewProp(o Object) *Prop {
	return &Prop{
		object: o,
		bounds: o.AABB(),
	}
}

func (p *Prop) Bounds() bounds.AABB {
	return p.bounds
}

// Show loads the prop resource into the parent. It returns false when the
// prop is already shown or its resource cannot be loaded.
func (p *Prop) Show(parent stream.Parent) bool {
	if p.shown {
		return false
	}

	if parent.Resources != nil {
		asset, err := parent.Resources.Load(p.object.Resource)
		if err != nil {
			logs.WithTag("object_id", p.object.ID.String()).
				WithTag("parent", parent.Name).
				Error(err)
			return false
		}
		p.asset = asset
		p.resources = parent.Resources
	}

	p.shown = true
	return true
}

// Hide releases the prop resource.
func (p *Prop) Hide() {
	if !p.shown {
		return
	}

	if p.resources != nil {
		p.resources.Unload(p.object.Resource)
	}

	p.resources = nil
	p.asset = nil
	p.shown = false
}

// Object returns the manifest object the prop was created from.
func (p *Prop) Object() Object {
	return p.object
}

func (p *Prop) Shown() bool {
	return p.shown
}

// Asset returns the loaded resource, nil when the prop is hidden.
func (p *Prop) Asset() *resource.Asset {
	return p.asset
}

// Props returns the payloads of the manifest objects.
func (m Manifest) Props() []*Prop {
	props := make([]*Prop, len(m.Objects))
	for i, o := range m.Objects {
		props[i] = NewProp(o)
	}
	return props
}
