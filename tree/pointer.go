package tree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/detector"
	"github.com/google/uuid"
)

type node[T Object] struct {
	cell     cell
	bounds   bounds.AABB
	children [8]*node[T]
	leaf     bool
	objects  objectList[T]
}

type pointerRef[T Object] struct {
	node    *node[T]
	element *element[T]
}

type pointerTree[T Object] struct {
	lattice *lattice
	root    *node[T]
	refs    map[uuid.UUID]pointerRef[T]
}

func newPointerTree[T Object](l *lattice) *pointerTree[T] {
	t := &pointerTree[T]{
		lattice: l,
		refs:    make(map[uuid.UUID]pointerRef[T]),
	}
	t.root = t.newNode(l.rootCell())
	return t
}

func (t *pointerTree[T]) newNode(c cell) *node[T] {
	return &node[T]{
		cell:   c,
		bounds: t.lattice.bounds(c),
		leaf:   true,
	}
}

func (t *pointerTree[T]) Bounds() bounds.AABB {
	return t.lattice.root
}

func (t *pointerTree[T]) MaxDepth() int {
	return t.lattice.maxDepth
}

func (t *pointerTree[T]) Add(obj T) {
	if isNil(obj) {
		return
	}

	b := mustBeValid(obj)
	if !bounds.Intersects(t.lattice.root, b) {
		return
	}

	if _, ok := t.refs[obj.ID()]; ok {
		return
	}

	n := t.root
	for n.cell.depth < t.lattice.maxDepth {
		next := t.fittingChild(n, b)
		if next == nil {
			break
		}
		n = next
	}

	t.refs[obj.ID()] = pointerRef[T]{
		node:    n,
		element: n.objects.pushBack(obj),
	}
}

// fittingChild returns the first child of n fully containing b, creating it
// when missing. It returns nil when no child can hold b.
func (t *pointerTree[T]) fittingChild(n *node[T], b bounds.AABB) *node[T] {
	for i := 0; i < t.lattice.kind.childCount(); i++ {
		if child := n.children[i]; child != nil {
			if bounds.FullyContains(child.bounds, b) {
				return child
			}
			continue
		}

		c := t.lattice.child(n.cell, i)
		if !bounds.FullyContains(t.lattice.bounds(c), b) {
			continue
		}

		child := t.newNode(c)
		n.children[i] = child
		n.leaf = false
		return child
	}
	return nil
}

func (t *pointerTree[T]) Remove(obj T) {
	if isNil(obj) {
		return
	}

	ref, ok := t.refs[obj.ID()]
	if !ok {
		return
	}

	if !ref.node.objects.remove(ref.element) {
		panic(errors.New("object back-reference does not point to its node").
			WithType(ErrTypeCorruptIndex).
			WithTag("object_id", obj.ID().String()).
			WithTag("depth", ref.node.cell.depth))
	}
	delete(t.refs, obj.ID())
}

func (t *pointerTree[T]) Contains(obj T) bool {
	if isNil(obj) {
		return false
	}

	_, ok := t.refs[obj.ID()]
	return ok
}

func (t *pointerTree[T]) Clear() {
	t.root = t.newNode(t.lattice.rootCell())
	t.refs = make(map[uuid.UUID]pointerRef[T])
}

func (t *pointerTree[T]) Len() int {
	return len(t.refs)
}

func (t *pointerTree[T]) Trigger(d detector.Detector, fn func(T)) {
	if isNil(d) || fn == nil {
		return
	}

	if t.lattice.maxDepth == 0 {
		t.emit(t.root, d, fn)
		return
	}

	if d.UsesFrustumCulling() {
		t.triggerFrustum(t.root, t.lattice.cullingCode(d, t.root.cell), d, fn)
		return
	}

	if !d.IsInside(t.root.bounds) {
		return
	}
	t.triggerRegion(t.root, d, fn)
}

func (t *pointerTree[T]) triggerRegion(n *node[T], d detector.Detector, fn func(T)) {
	t.emit(n, d, fn)
	if n.leaf {
		return
	}

	code := t.lattice.regionCode(d, n.cell)
	for i, child := range n.children {
		if child != nil && code&(1<<i) != 0 {
			t.triggerRegion(child, d, fn)
		}
	}
}

func (t *pointerTree[T]) triggerFrustum(n *node[T], code CullingCode, d detector.Detector, fn func(T)) {
	if code.Culled() {
		return
	}

	t.emit(n, d, fn)
	if n.leaf {
		return
	}

	codes := t.lattice.childCullingCodes(d, n.cell, code)
	for i, child := range n.children {
		if child != nil {
			t.triggerFrustum(child, codes[i], d, fn)
		}
	}
}

func (t *pointerTree[T]) emit(n *node[T], d detector.Detector, fn func(T)) {
	n.objects.each(func(obj T) {
		if d.IsInside(obj.Bounds()) {
			fn(obj)
		}
	})
}

func (t *pointerTree[T]) DebugInfo() DebugInfo {
	info := newDebugInfo(t.lattice, Pointer, len(t.refs))

	var walk func(n *node[T])
	walk = func(n *node[T]) {
		info.Nodes = append(info.Nodes, NodeInfo{
			Bounds:  n.bounds,
			Depth:   n.cell.depth,
			Objects: n.objects.len,
		})

		for _, child := range n.children {
			if child != nil {
				walk(child)
			}
		}
	}
	walk(t.root)

	return info
}
