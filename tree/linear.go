package tree

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/detector"
	"github.com/google/uuid"
)

type leafRef[T Object] struct {
	key     uint32
	element *element[T]
}

type linearTree[T Object] struct {
	lattice *lattice
	leaves  map[uint32]*objectList[T]
	refs    map[uuid.UUID][]leafRef[T]

	// The number of objects stored in more than one leaf. Queries only need
	// to deduplicate callbacks when it is not zero.
	spanning int
}

func newLinearTree[T Object](l *lattice) *linearTree[T] {
	return &linearTree[T]{
		lattice: l,
		leaves:  make(map[uint32]*objectList[T]),
		refs:    make(map[uuid.UUID][]leafRef[T]),
	}
}

func (t *linearTree[T]) Bounds() bounds.AABB {
	return t.lattice.root
}

func (t *linearTree[T]) MaxDepth() int {
	return t.lattice.maxDepth
}

func (t *linearTree[T]) Add(obj T) {
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

	var refs []leafRef[T]
	t.insert(t.lattice.rootCell(), obj, b, &refs)

	t.refs[obj.ID()] = refs
	if len(refs) > 1 {
		t.spanning++
	}
}

// insert descends into every child b reaches and stores obj in the max depth
// leaves.
func (t *linearTree[T]) insert(c cell, obj T, b bounds.AABB, refs *[]leafRef[T]) {
	if c.depth == t.lattice.maxDepth {
		key := t.lattice.leafKey(c)

		leaf, ok := t.leaves[key]
		if !ok {
			leaf = &objectList[T]{}
			t.leaves[key] = leaf
		}

		*refs = append(*refs, leafRef[T]{
			key:     key,
			element: leaf.pushBack(obj),
		})
		return
	}

	code := bounds.RegionCode(b, t.lattice.center(c), t.lattice.quad())
	for i := 0; i < t.lattice.kind.childCount(); i++ {
		if code&(1<<i) != 0 {
			t.insert(t.lattice.child(c, i), obj, b, refs)
		}
	}
}

func (t *linearTree[T]) Remove(obj T) {
	if isNil(obj) {
		return
	}

	refs, ok := t.refs[obj.ID()]
	if !ok {
		return
	}

	for _, ref := range refs {
		leaf, ok := t.leaves[ref.key]
		if !ok || !leaf.remove(ref.element) {
			panic(errors.New("object back-reference does not point to its leaf").
				WithType(ErrTypeCorruptIndex).
				WithTag("object_id", obj.ID().String()).
				WithTag("leaf_key", ref.key))
		}

		if leaf.len == 0 {
			delete(t.leaves, ref.key)
		}
	}

	if len(refs) > 1 {
		t.spanning--
	}
	delete(t.refs, obj.ID())
}

func (t *linearTree[T]) Contains(obj T) bool {
	if isNil(obj) {
		return false
	}

	_, ok := t.refs[obj.ID()]
	return ok
}

func (t *linearTree[T]) Clear() {
	for _, leaf := range t.leaves {
		leaf.clear()
	}

	t.leaves = make(map[uint32]*objectList[T])
	t.refs = make(map[uuid.UUID][]leafRef[T])
	t.spanning = 0
}

func (t *linearTree[T]) Len() int {
	return len(t.refs)
}

func (t *linearTree[T]) Trigger(d detector.Detector, fn func(T)) {
	if isNil(d) || fn == nil || len(t.leaves) == 0 {
		return
	}

	q := linearQuery[T]{
		tree:     t,
		detector: d,
		fn:       fn,
	}
	if t.spanning != 0 {
		q.visited = make(map[uuid.UUID]struct{})
	}

	root := t.lattice.rootCell()
	if t.lattice.maxDepth == 0 {
		q.emit(root)
		return
	}

	if d.UsesFrustumCulling() {
		q.frustum(root, t.lattice.cullingCode(d, root))
		return
	}

	if !d.IsInside(t.lattice.root) {
		return
	}
	q.region(root)
}

type linearQuery[T Object] struct {
	tree     *linearTree[T]
	detector detector.Detector
	fn       func(T)
	visited  map[uuid.UUID]struct{}
}

func (q *linearQuery[T]) region(c cell) {
	l := q.tree.lattice
	if c.depth == l.maxDepth {
		q.emit(c)
		return
	}

	code := l.regionCode(q.detector, c)
	for i := 0; i < l.kind.childCount(); i++ {
		if code&(1<<i) != 0 {
			q.region(l.child(c, i))
		}
	}
}

func (q *linearQuery[T]) frustum(c cell, code CullingCode) {
	if code.Culled() {
		return
	}

	l := q.tree.lattice
	if c.depth == l.maxDepth {
		q.emit(c)
		return
	}

	codes := l.childCullingCodes(q.detector, c, code)
	for i := 0; i < l.kind.childCount(); i++ {
		q.frustum(l.child(c, i), codes[i])
	}
}

func (q *linearQuery[T]) emit(c cell) {
	leaf, ok := q.tree.leaves[q.tree.lattice.leafKey(c)]
	if !ok {
		return
	}

	leaf.each(func(obj T) {
		if q.visited != nil {
			if _, ok := q.visited[obj.ID()]; ok {
				return
			}
			q.visited[obj.ID()] = struct{}{}
		}

		if q.detector.IsInside(obj.Bounds()) {
			q.fn(obj)
		}
	})
}

func (t *linearTree[T]) DebugInfo() DebugInfo {
	info := newDebugInfo(t.lattice, Linear, len(t.refs))

	for key, leaf := range t.leaves {
		c := cell{depth: t.lattice.maxDepth}
		c.lo = t.lattice.decode(key)

		k := key
		info.Nodes = append(info.Nodes, NodeInfo{
			Bounds:  t.lattice.bounds(c),
			Depth:   c.depth,
			Objects: leaf.len,
			Key:     &k,
		})
	}
	sortNodes(info.Nodes)

	return info
}
