package tree

import (
	"sync"

	"github.com/aukilabs/scenestream/bounds"
	"github.com/aukilabs/scenestream/detector"
)

// WithLock returns a tree safe for concurrent use. Add, Remove and Clear take
// an exclusive lock while Trigger, Contains, Len and DebugInfo share a read
// lock.
//
// The callback passed to Trigger runs under the read lock and must not
// modify the tree.
func WithLock[T Object](t Tree[T]) Tree[T] {
	return &treeWithLock[T]{tree: t}
}

type treeWithLock[T Object] struct {
	mutex sync.RWMutex
	tree  Tree[T]
}

func (t *treeWithLock[T]) Bounds() bounds.AABB {
	return t.tree.Bounds()
}

func (t *treeWithLock[T]) MaxDepth() int {
	return t.tree.MaxDepth()
}

func (t *treeWithLock[T]) Add(obj T) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.tree.Add(obj)
}

func (t *treeWithLock[T]) Remove(obj T) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.tree.Remove(obj)
}

func (t *treeWithLock[T]) Contains(obj T) bool {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.tree.Contains(obj)
}

func (t *treeWithLock[T]) Clear() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.tree.Clear()
}

func (t *treeWithLock[T]) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.tree.Len()
}

func (t *treeWithLock[T]) Trigger(d detector.Detector, fn func(T)) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	t.tree.Trigger(d, fn)
}

func (t *treeWithLock[T]) DebugInfo() DebugInfo {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return t.tree.DebugInfo()
}
