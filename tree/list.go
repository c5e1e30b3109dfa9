package tree

// element is an entry of an objectList.
type element[T Object] struct {
	value      T
	prev, next *element[T]
	list       *objectList[T]
}

// objectList is a doubly linked list of objects. Elements know their list so
// a back-reference pointing to the wrong list is detected on removal.
type objectList[T Object] struct {
	head, tail *element[T]
	len        int
}

func (l *objectList[T]) pushBack(v T) *element[T] {
	e := &element[T]{
		value: v,
		prev:  l.tail,
		list:  l,
	}

	if l.tail != nil {
		l.tail.next = e
	} else {
		l.head = e
	}
	l.tail = e
	l.len++
	return e
}

// remove unlinks e and reports whether it belonged to the list.
func (l *objectList[T]) remove(e *element[T]) bool {
	if e == nil || e.list != l {
		return false
	}

	if e.prev != nil {
		e.prev.next = e.next
	} else {
		l.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else {
		l.tail = e.prev
	}

	e.prev = nil
	e.next = nil
	e.list = nil
	l.len--
	return true
}

func (l *objectList[T]) each(fn func(T)) {
	for e := l.head; e != nil; {
		next := e.next
		fn(e.value)
		e = next
	}
}

func (l *objectList[T]) clear() {
	for e := l.head; e != nil; {
		next := e.next
		e.prev = nil
		e.next = nil
		e.list = nil
		e = next
	}

	l.head = nil
	l.tail = nil
	l.len = 0
}
