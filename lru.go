package rescache

// lruNode is a node in the intrusive doubly-linked LRU list.
type lruNode[K any] struct {
	key  K
	prev *lruNode[K]
	next *lruNode[K]
}

// lruList tracks recency of use for bounded cachers. Front = most
// recently used, back = oldest. Not safe for concurrent use; callers hold
// the cacher lock.
type lruList[K any] struct {
	head *lruNode[K]
	tail *lruNode[K]
	len  int
}

func newLRUList[K any]() *lruList[K] {
	return &lruList[K]{}
}

// Len returns the number of nodes in the list.
func (l *lruList[K]) Len() int { return l.len }

// PushFront inserts a new node at the front and returns it.
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	n := &lruNode[K]{key: key}
	if l.head == nil {
		l.head = n
		l.tail = n
	} else {
		n.next = l.head
		l.head.prev = n
		l.head = n
	}
	l.len++
	return n
}

// MoveToFront marks a node as most recently used.
func (l *lruList[K]) MoveToFront(n *lruNode[K]) {
	if n == nil || l.head == n {
		return
	}
	l.unlink(n)
	n.prev = nil
	n.next = l.head
	l.head.prev = n
	l.head = n
	l.len++
}

// Remove unlinks a node from the list.
func (l *lruList[K]) Remove(n *lruNode[K]) {
	if n == nil {
		return
	}
	l.unlink(n)
	n.prev = nil
	n.next = nil
}

// RemoveOldest removes and returns the least recently used key.
// Returns (zero, false) when the list is empty.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.tail == nil {
		var zero K
		return zero, false
	}
	n := l.tail
	l.unlink(n)
	return n.key, true
}

// Clear empties the list.
func (l *lruList[K]) Clear() {
	l.head = nil
	l.tail = nil
	l.len = 0
}

// unlink detaches n and decrements the length. n must be in the list.
func (l *lruList[K]) unlink(n *lruNode[K]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	l.len--
}
