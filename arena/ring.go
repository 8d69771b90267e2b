package arena

// Node is the intrusive doubly-linked list node backing every Ring the
// arena holds (pools, roots, formats, threads, dead threads, chains,
// messages, remembered-summary blocks, and the per-rank grey rings), and
// exported so package pool can maintain its own pool-owned segment ring
// using the same primitive. §9 allows either an arena+index slab or a
// side-table for rings in a language without container_of; this uses
// ordinary pointers, since Go's GC makes that the simpler and idiomatic
// choice, while keeping the same operational shape (O(1) insert/remove,
// safe removal of the node currently being visited) the source's RING_FOR
// macro provides.
type Node struct {
	next, prev *Node
	value      any
}

// Value returns the payload stored at this node.
func (n *Node) Value() any { return n.value }

// Linked reports whether n is currently part of some Ring.
func (n *Node) Linked() bool { return n.next != nil }

// Ring is a circular doubly-linked list with a sentinel head node: the
// same shape container/ring provides in the standard library, but with
// O(1) removal of an arbitrary node by identity, which container/ring
// does not expose directly.
type Ring struct {
	sentinel Node
	size     int
}

// NewRing returns an empty, ready-to-use Ring.
func NewRing() *Ring {
	r := &Ring{}
	r.sentinel.next = &r.sentinel
	r.sentinel.prev = &r.sentinel
	return r
}

// Push appends value and returns the node so the caller can Remove it
// later in O(1).
func (r *Ring) Push(value any) *Node {
	n := &Node{value: value}
	last := r.sentinel.prev
	n.prev = last
	n.next = &r.sentinel
	last.next = n
	r.sentinel.prev = n
	r.size++
	return n
}

// Remove unlinks n. It is a no-op if n was already removed.
func (r *Ring) Remove(n *Node) {
	if n.next == nil {
		return
	}
	n.prev.next = n.next
	n.next.prev = n.prev
	n.next, n.prev = nil, nil
	r.size--
}

// ForEach visits every node's value in order. It snapshots the "next"
// pointer before calling fn, so fn may remove the current node (but must
// not remove other nodes) — the iteration discipline §9 calls out.
func (r *Ring) ForEach(fn func(value any)) {
	n := r.sentinel.next
	for n != &r.sentinel {
		next := n.next
		fn(n.value)
		n = next
	}
}

// Len reports the number of linked nodes.
func (r *Ring) Len() int { return r.size }

// IsEmpty reports whether the ring has no nodes.
func (r *Ring) IsEmpty() bool { return r.size == 0 }
