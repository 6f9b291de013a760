package cache

import "fmt"

// recencyNode links one line slot into its set's recency order.
type recencyNode struct {
	prev int
	next int
}

// recencyList orders the slots of a set from most to least recently used.
// Nodes live in one slice and link by index. The node at index len-1 is a
// sentinel: its next is the head (MRU) and its prev is the tail (LRU).
type recencyList struct {
	nodes []recencyNode
}

// newRecencyList returns an order over n slots with slot n-1 at the head and
// slot 0 at the tail.
func newRecencyList(n int) recencyList {
	l := recencyList{nodes: make([]recencyNode, n+1)}

	s := l.sentinel()
	l.nodes[s] = recencyNode{prev: s, next: s}

	for slot := 0; slot < n; slot++ {
		l.pushFront(slot)
	}

	return l
}

func (l *recencyList) sentinel() int {
	return len(l.nodes) - 1
}

// len returns the number of slots in the order.
func (l *recencyList) len() int {
	return len(l.nodes) - 1
}

// head returns the most recently used slot.
func (l *recencyList) head() int {
	return l.nodes[l.sentinel()].next
}

// victim returns the least recently used slot without removing it.
func (l *recencyList) victim() int {
	return l.nodes[l.sentinel()].prev
}

// touch moves slot to the head of the order.
func (l *recencyList) touch(slot int) {
	if l.head() == slot {
		return
	}

	l.unlink(slot)
	l.pushFront(slot)
}

func (l *recencyList) unlink(slot int) {
	n := l.nodes[slot]
	l.nodes[n.prev].next = n.next
	l.nodes[n.next].prev = n.prev
}

func (l *recencyList) pushFront(slot int) {
	s := l.sentinel()
	oldHead := l.nodes[s].next

	l.nodes[slot] = recencyNode{prev: s, next: oldHead}
	l.nodes[oldHead].prev = slot
	l.nodes[s].next = slot
}

// order returns the slots from head to tail.
func (l *recencyList) order() []int {
	out := make([]int, 0, l.len())
	s := l.sentinel()
	for i := l.nodes[s].next; i != s && len(out) <= l.len(); i = l.nodes[i].next {
		out = append(out, i)
	}
	return out
}

// check verifies that the order is a permutation of all slots and that the
// back links mirror the forward links.
func (l *recencyList) check() error {
	s := l.sentinel()
	seen := make([]bool, l.len())

	count := 0
	prev := s
	for i := l.nodes[s].next; i != s; i = l.nodes[i].next {
		if i < 0 || i >= l.len() {
			return fmt.Errorf("recency order links to slot %d out of range", i)
		}
		if seen[i] {
			return fmt.Errorf("recency order visits slot %d twice", i)
		}
		if l.nodes[i].prev != prev {
			return fmt.Errorf("slot %d has prev %d, want %d", i, l.nodes[i].prev, prev)
		}
		seen[i] = true
		prev = i
		count++
	}

	if l.nodes[s].prev != prev {
		return fmt.Errorf("tail is %d, want %d", l.nodes[s].prev, prev)
	}
	if count != l.len() {
		return fmt.Errorf("recency order holds %d of %d slots", count, l.len())
	}

	return nil
}
