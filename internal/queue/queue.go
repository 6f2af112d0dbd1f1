// Package queue holds the two heaps of a graph beam search: the frontier
// of candidates still to expand and the bounded set of best results.
//
// Both order equal distances by handle, so a search over the same graph
// always returns the same neighbors in the same order.
package queue

// Item is a graph handle with its distance to the query.
type Item struct {
	Node     uint32
	Distance float32
}

// Less reports whether a is closer than b. Ties go to the lower handle.
func (a Item) Less(b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	return a.Node < b.Node
}

// Candidates is a min-heap. Pop yields the closest item.
type Candidates struct {
	h heap
}

// NewCandidates returns an empty frontier with room for capacity items.
func NewCandidates(capacity int) *Candidates {
	return &Candidates{h: heap{items: make([]Item, 0, capacity)}}
}

func (c *Candidates) Len() int { return len(c.h.items) }

func (c *Candidates) Push(it Item) { c.h.push(it) }

// Pop removes the closest item. ok is false when the frontier is empty.
func (c *Candidates) Pop() (it Item, ok bool) {
	if len(c.h.items) == 0 {
		return Item{}, false
	}
	return c.h.pop(), true
}

// Reset empties the frontier and keeps its storage.
func (c *Candidates) Reset() { c.h.items = c.h.items[:0] }

// TopK keeps the k closest items offered to it in a max-heap, so the item
// to evict is always at the root.
type TopK struct {
	h heap
	k int
}

// NewTopK returns an empty set bounded to k items. k must be positive.
func NewTopK(k int) *TopK {
	return &TopK{h: heap{max: true, items: make([]Item, 0, k)}, k: k}
}

func (t *TopK) Len() int { return len(t.h.items) }

// Full reports whether k items are held.
func (t *TopK) Full() bool { return len(t.h.items) >= t.k }

// Worst returns the farthest item held.
func (t *TopK) Worst() (Item, bool) {
	if len(t.h.items) == 0 {
		return Item{}, false
	}
	return t.h.items[0], true
}

// Offer adds it if the set is not full or it is closer than the worst
// item, which is then evicted. It reports whether it was kept.
func (t *TopK) Offer(it Item) bool {
	if len(t.h.items) < t.k {
		t.h.push(it)
		return true
	}
	if !it.Less(t.h.items[0]) {
		return false
	}
	t.h.items[0] = it
	t.h.down(0)
	return true
}

// Sorted empties the set and returns its items closest first.
func (t *TopK) Sorted() []Item {
	out := make([]Item, len(t.h.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = t.h.pop()
	}
	return out
}

// Reset empties the set and rebinds it to k items.
func (t *TopK) Reset(k int) {
	t.h.items = t.h.items[:0]
	t.k = k
}

// heap is a binary heap of Items, min-ordered unless max is set.
type heap struct {
	items []Item
	max   bool
}

func (h *heap) before(i, j int) bool {
	if h.max {
		return h.items[j].Less(h.items[i])
	}
	return h.items[i].Less(h.items[j])
}

func (h *heap) push(it Item) {
	h.items = append(h.items, it)
	h.up(len(h.items) - 1)
}

// pop requires a non-empty heap.
func (h *heap) pop() Item {
	root := h.items[0]
	last := len(h.items) - 1
	h.items[0] = h.items[last]
	h.items = h.items[:last]
	if last > 0 {
		h.down(0)
	}
	return root
}

func (h *heap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.before(i, parent) {
			return
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *heap) down(i int) {
	n := len(h.items)
	for {
		child := 2*i + 1
		if child >= n {
			return
		}
		if r := child + 1; r < n && h.before(r, child) {
			child = r
		}
		if !h.before(child, i) {
			return
		}
		h.items[i], h.items[child] = h.items[child], h.items[i]
		i = child
	}
}
