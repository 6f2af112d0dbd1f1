// Package visited tracks which graph handles one search has already
// expanded.
package visited

// Set marks handles in [0, capacity). Clearing is a generation bump, so a
// pooled Set costs nothing to reuse between searches.
type Set struct {
	marks []uint32
	gen   uint32
}

// New returns a cleared set for handles below capacity.
func New(capacity int) *Set {
	return &Set{marks: make([]uint32, capacity), gen: 1}
}

// Mark records h and reports whether it was unmarked before.
// h must be below the capacity the set was created with.
func (s *Set) Mark(h uint32) bool {
	if s.marks[h] == s.gen {
		return false
	}
	s.marks[h] = s.gen
	return true
}

// Marked reports whether h was marked since the last Clear.
func (s *Set) Marked(h uint32) bool {
	return s.marks[h] == s.gen
}

// Clear unmarks every handle.
func (s *Set) Clear() {
	s.gen++
	if s.gen == 0 {
		// The generation wrapped; stale marks could match again.
		clear(s.marks)
		s.gen = 1
	}
}
