// Package vectorstore holds the vectors of an index in a fixed-capacity arena.
//
// Vectors are stored contiguously in a single []float32 slice addressed by a
// dense internal handle. A B-tree maps caller labels to handles; a dense
// slice maps handles back to labels.
//
// Thread safety: concurrent reads are safe; writes require external synchronization.
package vectorstore

import (
	"errors"
	"fmt"

	"github.com/tidwall/btree"
)

var (
	// ErrCapacityExceeded is returned when the arena is full.
	ErrCapacityExceeded = errors.New("vectorstore: capacity exceeded")
	// ErrLabelNotFound is returned when a label has no stored vector.
	ErrLabelNotFound = errors.New("vectorstore: label not found")
	// ErrDuplicateLabel is returned when a label is already in use.
	ErrDuplicateLabel = errors.New("vectorstore: duplicate label")
	// ErrReleased is returned by every operation after Release.
	ErrReleased = errors.New("vectorstore: released")
)

// ErrDimensionMismatch indicates a vector of the wrong length.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Store is a fixed-capacity vector arena with a label index.
type Store struct {
	dim      int
	capacity int

	// data[h*dim : (h+1)*dim] is the vector of handle h.
	data   []float32
	labels []uint64

	byLabel   *btree.Map[uint64, uint32]
	labelBase uint64
	nextAuto  uint64
	released  bool
}

// New allocates a store for capacity vectors of the given dimension.
// Auto-assigned labels start at labelBase.
func New(dimension, capacity int, labelBase uint64) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("vectorstore: invalid dimension %d", dimension)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("vectorstore: invalid capacity %d", capacity)
	}
	return &Store{
		dim:       dimension,
		capacity:  capacity,
		data:      make([]float32, 0, capacity*dimension),
		labels:    make([]uint64, 0, capacity),
		byLabel:   btree.NewMap[uint64, uint32](32),
		labelBase: labelBase,
		nextAuto:  labelBase,
	}, nil
}

// Restore rebuilds a store from persisted state.
// labels[h] is the label of handle h and data holds len(labels) vectors.
func Restore(dimension, capacity int, labelBase, nextAuto uint64, labels []uint64, data []float32) (*Store, error) {
	if len(labels) > capacity {
		return nil, fmt.Errorf("%w: %d vectors, capacity %d", ErrCapacityExceeded, len(labels), capacity)
	}
	s, err := New(dimension, capacity, labelBase)
	if err != nil {
		return nil, err
	}
	if len(data) != len(labels)*dimension {
		return nil, fmt.Errorf("vectorstore: %d floats for %d vectors of dimension %d", len(data), len(labels), dimension)
	}
	s.data = append(s.data, data...)
	for h, label := range labels {
		if _, exists := s.byLabel.Set(label, uint32(h)); exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateLabel, label)
		}
		s.labels = append(s.labels, label)
	}
	s.nextAuto = nextAuto
	return s, nil
}

// Insert stores a copy of vec under the next free auto label.
func (s *Store) Insert(vec []float32) (uint32, uint64, error) {
	if err := s.checkInsert(vec); err != nil {
		return 0, 0, err
	}
	label := s.nextAuto
	for s.has(label) {
		label++
	}
	s.nextAuto = label + 1
	return s.append(vec, label), label, nil
}

// InsertWithLabel stores a copy of vec under the given label.
func (s *Store) InsertWithLabel(vec []float32, label uint64) (uint32, error) {
	if err := s.checkInsert(vec); err != nil {
		return 0, err
	}
	if s.has(label) {
		return 0, fmt.Errorf("%w: %d", ErrDuplicateLabel, label)
	}
	return s.append(vec, label), nil
}

// PeekAutoLabel returns the label the next auto insert would receive.
func (s *Store) PeekAutoLabel() uint64 {
	label := s.nextAuto
	for s.has(label) {
		label++
	}
	return label
}

func (s *Store) checkInsert(vec []float32) error {
	if s.released {
		return ErrReleased
	}
	if len(vec) != s.dim {
		return &ErrDimensionMismatch{Expected: s.dim, Actual: len(vec)}
	}
	if len(s.labels) >= s.capacity {
		return fmt.Errorf("%w: capacity %d", ErrCapacityExceeded, s.capacity)
	}
	return nil
}

func (s *Store) has(label uint64) bool {
	_, ok := s.byLabel.Get(label)
	return ok
}

func (s *Store) append(vec []float32, label uint64) uint32 {
	h := uint32(len(s.labels))
	s.data = append(s.data, vec...)
	s.labels = append(s.labels, label)
	s.byLabel.Set(label, h)
	return h
}

// Get returns the vector of handle h. The slice aliases the arena and must
// not be modified.
func (s *Store) Get(h uint32) []float32 {
	off := int(h) * s.dim
	return s.data[off : off+s.dim : off+s.dim]
}

// LabelOf returns the label of handle h.
func (s *Store) LabelOf(h uint32) uint64 {
	return s.labels[h]
}

// Resolve returns the handle stored under label.
func (s *Store) Resolve(label uint64) (uint32, error) {
	if s.released {
		return 0, ErrReleased
	}
	h, ok := s.byLabel.Get(label)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrLabelNotFound, label)
	}
	return h, nil
}

// Labels calls fn for every label in ascending order until fn returns false.
func (s *Store) Labels(fn func(label uint64, h uint32) bool) {
	if s.released {
		return
	}
	s.byLabel.Scan(fn)
}

// Len returns the number of stored vectors.
func (s *Store) Len() int { return len(s.labels) }

// Cap returns the fixed capacity.
func (s *Store) Cap() int { return s.capacity }

// Dimension returns the vector dimension.
func (s *Store) Dimension() int { return s.dim }

// LabelBase returns the first auto label.
func (s *Store) LabelBase() uint64 { return s.labelBase }

// NextAutoLabel returns the auto label counter.
func (s *Store) NextAutoLabel() uint64 { return s.nextAuto }

// Release drops the arena. Every later insert or lookup fails with ErrReleased.
func (s *Store) Release() {
	s.data = nil
	s.labels = nil
	s.byLabel = nil
	s.released = true
}
