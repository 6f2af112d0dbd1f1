package hnswlib

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hnswlib/hnsw"
	"github.com/hupe1980/hnswlib/persistence"
	"github.com/hupe1980/hnswlib/vectorstore"
)

var (
	// ErrAlreadyInitialized is returned by Initialize on an initialized index.
	ErrAlreadyInitialized = errors.New("hnswlib: index already initialized")
	// ErrNotInitialized is returned by operations that need Initialize or Load first.
	ErrNotInitialized = errors.New("hnswlib: index not initialized")
	// ErrDimensionMismatch is matched by every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("hnswlib: dimension mismatch")
	// ErrCapacityExceeded is returned when an insert or load exceeds maxElements.
	ErrCapacityExceeded = errors.New("hnswlib: capacity exceeded")
	// ErrLabelNotFound is returned when no vector is stored under a label.
	ErrLabelNotFound = errors.New("hnswlib: label not found")
	// ErrDuplicateLabel is returned when an explicit label is already taken.
	ErrDuplicateLabel = errors.New("hnswlib: duplicate label")
	// ErrEmptyIndexQuery is returned when querying an index without vectors.
	ErrEmptyIndexQuery = errors.New("hnswlib: query on empty index")
	// ErrCorruptPersistedState is returned when a saved index cannot be decoded.
	ErrCorruptPersistedState = errors.New("hnswlib: corrupt persisted state")
	// ErrUseAfterClear is returned by every operation after Clear.
	ErrUseAfterClear = errors.New("hnswlib: index used after clear")
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("hnswlib: k must be positive")
	// ErrInvalidArgument is returned for unusable parameters such as M < 2.
	ErrInvalidArgument = errors.New("hnswlib: invalid argument")
)

// DimensionMismatchError indicates a vector/query dimensionality mismatch.
//
// The lower-layer cause, if any, stays reachable through errors.Unwrap.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	cause    error
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("hnswlib: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is makes the error match ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }

func (e *DimensionMismatchError) Unwrap() error { return e.cause }

// IsProgrammerError reports whether err signals misuse of the index
// lifecycle. Such errors are bugs in the caller, not transient conditions.
func IsProgrammerError(err error) bool {
	return errors.Is(err, ErrUseAfterClear) ||
		errors.Is(err, ErrAlreadyInitialized) ||
		errors.Is(err, ErrNotInitialized)
}

// IsInputError reports whether err can be fixed by adjusting the input or
// re-initializing with a larger capacity.
func IsInputError(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrInvalidK) ||
		errors.Is(err, ErrDuplicateLabel) ||
		errors.Is(err, ErrLabelNotFound) ||
		errors.Is(err, ErrInvalidArgument)
}

// translateError maps errors of the lower layers onto the sentinels of this
// package, keeping the cause reachable.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &DimensionMismatchError{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}

	switch {
	case errors.Is(err, vectorstore.ErrCapacityExceeded):
		return fmt.Errorf("%w: %w", ErrCapacityExceeded, err)
	case errors.Is(err, vectorstore.ErrLabelNotFound):
		return fmt.Errorf("%w: %w", ErrLabelNotFound, err)
	case errors.Is(err, vectorstore.ErrDuplicateLabel):
		return fmt.Errorf("%w: %w", ErrDuplicateLabel, err)
	case errors.Is(err, hnsw.ErrEmptyIndex):
		return fmt.Errorf("%w: %w", ErrEmptyIndexQuery, err)
	case errors.Is(err, hnsw.ErrInvalidK):
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	case errors.Is(err, hnsw.ErrInvalidOptions):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, persistence.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorruptPersistedState, err)
	case errors.Is(err, hnsw.ErrReleased), errors.Is(err, vectorstore.ErrReleased):
		return fmt.Errorf("%w: %w", ErrUseAfterClear, err)
	}
	return err
}
