package hnsw

import "errors"

var (
	// ErrEmptyIndex is returned when searching an index without vectors.
	ErrEmptyIndex = errors.New("hnsw: index is empty")
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("hnsw: k must be positive")
	// ErrInvalidOptions is returned by New for unusable options.
	ErrInvalidOptions = errors.New("hnsw: invalid options")
	// ErrReleased is returned by every operation after Release.
	ErrReleased = errors.New("hnsw: index released")
)
