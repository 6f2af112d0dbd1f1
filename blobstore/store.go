package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies errors.Is(err, ErrNotFound).
var ErrNotFound = os.ErrNotExist

// BlobStore stores named, immutable blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// Create starts writing a blob. The blob becomes visible when Close
	// returns nil and replaces any blob with the same name.
	Create(ctx context.Context, name string) (WritableBlob, error)
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a data blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// RangeReader is implemented by blobs that can stream a byte range.
type RangeReader interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
}

// WritableBlob is a blob being written.
type WritableBlob interface {
	io.WriteCloser
	// Abort discards the blob. It is a no-op after Close.
	Abort() error
}

// NewReader returns a sequential reader over the whole blob.
func NewReader(b Blob) (io.ReadCloser, error) {
	if rr, ok := b.(RangeReader); ok && b.Size() > 0 {
		return rr.ReadRange(0, b.Size())
	}
	return io.NopCloser(io.NewSectionReader(b, 0, b.Size())), nil
}
