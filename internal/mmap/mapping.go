package mmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/hupe1980/hnswlib/internal/conv"
)

var (
	// ErrClosed is returned by reads after Close.
	ErrClosed = errors.New("mmap: file is closed")
	// ErrNegativeOffset is returned by ReadAt for off < 0.
	ErrNegativeOffset = errors.New("mmap: negative offset")
)

// File is a whole file mapped read-only.
type File struct {
	data   []byte
	unmap  func([]byte) error
	closed atomic.Bool
}

// Open maps the file at path and hints the kernel that it will be read
// once from front to back, which is how index files are decoded.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size, err := conv.To[int](fi.Size())
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	if size == 0 {
		// mmap(2) rejects zero-length mappings.
		return &File{}, nil
	}

	data, unmap, err := mapFile(f, size)
	if err != nil {
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	if err := adviseSequential(data); err != nil {
		_ = unmap(data)
		return nil, fmt.Errorf("mmap: %s: %w", path, err)
	}
	return &File{data: data, unmap: unmap}, nil
}

// Size returns the length of the file.
func (m *File) Size() int64 { return int64(len(m.data)) }

// ReadAt implements io.ReaderAt.
func (m *File) ReadAt(p []byte, off int64) (int, error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrNegativeOffset
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Close unmaps the file. Later calls return nil.
func (m *File) Close() error {
	if m.closed.Swap(true) || m.data == nil {
		return nil
	}
	data := m.data
	m.data = nil
	return m.unmap(data)
}
