package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tidwall/btree"
)

// MemoryStore keeps blobs in an ordered in-memory map. It is meant for
// tests and for indexes that are shipped between processes as bytes.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs *btree.Map[string, []byte]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: btree.NewMap[string, []byte](0)}
}

func (m *MemoryStore) Open(_ context.Context, name string) (Blob, error) {
	m.mu.RLock()
	data, ok := m.blobs.Get(name)
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("blobstore: %s: %w", name, ErrNotFound)
	}
	// Committed slices are never written again.
	return &memoryBlob{bytes.NewReader(data)}, nil
}

func (m *MemoryStore) Create(_ context.Context, name string) (WritableBlob, error) {
	return &memoryWritableBlob{store: m, name: name}, nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	m.blobs.Delete(name)
	m.mu.Unlock()
	return nil
}

// List walks the names in order starting at prefix.
func (m *MemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	m.blobs.Ascend(prefix, func(name string, _ []byte) bool {
		if !strings.HasPrefix(name, prefix) {
			return false
		}
		names = append(names, name)
		return true
	})
	return names, nil
}

func (m *MemoryStore) commit(name string, data []byte) {
	m.mu.Lock()
	m.blobs.Set(name, data)
	m.mu.Unlock()
}

// memoryBlob takes ReadAt and Size from bytes.Reader.
type memoryBlob struct {
	*bytes.Reader
}

func (b *memoryBlob) ReadRange(off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(io.NewSectionReader(b.Reader, off, length)), nil
}

func (b *memoryBlob) Close() error { return nil }

type memoryWritableBlob struct {
	store *MemoryStore
	name  string
	buf   bytes.Buffer
	done  bool
}

func (w *memoryWritableBlob) Write(p []byte) (int, error) {
	if w.done {
		return 0, io.ErrClosedPipe
	}
	return w.buf.Write(p)
}

// Close publishes the blob under its name.
func (w *memoryWritableBlob) Close() error {
	if w.done {
		return io.ErrClosedPipe
	}
	w.done = true
	w.store.commit(w.name, bytes.Clone(w.buf.Bytes()))
	return nil
}

func (w *memoryWritableBlob) Abort() error {
	w.done = true
	w.buf.Reset()
	return nil
}
