package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ifs "github.com/hupe1980/hnswlib/internal/fs"
)

func testStore(t *testing.T, store BlobStore) {
	ctx := context.Background()
	data := []byte("hello world, this is a test blob for hnswlib")

	_, err := store.Open(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	w, err := store.Create(ctx, "indexes/a.hnsw")
	require.NoError(t, err)
	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, w.Close())
	assert.Error(t, w.Close())

	aborted, err := store.Create(ctx, "indexes/b.hnsw")
	require.NoError(t, err)
	_, err = aborted.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, aborted.Abort())

	blob, err := store.Open(ctx, "indexes/a.hnsw")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	_, err = blob.ReadAt(buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf))

	r, err := NewReader(blob)
	require.NoError(t, err)
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, all)
	require.NoError(t, r.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "indexes/")
	require.NoError(t, err)
	assert.Equal(t, []string{"indexes/a.hnsw"}, names)

	require.NoError(t, store.Delete(ctx, "indexes/a.hnsw"))
	require.NoError(t, store.Delete(ctx, "indexes/a.hnsw"))
	_, err = store.Open(ctx, "indexes/a.hnsw")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_ListPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, name := range []string{"b/2", "a/1", "b/1", "c", "b0"} {
		w, err := store.Create(ctx, name)
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	names, err := store.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/1", "b/2"}, names)

	names, err = store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/1", "b/2", "b0", "c"}, names)
}

func TestLocalStore(t *testing.T) {
	testStore(t, NewLocalStore(t.TempDir()))
}

func TestLocalStore_Replace(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	ctx := context.Background()

	for _, content := range []string{"first version", "second"} {
		w, err := store.Create(ctx, "x.hnsw")
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, w.Close())
	}

	got, err := os.ReadFile(filepath.Join(dir, "x.hnsw"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "nope"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_FailedWritesLeaveNothing(t *testing.T) {
	tests := []struct {
		name  string
		fault ifs.Fault
	}{
		{"write", ifs.Fault{Op: ifs.OpWrite, After: 4}},
		{"sync", ifs.Fault{Op: ifs.OpSync}},
		{"close", ifs.Fault{Op: ifs.OpClose}},
		{"rename", ifs.Fault{Op: ifs.OpRename}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ffs := ifs.NewFaultyFS(nil)
			ffs.Inject("x.hnsw", tt.fault)
			store := newLocalStore(dir, ffs)
			ctx := context.Background()

			w, err := store.Create(ctx, "x.hnsw")
			require.NoError(t, err)

			_, werr := w.Write([]byte("payload"))
			if werr != nil {
				assert.ErrorIs(t, werr, ifs.ErrInjected)
				require.NoError(t, w.Abort())
			} else {
				assert.ErrorIs(t, w.Close(), ifs.ErrInjected)
			}

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}
