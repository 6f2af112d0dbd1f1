package hnswlib

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hupe1980/hnswlib/blobstore"
	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/hnsw"
	"github.com/hupe1980/hnswlib/persistence"
)

// Save writes the index to w and returns the number of bytes written.
func (idx *Index) Save(w io.Writer, opts ...SaveOption) (int64, error) {
	return idx.save(w, "stream", opts)
}

// SaveToFile writes the index to path. The file is replaced atomically.
func (idx *Index) SaveToFile(path string, opts ...SaveOption) (int64, error) {
	store := blobstore.NewLocalStore(filepath.Dir(path))
	return idx.SaveToStore(context.Background(), store, filepath.Base(path), opts...)
}

// SaveToStore writes the index to the blob name in store. A failed save
// leaves no partial blob behind.
func (idx *Index) SaveToStore(ctx context.Context, store blobstore.BlobStore, name string, opts ...SaveOption) (int64, error) {
	idx.mu.RLock()
	err := idx.ready()
	idx.mu.RUnlock()
	if err != nil {
		return 0, err
	}

	wb, err := store.Create(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("hnswlib: create %s: %w", name, err)
	}

	n, err := idx.save(wb, name, append([]SaveOption{func(o *SaveOptions) { o.Context = ctx }}, opts...))
	if err != nil {
		_ = wb.Abort()
		return n, err
	}
	if err := wb.Close(); err != nil {
		return n, fmt.Errorf("hnswlib: commit %s: %w", name, err)
	}
	return n, nil
}

func (idx *Index) save(w io.Writer, target string, optFns []SaveOption) (n int64, err error) {
	opts := SaveOptions{Context: context.Background()}
	for _, fn := range optFns {
		fn(&opts)
	}

	start := time.Now()
	defer func() {
		idx.metrics.RecordSave(n, time.Since(start), err)
		idx.logger.logSave(opts.Context, target, n, err)
	}()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.ready(); err != nil {
		return 0, err
	}

	w = persistence.NewThrottledWriter(opts.Context, w, opts.BytesPerSecond)
	n, err = idx.h.WriteToWithOptions(w, hnsw.WriteOptions{Compression: opts.Compression})
	return n, translateError(err)
}

// Load replaces the content of the index with the one read from r. The
// saved index must match the dimension and metric of idx and hold at most
// maxElements vectors. On success the index is initialized with capacity
// maxElements; on failure it is left unchanged.
func (idx *Index) Load(r io.Reader, maxElements int, opts ...LoadOption) error {
	return idx.load(r, "stream", maxElements, opts)
}

// LoadFromFile is Load reading from the file at path.
func (idx *Index) LoadFromFile(path string, maxElements int, opts ...LoadOption) error {
	store := blobstore.NewLocalStore(filepath.Dir(path))
	return idx.LoadFromStore(context.Background(), store, filepath.Base(path), maxElements, opts...)
}

// LoadFromStore is Load reading the blob name from store.
func (idx *Index) LoadFromStore(ctx context.Context, store blobstore.BlobStore, name string, maxElements int, opts ...LoadOption) error {
	rc, err := openBlob(ctx, store, name)
	if err != nil {
		return err
	}
	defer rc.Close()

	return idx.load(rc, name, maxElements, opts)
}

func openBlob(ctx context.Context, store blobstore.BlobStore, name string) (io.ReadCloser, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("hnswlib: open %s: %w", name, err)
	}
	rc, err := blobstore.NewReader(blob)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("hnswlib: read %s: %w", name, err)
	}
	return &blobReadCloser{ReadCloser: rc, blob: blob}, nil
}

// blobReadCloser closes the blob together with its reader.
type blobReadCloser struct {
	io.ReadCloser
	blob blobstore.Blob
}

func (b *blobReadCloser) Close() error {
	err := b.ReadCloser.Close()
	if cerr := b.blob.Close(); err == nil {
		err = cerr
	}
	return err
}

func (idx *Index) load(r io.Reader, source string, maxElements int, optFns []LoadOption) (err error) {
	start := time.Now()
	count := 0
	defer func() {
		idx.metrics.RecordLoad(count, time.Since(start), err)
		idx.logger.logLoad(context.Background(), source, count, err)
	}()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.state == StateCleared {
		return ErrUseAfterClear
	}
	// A replaced index keeps its search width unless the caller sets one.
	if idx.h != nil {
		optFns = append([]LoadOption{WithLoadEFSearch(idx.h.EFSearch())}, optFns...)
	}

	h, err := decode(r, maxElements, optFns, func(fh *persistence.FileHeader) error {
		if int(fh.Dimension) != idx.dim {
			return &DimensionMismatchError{Expected: idx.dim, Actual: int(fh.Dimension)}
		}
		if m := distance.Metric(fh.Metric); m != idx.metric {
			return fmt.Errorf("%w: saved index uses metric %s, index uses %s", ErrInvalidArgument, m, idx.metric)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if idx.h != nil {
		idx.h.Release()
	}
	idx.h = h
	idx.state = StateInitialized
	count = h.Len()
	idx.metrics.RecordSize(count)
	return nil
}

func decode(r io.Reader, maxElements int, optFns []LoadOption, check func(*persistence.FileHeader) error) (*hnsw.HNSW, error) {
	if maxElements <= 0 {
		return nil, fmt.Errorf("%w: max elements must be positive, got %d", ErrInvalidArgument, maxElements)
	}

	var opts LoadOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	h, err := hnsw.ReadFrom(r, maxElements, func(o *hnsw.ReadOptions) {
		o.EFSearch = opts.EFSearch
		o.RandomSeed = opts.RandomSeed
		o.CheckHeader = check
	})
	if err != nil {
		return nil, translateError(err)
	}
	return h, nil
}

// Load reads a saved index from r into a new Index whose dimension and
// metric are taken from the saved header.
func Load(r io.Reader, maxElements int, opts []LoadOption, idxOpts ...Option) (*Index, error) {
	h, err := decode(r, maxElements, opts, nil)
	if err != nil {
		return nil, err
	}

	idx, err := New(h.Dimension(), h.Metric(), idxOpts...)
	if err != nil {
		h.Release()
		return nil, err
	}
	idx.h = h
	idx.state = StateInitialized
	idx.metrics.RecordSize(h.Len())
	idx.logger.logLoad(context.Background(), "stream", h.Len(), nil)
	return idx, nil
}

// LoadFromStore reads the blob name from store into a new Index.
func LoadFromStore(ctx context.Context, store blobstore.BlobStore, name string, maxElements int, opts []LoadOption, idxOpts ...Option) (*Index, error) {
	rc, err := openBlob(ctx, store, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Load(rc, maxElements, opts, idxOpts...)
}
