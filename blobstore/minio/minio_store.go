package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/hnswlib/blobstore"
)

// ContentType is stored on every uploaded index.
const ContentType = "application/x-hnsw"

// Options tune uploads.
type Options struct {
	// PartSize is the multipart chunk size. Zero lets the client choose.
	PartSize uint64
	// Metadata is attached to every object as user metadata.
	Metadata map[string]string
}

// Store saves indexes as objects under a key prefix of one bucket.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
	opts   Options
}

// NewStore returns a store for bucket. rootPrefix is joined in front of
// every blob name.
func NewStore(client *minio.Client, bucket, rootPrefix string, optFns ...func(o *Options)) *Store {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Store{client: client, bucket: bucket, prefix: rootPrefix, opts: opts}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) relName(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, s.prefix), "/")
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

// Open stats the object. Reads through the returned blob are pinned to
// the ETag seen here, so an index replaced mid-load fails the load
// instead of mixing two versions.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("minio: %s/%s: %w", s.bucket, key, blobstore.ErrNotFound)
		}
		return nil, err
	}
	return &object{ctx: ctx, client: s.client, bucket: s.bucket, key: key, etag: info.ETag, size: info.Size}, nil
}

// Create streams a new object. The object appears when Close returns nil.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	u := &upload{pw: pw, cancel: cancel, done: make(chan error, 1)}

	opts := minio.PutObjectOptions{
		ContentType:  ContentType,
		PartSize:     s.opts.PartSize,
		UserMetadata: s.opts.Metadata,
	}
	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, opts)
		_ = pr.CloseWithError(err)
		u.done <- err
	}()
	return u, nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.key(prefix),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if name := s.relName(obj.Key); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

type object struct {
	ctx    context.Context
	client *minio.Client
	bucket string
	key    string
	etag   string
	size   int64
}

func (o *object) Size() int64 { return o.size }

func (o *object) ReadAt(p []byte, off int64) (int, error) {
	if off >= o.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), o.size-off)
	rc, err := o.ReadRange(off, want)
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	n, err := io.ReadFull(rc, p[:want])
	if err == nil && want < int64(len(p)) {
		err = io.EOF
	}
	return n, err
}

// ReadRange issues one ranged GET. Loads use it for the whole object.
func (o *object) ReadRange(off, length int64) (io.ReadCloser, error) {
	var opts minio.GetObjectOptions
	if err := opts.SetMatchETag(o.etag); err != nil {
		return nil, err
	}
	if err := opts.SetRange(off, off+length-1); err != nil {
		return nil, err
	}
	return o.client.GetObject(o.ctx, o.bucket, o.key, opts)
}

func (o *object) Close() error { return nil }

var errAborted = errors.New("minio: upload aborted")

type upload struct {
	pw     *io.PipeWriter
	cancel context.CancelFunc
	done   chan error
	once   sync.Once
}

func (u *upload) Write(p []byte) (int, error) {
	return u.pw.Write(p)
}

func (u *upload) Close() error {
	err := io.ErrClosedPipe
	u.once.Do(func() {
		defer u.cancel()
		if err = u.pw.Close(); err == nil {
			err = <-u.done
		}
	})
	return err
}

func (u *upload) Abort() error {
	u.once.Do(func() {
		_ = u.pw.CloseWithError(errAborted)
		u.cancel()
		<-u.done
	})
	return nil
}
