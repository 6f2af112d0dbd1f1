package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/hnswlib/blobstore"
	miniostore "github.com/hupe1980/hnswlib/blobstore/minio"
	s3store "github.com/hupe1980/hnswlib/blobstore/s3"
	"github.com/hupe1980/hnswlib/persistence"
)

// location is a parsed index location.
type location struct {
	scheme   string // "", "s3" or "minio"
	endpoint string
	bucket   string
	key      string
}

func parseLocation(raw string) (location, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		if raw == "" {
			return location{}, fmt.Errorf("empty location")
		}
		return location{key: raw}, nil
	}

	parts := strings.Split(rest, "/")
	switch scheme {
	case "s3":
		if len(parts) < 2 || parts[0] == "" || parts[len(parts)-1] == "" {
			return location{}, fmt.Errorf("invalid s3 location %q, want s3://bucket/key", raw)
		}
		return location{scheme: scheme, bucket: parts[0], key: strings.Join(parts[1:], "/")}, nil
	case "minio":
		if len(parts) < 3 || parts[0] == "" || parts[1] == "" || parts[len(parts)-1] == "" {
			return location{}, fmt.Errorf("invalid minio location %q, want minio://endpoint/bucket/key", raw)
		}
		return location{scheme: scheme, endpoint: parts[0], bucket: parts[1], key: strings.Join(parts[2:], "/")}, nil
	default:
		return location{}, fmt.Errorf("unsupported location scheme %q", scheme)
	}
}

// openStore returns the store holding loc and the blob name inside it.
func openStore(ctx context.Context, loc location) (blobstore.BlobStore, string, error) {
	switch loc.scheme {
	case "":
		return blobstore.NewLocalStore(filepath.Dir(loc.key)), filepath.Base(loc.key), nil
	case "s3":
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("load aws config: %w", err)
		}
		return s3store.NewStore(s3.NewFromConfig(cfg), loc.bucket, ""), loc.key, nil
	case "minio":
		client, err := minio.New(loc.endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), ""),
			Secure: os.Getenv("MINIO_INSECURE") == "",
		})
		if err != nil {
			return nil, "", fmt.Errorf("create minio client: %w", err)
		}
		return miniostore.NewStore(client, loc.bucket, ""), loc.key, nil
	default:
		return nil, "", fmt.Errorf("unsupported location scheme %q", loc.scheme)
	}
}

// savedIndex is an opened index blob whose header has been read ahead.
type savedIndex struct {
	io.Reader
	header *persistence.FileHeader
	closer io.Closer
	blob   blobstore.Blob
}

func (s *savedIndex) Close() error {
	err := s.closer.Close()
	if cerr := s.blob.Close(); err == nil {
		err = cerr
	}
	return err
}

// openSaved opens the index at raw and peeks at its header. The returned
// reader still yields the full image.
func openSaved(ctx context.Context, raw string) (*savedIndex, error) {
	loc, err := parseLocation(raw)
	if err != nil {
		return nil, err
	}
	store, name, err := openStore(ctx, loc)
	if err != nil {
		return nil, err
	}

	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", raw, err)
	}
	rc, err := blobstore.NewReader(blob)
	if err != nil {
		_ = blob.Close()
		return nil, fmt.Errorf("read %s: %w", raw, err)
	}

	head := make([]byte, persistence.HeaderSize)
	if _, err := io.ReadFull(rc, head); err != nil {
		_ = rc.Close()
		_ = blob.Close()
		return nil, fmt.Errorf("read header of %s: %w", raw, persistence.ErrTruncated)
	}
	header, err := persistence.ReadHeader(bytes.NewReader(head))
	if err != nil {
		_ = rc.Close()
		_ = blob.Close()
		return nil, fmt.Errorf("read header of %s: %w", raw, err)
	}

	return &savedIndex{
		Reader: io.MultiReader(bytes.NewReader(head), rc),
		header: header,
		closer: rc,
		blob:   blob,
	}, nil
}
