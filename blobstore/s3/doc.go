// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "indexes/")
//	err = idx.SaveToStore(ctx, store, "products.hnsw")
//
// Writes stream through the multipart upload manager. Reads use ranged
// GetObject requests that carry the ETag seen by Open as If-Match.
package s3
