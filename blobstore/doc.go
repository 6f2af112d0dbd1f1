// Package blobstore provides the storage abstraction used to save and load
// persisted indexes.
//
// An index file is written once through Create and read back through Open.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes, mmap reads
//   - MemoryStore: ordered in-process map, for tests and byte shipping
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// Remote blobs implement RangeReader so NewReader can stream a whole file
// with a single request instead of one range request per buffer.
package blobstore
