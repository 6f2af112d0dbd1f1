// Package hnswlib provides an embedded approximate nearest neighbor index
// built on a Hierarchical Navigable Small World graph.
//
// # Quick Start
//
//	idx, _ := hnswlib.New(128, distance.MetricCosine)
//	_ = idx.Initialize(100_000)
//
//	label, _ := idx.AddItem(vec)
//	_ = idx.AddItemWithLabel(other, 42)
//
//	res, _ := idx.KNNQuery(query, 10)
//	for i := 0; i < res.Len(); i++ {
//	    label, dist := res.At(i)
//	    fmt.Println(label, dist)
//	}
//
// # Lifecycle
//
// An Index starts uninitialized. Initialize allocates room for a fixed
// number of vectors and may be called once. Load may be used instead of
// Initialize and replaces any previous content. Clear releases all memory
// and is terminal: every later call fails with ErrUseAfterClear. Close
// clears the index once and is otherwise a no-op, so it can be deferred.
//
// # Metrics
//
// Three metrics are supported: squared L2, inner product distance
// (1 - dot) and cosine. Cosine indexes store and query normalized copies
// of the caller's vectors. AddNormalizedItem and KNNNormalizedQuery skip
// that step for callers that normalize themselves.
//
// # Persistence
//
// Save writes a versioned binary image with a CRC32 trailer, optionally
// compressed with LZ4 or Zstd:
//
//	idx.SaveToFile("vectors.hnsw", hnswlib.WithCompression(persistence.CompressionZstd))
//
//	loaded, _ := hnswlib.New(128, distance.MetricCosine)
//	_ = loaded.LoadFromFile("vectors.hnsw", 200_000)
//
// SaveToStore and LoadFromStore accept any blobstore.BlobStore, including
// the S3 and MinIO stores.
//
// # Errors
//
// Failures are reported with the sentinel errors of this package and
// should be matched with errors.Is. IsProgrammerError and IsInputError
// group them by remedy.
//
// # Concurrency
//
// An Index is safe for concurrent use. Inserts are serialized while
// queries run in parallel with each other.
package hnswlib
