// Package hnsw implements the Hierarchical Navigable Small World (HNSW) graph
// for approximate nearest neighbor search.
//
// The graph is stored as arena-indexed adjacency: node records live in a slice
// indexed by the dense handle assigned by the vector store, and every neighbor
// list holds handles into that slice.
//
// # Concurrency
//
// HNSW does not lock. Insert, Read and Release need exclusive access; Search,
// BruteSearch, Vector and Stats may run concurrently with each other. The
// hnswlib package wraps an HNSW with a sync.RWMutex that enforces this.
//
// # Usage
//
//	h, err := hnsw.New(func(o *hnsw.Options) {
//		o.Dimension = 128
//		o.MaxElements = 10_000
//	})
//	label, err := h.Insert(vec)
//	results, err := h.Search(query, 10, 0)
package hnsw
