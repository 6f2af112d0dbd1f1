package hnswlib

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// KNNQueryBatch runs KNNQuery for every query concurrently, bounded by
// GOMAXPROCS. Results are in query order. The first failing query cancels
// the rest and its error is returned.
func (idx *Index) KNNQueryBatch(ctx context.Context, queries [][]float32, k int) ([]*QueryResult, error) {
	return idx.queryBatch(ctx, queries, k, false)
}

// KNNNormalizedQueryBatch is KNNQueryBatch for queries the caller has
// already normalized.
func (idx *Index) KNNNormalizedQueryBatch(ctx context.Context, queries [][]float32, k int) ([]*QueryResult, error) {
	return idx.queryBatch(ctx, queries, k, true)
}

func (idx *Index) queryBatch(ctx context.Context, queries [][]float32, k int, normalized bool) ([]*QueryResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.ready(); err != nil {
		return nil, err
	}

	results := make([]*QueryResult, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			start := time.Now()
			qr, err := idx.search(q, k, normalized)
			idx.metrics.RecordSearch(k, time.Since(start), err)
			if err != nil {
				idx.logger.logSearch(ctx, k, 0, err)
				return err
			}
			results[i] = qr
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
