package testutil

import (
	"cmp"
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hnswlib/distance"
)

// RNG generates reproducible vector sets. It is safe for concurrent use.
type RNG struct {
	mu   sync.Mutex
	rand *rand.Rand
}

// NewRNG returns a generator whose output depends only on seed.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))} //nolint:gosec // test data
}

// UniformVectors draws components from [0, 1).
func (r *RNG) UniformVectors(num, dim int) [][]float32 {
	return r.fill(num, dim, func(rnd *rand.Rand) float32 { return rnd.Float32() })
}

// SignedVectors draws components from [-1, 1).
func (r *RNG) SignedVectors(num, dim int) [][]float32 {
	return r.fill(num, dim, func(rnd *rand.Rand) float32 { return 2*rnd.Float32() - 1 })
}

// GaussianVectors draws components from the standard normal distribution.
func (r *RNG) GaussianVectors(num, dim int) [][]float32 {
	return r.fill(num, dim, func(rnd *rand.Rand) float32 { return float32(rnd.NormFloat64()) })
}

// UnitVectors are uniformly distributed on the unit sphere.
func (r *RNG) UnitVectors(num, dim int) [][]float32 {
	vectors := r.GaussianVectors(num, dim)
	for _, v := range vectors {
		distance.Normalize(v)
	}
	return vectors
}

// ClusteredVectors places num points around the given number of centers
// drawn from [-1, 1). Each point is its center plus Gaussian noise scaled
// by spread.
func (r *RNG) ClusteredVectors(num, dim, clusters int, spread float32) [][]float32 {
	centers := r.SignedVectors(max(clusters, 1), dim)

	i := 0
	return r.fill(num, dim, func(rnd *rand.Rand) float32 {
		c := centers[(i/dim)%len(centers)]
		v := c[i%dim] + spread*float32(rnd.NormFloat64())
		i++
		return v
	})
}

// fill backs all vectors by one slice.
func (r *RNG) fill(num, dim int, next func(*rand.Rand) float32) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dim)
	for i := range data {
		data[i] = next(r.rand)
	}
	vectors := make([][]float32, num)
	for i := range vectors {
		vectors[i] = data[i*dim : (i+1)*dim : (i+1)*dim]
	}
	return vectors
}

// Neighbor is one exact or approximate search hit.
type Neighbor struct {
	Label    uint64
	Distance float32
}

// Neighbors zips parallel label and distance slices.
func Neighbors(labels []uint64, distances []float32) []Neighbor {
	out := make([]Neighbor, len(labels))
	for i := range labels {
		out[i] = Neighbor{Label: labels[i], Distance: distances[i]}
	}
	return out
}

// ExactTopK scans dataset and returns the k closest rows, labelled by row
// index and ordered by distance, then label.
func ExactTopK(query []float32, dataset [][]float32, k int, fn distance.Func) []Neighbor {
	all := make([]Neighbor, len(dataset))
	for i, v := range dataset {
		all[i] = Neighbor{Label: uint64(i), Distance: fn(query, v)}
	}
	slices.SortFunc(all, func(a, b Neighbor) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return all[:min(k, len(all))]
}

// GroundTruth runs ExactTopK for every query on up to workers goroutines.
// workers <= 0 means no limit.
func GroundTruth(ctx context.Context, queries, dataset [][]float32, k int, fn distance.Func, workers int) ([][]Neighbor, error) {
	out := make([][]Neighbor, len(queries))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, q := range queries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = ExactTopK(q, dataset, k, fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Recall is the fraction of the true top len(truth) labels present in
// approx. Two empty lists have recall 1.
func Recall(truth, approx []Neighbor) float64 {
	if len(truth) == 0 {
		if len(approx) == 0 {
			return 1
		}
		return 0
	}

	want := make(map[uint64]struct{}, len(truth))
	for _, n := range truth {
		want[n.Label] = struct{}{}
	}
	hits := 0
	for _, n := range approx {
		if _, ok := want[n.Label]; ok {
			hits++
			delete(want, n.Label)
		}
	}
	return float64(hits) / float64(len(truth))
}

// MeanRecall averages Recall over a batch of queries.
func MeanRecall(truth, approx [][]Neighbor) float64 {
	if len(truth) == 0 {
		return 1
	}
	var sum float64
	for i := range truth {
		var a []Neighbor
		if i < len(approx) {
			a = approx[i]
		}
		sum += Recall(truth[i], a)
	}
	return sum / float64(len(truth))
}
