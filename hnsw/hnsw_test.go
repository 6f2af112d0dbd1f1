package hnsw

import (
	"bytes"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/testutil"
	"github.com/hupe1980/hnswlib/vectorstore"
)

func newTestIndex(t *testing.T, dim, capacity int, optFns ...func(o *Options)) *HNSW {
	t.Helper()

	h, err := New(append([]func(o *Options){func(o *Options) {
		o.Dimension = dim
		o.MaxElements = capacity
	}}, optFns...)...)
	require.NoError(t, err)
	return h
}

func labelPtr(l uint64) *uint64 { return &l }

func fill(t *testing.T, h *HNSW, vectors [][]float32) {
	t.Helper()
	for _, v := range vectors {
		_, _, err := h.Insert(v, nil, false)
		require.NoError(t, err)
	}
}

func labelsOf(results []Result) []uint64 {
	out := make([]uint64, len(results))
	for i, r := range results {
		out[i] = r.Label
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		fn   func(o *Options)
	}{
		{"dimension", func(o *Options) { o.Dimension = 0 }},
		{"dimension too large", func(o *Options) { o.Dimension = MaxDimension + 1 }},
		{"capacity", func(o *Options) { o.MaxElements = 0 }},
		{"M", func(o *Options) { o.M = 1 }},
		{"efConstruction", func(o *Options) { o.EFConstruction = 0 }},
		{"efSearch", func(o *Options) { o.EFSearch = -1 }},
		{"metric", func(o *Options) { o.Metric = distance.Metric(9) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(func(o *Options) {
				o.Dimension = 4
				o.MaxElements = 10
			}, tt.fn)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func TestConcreteScenario(t *testing.T) {
	h := newTestIndex(t, 4, 10)

	for label, v := range map[uint64][]float32{
		1: {1, 0, 0, 0},
		2: {0, 1, 0, 0},
		3: {1, 0, 0, 0.01},
	} {
		_, _, err := h.Insert(v, labelPtr(label), false)
		require.NoError(t, err)
	}

	results, err := h.Search([]float32{1, 0, 0, 0}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, labelsOf(results))
	assert.Equal(t, float32(0), results[0].Distance)
	assert.InDelta(t, 0.0001, results[1].Distance, 1e-7)
}

func TestAutoLabels(t *testing.T) {
	h := newTestIndex(t, 2, 10, func(o *Options) { o.LabelBase = 1 })

	_, l, err := h.Insert([]float32{0, 0}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), l)

	_, _, err = h.Insert([]float32{1, 0}, labelPtr(2), false)
	require.NoError(t, err)

	handle, l, err := h.Insert([]float32{2, 0}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), l)
	assert.Equal(t, uint32(2), handle)

	_, _, err = h.Insert([]float32{3, 0}, labelPtr(3), false)
	assert.ErrorIs(t, err, vectorstore.ErrDuplicateLabel)
	assert.Equal(t, 3, h.Len())
}

func TestInsertErrors(t *testing.T) {
	h := newTestIndex(t, 3, 2)

	_, _, err := h.Insert([]float32{1, 2}, nil, false)
	var dimErr *vectorstore.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
	assert.Equal(t, 0, h.Len())

	fill(t, h, [][]float32{{1, 0, 0}, {0, 1, 0}})
	_, _, err = h.Insert([]float32{0, 0, 1}, nil, false)
	assert.ErrorIs(t, err, vectorstore.ErrCapacityExceeded)
	assert.Equal(t, 2, h.Len())
}

func TestSearchErrors(t *testing.T) {
	h := newTestIndex(t, 2, 4)

	_, err := h.Search([]float32{1, 1}, 1, 0)
	assert.ErrorIs(t, err, ErrEmptyIndex)

	fill(t, h, [][]float32{{1, 1}})

	_, err = h.Search([]float32{1, 1}, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = h.Search([]float32{1}, 1, 0)
	var dimErr *vectorstore.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dimErr)
}

func TestSearchResultCounts(t *testing.T) {
	rng := testutil.NewRNG(42)
	data := rng.UniformVectors(200, 8)
	h := newTestIndex(t, 8, 200)
	fill(t, h, data)

	query := rng.UniformVectors(1, 8)[0]
	for _, k := range []int{1, 5, 10, 50, 200} {
		results, err := h.Search(query, k, 0)
		require.NoError(t, err)
		require.Len(t, results, k)
		for i := 1; i < len(results); i++ {
			assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
		}
	}

	results, err := h.Search(query, 500, 0)
	require.NoError(t, err)
	assert.Len(t, results, 200)
}

func TestSelfRetrieval(t *testing.T) {
	rng := testutil.NewRNG(4711)
	data := rng.UniformVectors(300, 8)
	h := newTestIndex(t, 8, 300)
	fill(t, h, data)

	for i, v := range data {
		results, err := h.Search(v, 1, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint64(i), results[0].Label)
		assert.Equal(t, float32(0), results[0].Distance)
	}
}

func TestDuplicateBlock(t *testing.T) {
	rng := testutil.NewRNG(21)
	unique := rng.UniformVectors(2000, 8)

	data := slices.Clone(unique[:1000])
	for range 200 {
		data = append(data, unique[0])
	}
	data = append(data, unique[1000:]...)

	h := newTestIndex(t, 8, len(data))
	fill(t, h, data)
	assert.Positive(t, h.Stats().Duplicates)

	for i, v := range data {
		results, err := h.Search(v, 1, 0)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, float32(0), results[0].Distance, "vector %d", i)
	}

	all, err := h.Search(unique[0], len(data), 0)
	require.NoError(t, err)
	require.Len(t, all, len(data))

	zero := 0
	for _, r := range all {
		if r.Distance == 0 {
			zero++
		}
	}
	assert.Equal(t, 201, zero)
	for i := 1; i < zero; i++ {
		assert.Less(t, all[i-1].Handle, all[i].Handle)
	}

	some, err := h.Search(unique[0], 250, 0)
	require.NoError(t, err)
	assert.Len(t, some, 250)
	assert.Equal(t, float32(0), some[200].Distance)
}

func TestDuplicateClusters(t *testing.T) {
	centers := testutil.NewRNG(8).UniformVectors(10, 8)

	data := make([][]float32, 0, 2000)
	for i := range 2000 {
		data = append(data, centers[i%len(centers)])
	}

	h := newTestIndex(t, 8, len(data))
	fill(t, h, data)
	assert.Equal(t, 1990, h.Stats().Duplicates)

	for _, c := range centers {
		results, err := h.Search(c, len(data), 0)
		require.NoError(t, err)
		require.Len(t, results, len(data))
		assert.Equal(t, float32(0), results[199].Distance)
		assert.Positive(t, results[200].Distance)
	}
}

func TestRecall(t *testing.T) {
	for _, metric := range []distance.Metric{distance.MetricL2, distance.MetricInnerProduct, distance.MetricCosine} {
		t.Run(metric.String(), func(t *testing.T) {
			rng := testutil.NewRNG(1)
			data := rng.SignedVectors(1000, 16)
			if metric == distance.MetricInnerProduct {
				data = rng.UnitVectors(1000, 16)
			}
			queries := rng.SignedVectors(100, 16)

			h := newTestIndex(t, 16, len(data), func(o *Options) { o.Metric = metric })
			fill(t, h, data)

			hits := 0
			for _, q := range queries {
				approx, err := h.Search(q, 1, 0)
				require.NoError(t, err)
				exact, err := h.BruteSearch(q, 1)
				require.NoError(t, err)
				if approx[0].Handle == exact[0].Handle {
					hits++
				}
			}
			assert.GreaterOrEqual(t, float64(hits)/float64(len(queries)), 0.9)
		})
	}
}

func TestDeterministicConstruction(t *testing.T) {
	rng := testutil.NewRNG(3)
	data := rng.UniformVectors(300, 8)

	build := func() *HNSW {
		h := newTestIndex(t, 8, 300)
		fill(t, h, data)
		return h
	}
	a, b := build(), build()

	var bufA, bufB bytes.Buffer
	_, err := a.WriteTo(&bufA)
	require.NoError(t, err)
	_, err = b.WriteTo(&bufB)
	require.NoError(t, err)
	assert.Equal(t, bufA.Bytes(), bufB.Bytes())
}

func TestGraphInvariants(t *testing.T) {
	rng := testutil.NewRNG(9)
	h := newTestIndex(t, 8, 500, func(o *Options) { o.M = 4 })
	fill(t, h, rng.UniformVectors(500, 8))

	g := h.g
	assert.Equal(t, g.maxLevel, g.levelOf(g.entryPoint))
	for i := range g.nodes {
		n := &g.nodes[i]
		for l, links := range n.links {
			limit := h.maxConnectionsPerLayer
			if l == 0 {
				limit = h.maxConnectionsLayer0
			}
			assert.LessOrEqual(t, len(links), limit)

			seen := map[uint32]bool{}
			for _, nb := range links {
				assert.NotEqual(t, uint32(i), nb, "self link")
				assert.False(t, seen[nb], "duplicate link")
				seen[nb] = true
				assert.True(t, g.onLayer(nb, l))
			}
		}
	}
}

func TestCosineNormalizesCopy(t *testing.T) {
	h := newTestIndex(t, 2, 4, func(o *Options) { o.Metric = distance.MetricCosine })

	v := []float32{3, 4}
	_, _, err := h.Insert(v, labelPtr(7), false)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, v)

	stored, err := h.Vector(7)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, stored[0], 1e-6)
	assert.InDelta(t, 0.8, stored[1], 1e-6)

	results, err := h.Search([]float32{6, 8}, 1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)

	_, _, err = h.Insert([]float32{2, 0}, labelPtr(8), true)
	require.NoError(t, err)
	raw, err := h.Vector(8)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 0}, raw)
}

func TestStats(t *testing.T) {
	h := newTestIndex(t, 4, 100)
	assert.Equal(t, -1, h.Stats().MaxLevel)

	fill(t, h, testutil.NewRNG(5).UniformVectors(100, 4))

	s := h.Stats()
	assert.Equal(t, 100, s.Count)
	assert.Equal(t, 32, s.MaxM0)
	require.Len(t, s.Levels, s.MaxLevel+1)
	assert.Equal(t, 100, s.Levels[0].Nodes)
	assert.Greater(t, s.Levels[0].AvgConnections, 0.0)

	assert.Equal(t, 0, s.Duplicates)
	assert.Equal(t, uint64(100), s.NextAutoLabel)

	var buf bytes.Buffer
	s.Print(&buf)
	assert.Contains(t, buf.String(), "Number of nodes = 100 / 100")
	assert.Contains(t, buf.String(), "Next auto label = 100")
}

func TestRelease(t *testing.T) {
	h := newTestIndex(t, 2, 4)
	fill(t, h, [][]float32{{1, 1}})

	h.Release()
	h.Release()

	_, _, err := h.Insert([]float32{1, 1}, nil, false)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = h.Search([]float32{1, 1}, 1, 0)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = h.Vector(0)
	assert.ErrorIs(t, err, ErrReleased)
}
