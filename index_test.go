package hnswlib

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/testutil"
)

func newIndex(t *testing.T, dim, maxElements int, metric distance.Metric, optFns ...func(*InitOptions)) *Index {
	t.Helper()

	idx, err := New(dim, metric)
	require.NoError(t, err)
	require.NoError(t, idx.Initialize(maxElements, optFns...))
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func addAll(t *testing.T, idx *Index, vectors [][]float32) {
	t.Helper()
	for _, v := range vectors {
		_, err := idx.AddItem(v)
		require.NoError(t, err)
	}
}

func TestNew(t *testing.T) {
	_, err := New(0, distance.MetricL2)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(4, distance.Metric(7))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	idx, err := New(4, distance.MetricCosine)
	require.NoError(t, err)
	assert.Equal(t, StateUninitialized, idx.State())
	assert.Equal(t, 4, idx.Dimension())
	assert.Equal(t, distance.MetricCosine, idx.Metric())
	assert.NotEmpty(t, idx.ID())
}

func TestLifecycle(t *testing.T) {
	idx, err := New(2, distance.MetricL2)
	require.NoError(t, err)

	_, err = idx.AddItem([]float32{1, 2})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = idx.Length()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = idx.KNNQuery([]float32{1, 2}, 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = idx.Save(&bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.True(t, IsProgrammerError(err))

	assert.ErrorIs(t, idx.Initialize(0), ErrInvalidArgument)
	assert.Equal(t, StateUninitialized, idx.State())

	require.NoError(t, idx.Initialize(10))
	assert.Equal(t, StateInitialized, idx.State())

	err = idx.Initialize(10)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
	assert.True(t, IsProgrammerError(err))

	_, err = idx.AddItem([]float32{1, 2})
	require.NoError(t, err)

	require.NoError(t, idx.Clear())
	assert.Equal(t, StateCleared, idx.State())

	ops := map[string]func() error{
		"initialize": func() error { return idx.Initialize(10) },
		"add":        func() error { _, err := idx.AddItem([]float32{1, 2}); return err },
		"add label":  func() error { return idx.AddItemWithLabel([]float32{1, 2}, 9) },
		"length":     func() error { _, err := idx.Length(); return err },
		"query":      func() error { _, err := idx.KNNQuery([]float32{1, 2}, 1); return err },
		"batch": func() error {
			_, err := idx.KNNQueryBatch(context.Background(), [][]float32{{1, 2}}, 1)
			return err
		},
		"item":  func() error { _, err := idx.Item(0); return err },
		"stats": func() error { _, err := idx.Stats(); return err },
		"setef": func() error { return idx.SetEF(20) },
		"save":  func() error { _, err := idx.Save(&bytes.Buffer{}); return err },
		"load":  func() error { return idx.Load(&bytes.Buffer{}, 10) },
		"clear": idx.Clear,
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, ErrUseAfterClear)
			assert.True(t, IsProgrammerError(err))
		})
	}

	assert.NoError(t, idx.Close())
	assert.NoError(t, idx.Close())
}

func TestClearUninitialized(t *testing.T) {
	idx, err := New(2, distance.MetricL2)
	require.NoError(t, err)

	require.NoError(t, idx.Clear())
	assert.ErrorIs(t, idx.Initialize(4), ErrUseAfterClear)
}

func TestConcreteScenario(t *testing.T) {
	idx := newIndex(t, 4, 10, distance.MetricL2)

	require.NoError(t, idx.AddItemWithLabel([]float32{1, 0, 0, 0}, 1))
	require.NoError(t, idx.AddItemWithLabel([]float32{0, 1, 0, 0}, 2))
	require.NoError(t, idx.AddItemWithLabel([]float32{1, 0, 0, 0.01}, 3))

	res, err := idx.KNNQuery([]float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, res.Labels)
	assert.Equal(t, 2, res.Len())

	label, dist := res.At(0)
	assert.Equal(t, uint64(1), label)
	assert.Equal(t, float32(0), dist)
	assert.InDelta(t, 0.0001, res.Distances[1], 1e-7)
}

func TestAddItemErrors(t *testing.T) {
	idx := newIndex(t, 3, 2, distance.MetricL2)

	_, err := idx.AddItem([]float32{1, 2})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	var dimErr *DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Actual)
	assert.True(t, IsInputError(err))

	n, err := idx.Length()
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, idx.AddItemWithLabel([]float32{1, 0, 0}, 5))

	err = idx.AddItemWithLabel([]float32{0, 1, 0}, 5)
	assert.ErrorIs(t, err, ErrDuplicateLabel)

	_, err = idx.AddItem([]float32{0, 1, 0})
	require.NoError(t, err)

	_, err = idx.AddItem([]float32{0, 0, 1})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.True(t, IsInputError(err))

	n, err = idx.Length()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAutoLabelBase(t *testing.T) {
	idx := newIndex(t, 2, 10, distance.MetricL2)
	label, err := idx.AddItem([]float32{1, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), label)

	idx = newIndex(t, 2, 10, distance.MetricL2, func(o *InitOptions) { o.AutoLabelBase = 1 })
	for want := uint64(1); want <= 3; want++ {
		label, err := idx.AddItem([]float32{float32(want), 0})
		require.NoError(t, err)
		assert.Equal(t, want, label)
	}
}

func TestQueryErrors(t *testing.T) {
	idx := newIndex(t, 2, 10, distance.MetricL2)

	_, err := idx.KNNQuery([]float32{1, 1}, 1)
	assert.ErrorIs(t, err, ErrEmptyIndexQuery)

	addAll(t, idx, [][]float32{{0, 0}, {1, 1}})

	_, err = idx.KNNQuery([]float32{1, 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.KNNQuery([]float32{1, 1, 1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	res, err := idx.KNNQuery([]float32{1, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 0}, res.Labels)
}

func TestSelfRetrieval(t *testing.T) {
	data := testutil.NewRNG(21).UniformVectors(200, 12)
	idx := newIndex(t, 12, 200, distance.MetricL2)
	addAll(t, idx, data)

	for i, v := range data {
		res, err := idx.KNNQuery(v, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), res.Labels[0])
		assert.Equal(t, float32(0), res.Distances[0])
	}
}

func TestRecallAgainstExact(t *testing.T) {
	rng := testutil.NewRNG(77)
	data := rng.SignedVectors(1000, 16)
	queries := rng.SignedVectors(50, 16)

	idx := newIndex(t, 16, len(data), distance.MetricL2)
	addAll(t, idx, data)

	truth, err := testutil.GroundTruth(context.Background(), queries, data, 10, distance.SquaredL2, 4)
	require.NoError(t, err)

	require.NoError(t, idx.SetEF(64))
	results, err := idx.KNNQueryBatch(context.Background(), queries, 10)
	require.NoError(t, err)

	approx := make([][]testutil.Neighbor, len(results))
	for i, r := range results {
		approx[i] = testutil.Neighbors(r.Labels, r.Distances)
	}
	assert.GreaterOrEqual(t, testutil.MeanRecall(truth, approx), 0.9)
}

func TestCosineDoesNotMutateInput(t *testing.T) {
	idx := newIndex(t, 2, 10, distance.MetricCosine)

	v := []float32{3, 4}
	label, err := idx.AddItem(v)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, v)

	stored, err := idx.Item(label)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, stored[0], 1e-6)
	assert.InDelta(t, 0.8, stored[1], 1e-6)

	q := []float32{0, 5}
	res, err := idx.KNNQuery(q, 1)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 5}, q)
	assert.InDelta(t, 0.2, res.Distances[0], 1e-6)

	n := []float32{0, 1}
	Normalize(n)
	require.NoError(t, idx.AddNormalizedItemWithLabel(n, 9))
	res, err = idx.KNNNormalizedQuery([]float32{0, 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), res.Labels[0])

	auto, err := idx.AddNormalizedItem([]float32{1, 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), auto)
}

func TestItemAndStats(t *testing.T) {
	idx := newIndex(t, 2, 10, distance.MetricL2)
	require.NoError(t, idx.AddItemWithLabel([]float32{1, 2}, 4))

	v, err := idx.Item(4)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, v)

	_, err = idx.Item(5)
	assert.ErrorIs(t, err, ErrLabelNotFound)

	stats, err := idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, 10, stats.Capacity)

	assert.ErrorIs(t, idx.SetEF(0), ErrInvalidArgument)
	require.NoError(t, idx.SetEF(100))
	stats, err = idx.Stats()
	require.NoError(t, err)
	assert.Equal(t, 100, stats.EFSearch)
}

func TestKNNQueryBatch(t *testing.T) {
	rng := testutil.NewRNG(5)
	data := rng.UniformVectors(300, 8)
	queries := rng.UniformVectors(40, 8)

	idx := newIndex(t, 8, 300, distance.MetricL2)
	addAll(t, idx, data)

	batch, err := idx.KNNQueryBatch(context.Background(), queries, 5)
	require.NoError(t, err)
	require.Len(t, batch, len(queries))

	for i, q := range queries {
		single, err := idx.KNNQuery(q, 5)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}

	queries[7] = []float32{1}
	_, err = idx.KNNQueryBatch(context.Background(), queries, 5)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = idx.KNNQueryBatch(ctx, queries[:3], 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentAccess(t *testing.T) {
	rng := testutil.NewRNG(8)
	data := rng.UniformVectors(400, 8)

	idx := newIndex(t, 8, len(data), distance.MetricL2)
	addAll(t, idx, data[:100])

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for _, v := range data[100:] {
			_, err := idx.AddItem(v)
			assert.NoError(t, err)
		}
	}()
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, q := range data[:100] {
				res, err := idx.KNNQuery(q, 3)
				assert.NoError(t, err)
				assert.Equal(t, 3, res.Len())
			}
		}()
	}
	wg.Wait()

	n, err := idx.Length()
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}

func TestMetricsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	metrics := &BasicMetricsCollector{}

	idx, err := New(2, distance.MetricL2, WithLogger(logger), WithMetricsCollector(metrics))
	require.NoError(t, err)
	require.NoError(t, idx.Initialize(2))

	addAll(t, idx, [][]float32{{0, 0}, {1, 1}})
	_, err = idx.AddItem([]float32{2, 2})
	require.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = idx.KNNQuery([]float32{0, 0}, 1)
	require.NoError(t, err)

	_, err = idx.Save(&bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.Insert.Count)
	assert.Equal(t, int64(1), stats.Insert.Errors)
	assert.Equal(t, int64(1), stats.Search.Count)
	assert.Equal(t, int64(1), stats.Save.Count)
	assert.Greater(t, stats.SavedBytes, int64(0))
	assert.Equal(t, int64(0), stats.Size)

	var messages []string
	dec := json.NewDecoder(&buf)
	for {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			break
		}
		assert.Equal(t, idx.ID(), rec["index"])
		messages = append(messages, rec["msg"].(string))
	}
	assert.Contains(t, messages, "index initialized")
	assert.Contains(t, messages, "insert failed")
	assert.Contains(t, messages, "index saved")
	assert.Contains(t, messages, "index cleared")
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil))

	other := errors.New("other")
	assert.Same(t, other, translateError(other))
}
