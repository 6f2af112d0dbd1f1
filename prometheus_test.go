package hnswlib

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnswlib/distance"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := NewPrometheusCollector(reg, prometheus.Labels{"index": "test"})

	pc.RecordInsert(time.Millisecond, nil)
	pc.RecordInsert(time.Millisecond, errors.New("boom"))
	pc.RecordSearch(10, time.Millisecond, nil)
	pc.RecordSave(128, time.Millisecond, nil)
	pc.RecordSave(64, time.Millisecond, errors.New("boom"))
	pc.RecordLoad(3, time.Millisecond, nil)
	pc.RecordSize(3)

	assert.Equal(t, 1.0, promtest.ToFloat64(pc.operations.WithLabelValues("insert", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(pc.operations.WithLabelValues("insert", "error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(pc.operations.WithLabelValues("search", "ok")))
	assert.Equal(t, 128.0, promtest.ToFloat64(pc.savedBytes))
	assert.Equal(t, 3.0, promtest.ToFloat64(pc.vectors))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "hnswlib_operation_duration_seconds")
}

func TestPrometheusCollectorWithIndex(t *testing.T) {
	reg := prometheus.NewRegistry()
	pc := NewPrometheusCollector(reg, nil)

	idx, err := New(2, distance.MetricL2, WithMetricsCollector(pc))
	require.NoError(t, err)
	require.NoError(t, idx.Initialize(4))
	defer idx.Close()

	addAll(t, idx, [][]float32{{0, 0}, {1, 0}})
	_, err = idx.KNNQuery([]float32{0, 0}, 1)
	require.NoError(t, err)

	assert.Equal(t, 2.0, promtest.ToFloat64(pc.operations.WithLabelValues("insert", "ok")))
	assert.Equal(t, 2.0, promtest.ToFloat64(pc.vectors))
}
