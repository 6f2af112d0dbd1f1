package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDot(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Mixed", []float32{1, -1, 2}, []float32{1, 1, -2}, -4},
		{"Empty", []float32{}, []float32{}, 0},
		{"Single", []float32{2}, []float32{3}, 6},
		{"Large", make([]float32, 1024), make([]float32, 1024), 0},
	}

	for i := range tests[5].a {
		tests[5].a[i] = 1
		tests[5].b[i] = 1
	}
	tests[5].expected = 1024

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dot(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Zero", []float32{0, 0, 0}, []float32{0, 0, 0}, 0},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Mixed", []float32{1, -1}, []float32{-1, 1}, 8},
		{"Empty", []float32{}, []float32{}, 0},
		{"Unrolled", []float32{1, 2, 3, 4, 5}, []float32{0, 0, 0, 0, 0}, 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SquaredL2(tt.a, tt.b)
			assert.InDelta(t, tt.expected, got, 1e-5)
		})
	}
}

func TestSquaredL2_SelfIsExactlyZero(t *testing.T) {
	v := []float32{0.1, -3.7, 1e-3, 42, 7.25, -0.5, 0.333}
	assert.Equal(t, float32(0), SquaredL2(v, v))
}

func TestInnerProductDistance(t *testing.T) {
	assert.InDelta(t, float32(1), InnerProductDistance([]float32{1, 0}, []float32{0, 1}), 1e-6)
	assert.InDelta(t, float32(0), InnerProductDistance([]float32{1, 0}, []float32{1, 0}), 1e-6)
	assert.InDelta(t, float32(2), InnerProductDistance([]float32{1, 0}, []float32{-1, 0}), 1e-6)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestNormalize_ZeroVector(t *testing.T) {
	v := []float32{0, 0, 0}
	Normalize(v)
	for _, x := range v {
		assert.False(t, math.IsNaN(float64(x)))
		assert.Equal(t, float32(0), x)
	}
}

func TestNormalizeCopy(t *testing.T) {
	src := []float32{0, 5}
	dst := NormalizeCopy(src)
	assert.Equal(t, []float32{0, 5}, src)
	assert.InDelta(t, 1.0, dst[1], 1e-6)
}

func TestProvider(t *testing.T) {
	fn, err := Provider(MetricL2)
	require.NoError(t, err)
	assert.Equal(t, float32(2), fn([]float32{1, 0}, []float32{0, 1}))

	fn, err = Provider(MetricInnerProduct)
	require.NoError(t, err)
	assert.InDelta(t, float32(0), fn([]float32{1, 0}, []float32{1, 0}), 1e-6)

	fn, err = Provider(MetricCosine)
	require.NoError(t, err)
	assert.InDelta(t, float32(1), fn([]float32{1, 0}, []float32{0, 1}), 1e-6)

	_, err = Provider(Metric(42))
	assert.Error(t, err)
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{
		"l2":     MetricL2,
		"L2":     MetricL2,
		"ip":     MetricInnerProduct,
		"cosine": MetricCosine,
		" dot ":  MetricInnerProduct,
	} {
		got, err := ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMetric("hamming")
	assert.Error(t, err)
}

func TestMetric_Text(t *testing.T) {
	for _, m := range []Metric{MetricL2, MetricInnerProduct, MetricCosine} {
		b, err := m.MarshalText()
		require.NoError(t, err)

		var got Metric
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, m, got)
	}
	assert.True(t, MetricCosine.RequiresNormalization())
	assert.False(t, MetricL2.RequiresNormalization())
	assert.False(t, Metric(9).Valid())
}
