// Package distance provides the vector metrics used by the index.
package distance

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/blas/blas32"
)

// normEpsilon keeps Normalize finite for all-zero vectors.
const normEpsilon = 1e-30

// Dot calculates the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 {
	return blas32.Dot(
		blas32.Vector{N: len(a), Data: a, Inc: 1},
		blas32.Vector{N: len(b), Data: b, Inc: 1},
	)
}

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	b = b[:len(a)]

	var s0, s1, s2, s3 float32
	i := 0
	for ; i+4 <= len(a); i += 4 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		d2 := a[i+2] - b[i+2]
		d3 := a[i+3] - b[i+3]
		s0 += d0 * d0
		s1 += d1 * d1
		s2 += d2 * d2
		s3 += d3 * d3
	}
	for ; i < len(a); i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return s0 + s1 + s2 + s3
}

// InnerProductDistance returns 1 - dot(a, b).
func InnerProductDistance(a, b []float32) float32 {
	return 1 - Dot(a, b)
}

// Normalize scales v in place to unit L2 norm.
// The scale is 1/(norm+1e-30), so an all-zero vector stays zero.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	scale := float32(1 / (math.Sqrt(sum) + normEpsilon))
	for i := range v {
		v[i] *= scale
	}
}

// NormalizeCopy returns a normalized copy of src.
func NormalizeCopy(src []float32) []float32 {
	dst := slices.Clone(src)
	Normalize(dst)
	return dst
}

// Metric represents the distance metric used for vector comparison.
type Metric uint8

const (
	// MetricL2 is the squared Euclidean distance.
	MetricL2 Metric = iota
	// MetricInnerProduct is 1 - dot(a, b).
	MetricInnerProduct
	// MetricCosine is the inner product distance over normalized vectors.
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricInnerProduct:
		return "ip"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is a known metric.
func (m Metric) Valid() bool {
	return m <= MetricCosine
}

// RequiresNormalization reports whether vectors must be unit length before
// they reach the metric.
func (m Metric) RequiresNormalization() bool {
	return m == MetricCosine
}

// ParseMetric parses a metric name. It accepts the space names "l2", "ip"
// and "cosine" as well as a few long forms.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l2", "euclidean", "squared_l2":
		return MetricL2, nil
	case "ip", "dot", "inner_product":
		return MetricInnerProduct, nil
	case "cosine", "cos":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unknown metric %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("unknown metric %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Func is a function type for distance calculation.
type Func func(a, b []float32) float32

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricInnerProduct, MetricCosine:
		return InnerProductDistance, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
