// Package distance provides vector distance calculations.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance
//   - MetricInnerProduct: 1 - dot(a, b)
//   - MetricCosine: the inner product distance applied to unit vectors
//
// Normalization is an explicit step. The cosine metric does not normalize on
// its own; callers normalize once at insertion and again at query time.
//
// # Usage
//
//	fn, _ := distance.Provider(distance.MetricCosine)
//	distance.Normalize(a)
//	distance.Normalize(b)
//	d := fn(a, b)
package distance
