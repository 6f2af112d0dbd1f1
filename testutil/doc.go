// Package testutil holds the fixtures shared by the hnswlib tests and
// benchmarks: seeded vector generators and an exact nearest-neighbor oracle
// to measure recall against.
//
//	rng := testutil.NewRNG(42)
//	data := rng.UnitVectors(10_000, 128)
//	queries := rng.UnitVectors(100, 128)
//
//	truth, _ := testutil.GroundTruth(ctx, queries, data, 10, distance.SquaredL2, 0)
//	recall := testutil.MeanRecall(truth, approx)
package testutil
