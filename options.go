package hnswlib

import (
	"context"

	"github.com/hupe1980/hnswlib/persistence"
)

// Option configures an Index at creation time.
type Option func(*Index)

// WithLogger sets the logger. The index tags it with its instance id.
func WithLogger(l *Logger) Option {
	return func(idx *Index) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(idx *Index) {
		if m != nil {
			idx.metrics = m
		}
	}
}

// InitOptions holds the graph parameters applied by Initialize.
type InitOptions struct {
	// M is the number of links per node on upper layers. Layer 0 keeps 2*M.
	M int

	// EFConstruction is the beam width used while inserting.
	EFConstruction int

	// EFSearch is the beam width used by queries. Queries always widen it
	// to at least k.
	EFSearch int

	// RandomSeed seeds the level generator. Equal seeds and equal insert
	// sequences build identical graphs.
	RandomSeed int64

	// AutoLabelBase is the first label handed out when the caller omits one.
	AutoLabelBase uint64
}

// DefaultInitOptions are the parameters used when Initialize gets no options.
var DefaultInitOptions = InitOptions{
	M:              16,
	EFConstruction: 200,
	EFSearch:       10,
	RandomSeed:     100,
	AutoLabelBase:  0,
}

// SaveOptions configures Save and its variants.
type SaveOptions struct {
	// Compression selects the body codec.
	Compression persistence.Compression

	// BytesPerSecond limits the write rate. Zero disables throttling.
	BytesPerSecond int

	// Context bounds a throttled write. Defaults to context.Background().
	Context context.Context
}

// SaveOption configures a save.
type SaveOption func(*SaveOptions)

// WithCompression compresses the saved body.
func WithCompression(c persistence.Compression) SaveOption {
	return func(o *SaveOptions) { o.Compression = c }
}

// WithThrottle caps the write rate of a save.
func WithThrottle(bytesPerSecond int) SaveOption {
	return func(o *SaveOptions) { o.BytesPerSecond = bytesPerSecond }
}

// LoadOptions configures Load and its variants.
type LoadOptions struct {
	// EFSearch and RandomSeed are not part of the saved state.
	// Zero keeps the defaults.
	EFSearch   int
	RandomSeed int64
}

// LoadOption configures a load.
type LoadOption func(*LoadOptions)

// WithLoadEFSearch sets the query beam width of the loaded index.
func WithLoadEFSearch(ef int) LoadOption {
	return func(o *LoadOptions) { o.EFSearch = ef }
}

// WithLoadRandomSeed seeds the level generator of the loaded index.
func WithLoadRandomSeed(seed int64) LoadOption {
	return func(o *LoadOptions) { o.RandomSeed = seed }
}
