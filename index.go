package hnswlib

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/hnsw"
)

// State is the lifecycle state of an Index.
type State int

const (
	// StateUninitialized is the state after New. Only Initialize, Load and
	// Clear are accepted.
	StateUninitialized State = iota
	// StateInitialized accepts inserts, queries and saves.
	StateInitialized
	// StateCleared is terminal. Every operation fails with ErrUseAfterClear.
	StateCleared
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateCleared:
		return "cleared"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// QueryResult holds the neighbors of one query, closest first.
type QueryResult struct {
	Labels    []uint64
	Distances []float32
}

// Len returns the number of neighbors.
func (r *QueryResult) Len() int { return len(r.Labels) }

// At returns the i-th neighbor.
func (r *QueryResult) At(i int) (uint64, float32) { return r.Labels[i], r.Distances[i] }

func newQueryResult(results []hnsw.Result) *QueryResult {
	qr := &QueryResult{
		Labels:    make([]uint64, len(results)),
		Distances: make([]float32, len(results)),
	}
	for i, r := range results {
		qr.Labels[i] = r.Label
		qr.Distances[i] = r.Distance
	}
	return qr
}

// Index owns an HNSW graph together with its vectors.
//
// All methods are safe for concurrent use. Inserts, loads and Clear are
// serialized; queries, saves and reads run concurrently with each other.
type Index struct {
	mu sync.RWMutex

	id     string
	dim    int
	metric distance.Metric
	state  State
	h      *hnsw.HNSW

	logger  *Logger
	metrics MetricsCollector
}

// New creates an uninitialized index for vectors of the given dimension.
func New(dimension int, metric distance.Metric, opts ...Option) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidArgument, dimension)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("%w: unknown metric %d", ErrInvalidArgument, metric)
	}

	idx := &Index{
		id:      uuid.NewString(),
		dim:     dimension,
		metric:  metric,
		state:   StateUninitialized,
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, opt := range opts {
		opt(idx)
	}
	idx.logger = idx.logger.forIndex(idx.id, dimension)
	return idx, nil
}

// ID returns the instance id attached to log records.
func (idx *Index) ID() string { return idx.id }

// Dimension returns the vector dimension.
func (idx *Index) Dimension() int { return idx.dim }

// Metric returns the distance metric.
func (idx *Index) Metric() distance.Metric { return idx.metric }

// State returns the lifecycle state.
func (idx *Index) State() State {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.state
}

// Initialize allocates storage for maxElements vectors. It may be called
// once; a second call fails with ErrAlreadyInitialized.
func (idx *Index) Initialize(maxElements int, optFns ...func(o *InitOptions)) error {
	opts := DefaultInitOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	switch idx.state {
	case StateCleared:
		return ErrUseAfterClear
	case StateInitialized:
		return ErrAlreadyInitialized
	}

	h, err := hnsw.New(func(o *hnsw.Options) {
		o.Dimension = idx.dim
		o.Metric = idx.metric
		o.MaxElements = maxElements
		o.M = opts.M
		o.EFConstruction = opts.EFConstruction
		o.EFSearch = opts.EFSearch
		o.RandomSeed = opts.RandomSeed
		o.LabelBase = opts.AutoLabelBase
	})
	if err != nil {
		return translateError(err)
	}

	idx.h = h
	idx.state = StateInitialized
	idx.logger.logInitialize(context.Background(), maxElements, opts.M, opts.EFConstruction)
	idx.metrics.RecordSize(0)
	return nil
}

// ready reports whether the index accepts data operations.
// The caller must hold mu.
func (idx *Index) ready() error {
	switch idx.state {
	case StateUninitialized:
		return ErrNotInitialized
	case StateCleared:
		return ErrUseAfterClear
	}
	return nil
}

// AddItem inserts v under the next auto label and returns that label.
// Cosine indexes store a normalized copy of v.
func (idx *Index) AddItem(v []float32) (uint64, error) {
	return idx.add(v, nil, false)
}

// AddItemWithLabel inserts v under label.
func (idx *Index) AddItemWithLabel(v []float32, label uint64) error {
	_, err := idx.add(v, &label, false)
	return err
}

// AddNormalizedItem inserts v as is. The caller asserts that v has unit
// length when the metric is cosine.
func (idx *Index) AddNormalizedItem(v []float32) (uint64, error) {
	return idx.add(v, nil, true)
}

// AddNormalizedItemWithLabel is AddNormalizedItem with an explicit label.
func (idx *Index) AddNormalizedItemWithLabel(v []float32, label uint64) error {
	_, err := idx.add(v, &label, true)
	return err
}

func (idx *Index) add(v []float32, label *uint64, normalized bool) (lbl uint64, err error) {
	start := time.Now()
	defer func() {
		idx.metrics.RecordInsert(time.Since(start), err)
		idx.logger.logInsert(context.Background(), lbl, err)
	}()

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.ready(); err != nil {
		return 0, err
	}
	if label != nil {
		lbl = *label
	}

	_, lbl, err = idx.h.Insert(v, label, normalized)
	if err != nil {
		if label != nil {
			lbl = *label
		}
		return lbl, translateError(err)
	}
	idx.metrics.RecordSize(idx.h.Len())
	return lbl, nil
}

// Length returns the number of stored vectors.
func (idx *Index) Length() (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.ready(); err != nil {
		return 0, err
	}
	return idx.h.Len(), nil
}

// KNNQuery returns the k approximate nearest neighbors of v, closest first.
// Fewer than k neighbors are returned when the index holds fewer vectors.
// Cosine indexes normalize a copy of v.
func (idx *Index) KNNQuery(v []float32, k int) (*QueryResult, error) {
	return idx.query(v, k, false)
}

// KNNNormalizedQuery is KNNQuery for a query the caller has already
// normalized.
func (idx *Index) KNNNormalizedQuery(v []float32, k int) (*QueryResult, error) {
	return idx.query(v, k, true)
}

func (idx *Index) query(v []float32, k int, normalized bool) (qr *QueryResult, err error) {
	start := time.Now()
	defer func() {
		found := 0
		if qr != nil {
			found = qr.Len()
		}
		idx.metrics.RecordSearch(k, time.Since(start), err)
		idx.logger.logSearch(context.Background(), k, found, err)
	}()

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.ready(); err != nil {
		return nil, err
	}
	return idx.search(v, k, normalized)
}

// search runs one query. The caller must hold mu.
func (idx *Index) search(v []float32, k int, normalized bool) (*QueryResult, error) {
	var (
		results []hnsw.Result
		err     error
	)
	if normalized {
		results, err = idx.h.SearchNormalized(v, k, 0)
	} else {
		results, err = idx.h.Search(v, k, 0)
	}
	if err != nil {
		return nil, translateError(err)
	}
	return newQueryResult(results), nil
}

// SetEF sets the query beam width.
func (idx *Index) SetEF(ef int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.ready(); err != nil {
		return err
	}
	return translateError(idx.h.SetEFSearch(ef))
}

// Item returns a copy of the vector stored under label. Cosine indexes
// return the normalized vector.
func (idx *Index) Item(label uint64) ([]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.ready(); err != nil {
		return nil, err
	}
	v, err := idx.h.Vector(label)
	return v, translateError(err)
}

// Stats reports the shape of the graph.
func (idx *Index) Stats() (hnsw.Stats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if err := idx.ready(); err != nil {
		return hnsw.Stats{}, err
	}
	return idx.h.Stats(), nil
}

// Clear releases all storage. The index is unusable afterwards and a
// second Clear fails with ErrUseAfterClear.
func (idx *Index) Clear() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.state == StateCleared {
		return ErrUseAfterClear
	}
	idx.release()
	return nil
}

// Close clears the index unless it is already cleared. It is safe to
// call any number of times.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.state != StateCleared {
		idx.release()
	}
	return nil
}

// release drops the graph. The caller must hold mu.
func (idx *Index) release() {
	count := 0
	if idx.h != nil {
		count = idx.h.Len()
		idx.h.Release()
		idx.h = nil
	}
	idx.state = StateCleared
	idx.logger.logClear(context.Background(), count)
	idx.metrics.RecordSize(0)
}

// Normalize scales v in place to unit length.
func Normalize(v []float32) {
	distance.Normalize(v)
}
