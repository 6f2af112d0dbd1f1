package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"sync"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/internal/conv"
	"github.com/hupe1980/hnswlib/internal/queue"
	"github.com/hupe1980/hnswlib/internal/visited"
	"github.com/hupe1980/hnswlib/vectorstore"
)

const (
	// MaxM bounds the M parameter accepted by New and by the codec.
	MaxM = 1 << 16

	// MaxDimension bounds the vector dimension accepted by New and by the
	// codec.
	MaxDimension = 1 << 16

	// maxLevelBound bounds the level of any node. Levels drawn from the
	// exponential distribution never come close.
	maxLevelBound = 255
)

// Options contains configuration options for the HNSW index.
type Options struct {
	// Dimension is the length of every stored vector.
	Dimension int

	// Metric selects the distance function.
	Metric distance.Metric

	// MaxElements is the fixed capacity of the index.
	MaxElements int

	// M is the number of bi-directional links created for each new node on
	// upper layers. Layer 0 allows 2*M.
	M int

	// EFConstruction is the beam width used while inserting.
	EFConstruction int

	// EFSearch is the default beam width used by Search when ef <= 0.
	EFSearch int

	// RandomSeed seeds the level generator.
	RandomSeed int64

	// LabelBase is the first auto-assigned label.
	LabelBase uint64
}

// DefaultOptions contains the default configuration options for the HNSW index.
var DefaultOptions = Options{
	Metric:         distance.MetricL2,
	M:              16,
	EFConstruction: 200,
	EFSearch:       10,
	RandomSeed:     100,
	LabelBase:      0,
}

func (o Options) validate() error {
	if o.Dimension <= 0 || o.Dimension > MaxDimension {
		return fmt.Errorf("%w: dimension must be in [1, %d], got %d", ErrInvalidOptions, MaxDimension, o.Dimension)
	}
	if o.MaxElements <= 0 {
		return fmt.Errorf("%w: max elements must be positive, got %d", ErrInvalidOptions, o.MaxElements)
	}
	if _, err := conv.Handle(o.MaxElements); err != nil {
		return fmt.Errorf("%w: max elements: %w", ErrInvalidOptions, err)
	}
	if o.M < 2 || o.M > MaxM {
		return fmt.Errorf("%w: M must be in [2, %d], got %d", ErrInvalidOptions, MaxM, o.M)
	}
	if o.EFConstruction <= 0 {
		return fmt.Errorf("%w: ef construction must be positive, got %d", ErrInvalidOptions, o.EFConstruction)
	}
	if o.EFSearch <= 0 {
		return fmt.Errorf("%w: ef search must be positive, got %d", ErrInvalidOptions, o.EFSearch)
	}
	if !o.Metric.Valid() {
		return fmt.Errorf("%w: unknown metric %d", ErrInvalidOptions, o.Metric)
	}
	return nil
}

// Result is one neighbor returned by Search.
type Result struct {
	Handle   uint32
	Label    uint64
	Distance float32
}

// HNSW is a Hierarchical Navigable Small World graph over a vectorstore.Store.
type HNSW struct {
	opts         Options
	distanceFunc distance.Func

	store *vectorstore.Store
	g     *graph

	rng *rand.Rand

	maxConnectionsPerLayer int
	maxConnectionsLayer0   int
	layerMultiplier        float64

	queuePool   sync.Pool
	visitedPool sync.Pool

	released bool
}

// New creates a new HNSW index with the given options.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	store, err := vectorstore.New(opts.Dimension, opts.MaxElements, opts.LabelBase)
	if err != nil {
		return nil, err
	}
	return newWithStore(opts, store), nil
}

func newWithStore(opts Options, store *vectorstore.Store) *HNSW {
	// EFConstruction below M would starve the neighbor selection.
	if opts.EFConstruction < opts.M {
		opts.EFConstruction = opts.M
	}

	df, _ := distance.Provider(opts.Metric)
	h := &HNSW{
		opts:                   opts,
		distanceFunc:           df,
		store:                  store,
		g:                      newGraph(opts.MaxElements),
		rng:                    rand.New(rand.NewSource(opts.RandomSeed)), // nolint gosec
		maxConnectionsPerLayer: opts.M,
		maxConnectionsLayer0:   2 * opts.M,
		layerMultiplier:        1 / math.Log(float64(opts.M)),
	}

	capacity := opts.MaxElements
	h.queuePool.New = func() any { return queue.NewCandidates(opts.EFConstruction) }
	h.visitedPool.New = func() any { return visited.New(capacity) }
	return h
}

// Options returns the effective options.
func (h *HNSW) Options() Options { return h.opts }

// Len returns the number of stored vectors.
func (h *HNSW) Len() int { return h.g.len() }

// Dimension returns the vector dimension.
func (h *HNSW) Dimension() int { return h.opts.Dimension }

// Metric returns the distance metric.
func (h *HNSW) Metric() distance.Metric { return h.opts.Metric }

// EFSearch returns the default search beam width.
func (h *HNSW) EFSearch() int { return h.opts.EFSearch }

// SetEFSearch changes the default search beam width.
func (h *HNSW) SetEFSearch(ef int) error {
	if ef <= 0 {
		return fmt.Errorf("%w: ef search must be positive, got %d", ErrInvalidOptions, ef)
	}
	h.opts.EFSearch = ef
	return nil
}

// NextAutoLabel returns the label the next auto-labeled insert would receive.
func (h *HNSW) NextAutoLabel() uint64 { return h.store.PeekAutoLabel() }

// Vector returns a copy of the vector stored under label.
func (h *HNSW) Vector(label uint64) ([]float32, error) {
	if h.released {
		return nil, ErrReleased
	}
	handle, err := h.store.Resolve(label)
	if err != nil {
		return nil, err
	}
	v := h.store.Get(handle)
	out := make([]float32, len(v))
	copy(out, v)
	return out, nil
}

// Insert adds vec to the index. A nil label requests the next auto label.
// Unless normalized is set, cosine indexes normalize a copy of vec first.
// It returns the handle and label of the new vector.
func (h *HNSW) Insert(vec []float32, label *uint64, normalized bool) (uint32, uint64, error) {
	if h.released {
		return 0, 0, ErrReleased
	}
	if len(vec) != h.opts.Dimension {
		return 0, 0, &vectorstore.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(vec)}
	}
	if h.opts.Metric.RequiresNormalization() && !normalized {
		vec = distance.NormalizeCopy(vec)
	}

	var (
		handle uint32
		lbl    uint64
		err    error
	)
	if label == nil {
		handle, lbl, err = h.store.Insert(vec)
	} else {
		lbl = *label
		handle, err = h.store.InsertWithLabel(vec, lbl)
	}
	if err != nil {
		return 0, 0, err
	}

	h.insertNode(handle, h.randomLevel())
	return handle, lbl, nil
}

// randomLevel draws floor(-ln(u) * 1/ln(M)) with u uniform in (0, 1].
func (h *HNSW) randomLevel() int {
	u := 1 - h.rng.Float64()
	level := int(math.Floor(-math.Log(u) * h.layerMultiplier))
	if level > maxLevelBound {
		level = maxLevelBound
	}
	return level
}

func (h *HNSW) insertNode(handle uint32, level int) {
	g := h.g
	if g.maxLevel < 0 {
		h.sync(g.addNode(level, h.maxConnectionsPerLayer, h.maxConnectionsLayer0), handle)
		g.entryPoint = handle
		g.maxLevel = level
		return
	}

	vec := h.store.Get(handle)
	ep := queue.Item{Node: g.entryPoint, Distance: h.distanceFunc(vec, h.store.Get(g.entryPoint))}

	// Greedy descent through the layers above the new node.
	for l := g.maxLevel; l > level; l-- {
		ep = h.greedy(vec, ep, l)
	}

	top := min(level, g.maxLevel)
	found := make([][]queue.Item, top+1)
	for l := top; l >= 0; l-- {
		found[l] = h.searchLayer(vec, ep, l, h.opts.EFConstruction)
		ep = found[l][0]
	}

	// Copies of one vector are all at the same distance from everything, so
	// linking them would fill neighbor lists with ties. They are attached to
	// the graph node they copy instead.
	if primary, ok := h.findCopy(vec, found[0]); ok {
		h.sync(g.addDuplicate(primary), handle)
		return
	}

	h.sync(g.addNode(level, h.maxConnectionsPerLayer, h.maxConnectionsLayer0), handle)
	for l := top; l >= 0; l-- {
		neighbors := h.selectNeighbors(found[l], h.maxConnectionsPerLayer)
		g.setNeighbors(handle, l, neighbors)

		for _, n := range neighbors {
			h.connect(n, handle, l)
		}
	}

	if level > g.maxLevel {
		g.entryPoint = handle
		g.maxLevel = level
	}
}

func (h *HNSW) sync(got, want uint32) {
	if got != want {
		panic(fmt.Sprintf("hnsw: graph handle %d out of sync with store handle %d", got, want))
	}
}

// findCopy returns the first candidate whose vector equals vec.
func (h *HNSW) findCopy(vec []float32, candidates []queue.Item) (uint32, bool) {
	for _, c := range candidates {
		if slices.Equal(vec, h.store.Get(c.Node)) {
			return c.Node, true
		}
	}
	return 0, false
}

// greedy moves from ep to its closest neighbor on layer until no neighbor
// is closer.
func (h *HNSW) greedy(query []float32, ep queue.Item, layer int) queue.Item {
	for changed := true; changed; {
		changed = false
		for _, n := range h.g.neighbors(ep.Node, layer) {
			d := h.distanceFunc(query, h.store.Get(n))
			cand := queue.Item{Node: n, Distance: d}
			if cand.Less(ep) {
				ep = cand
				changed = true
			}
		}
	}
	return ep
}

// searchLayer performs a beam search of width ef on one layer and returns
// the result set closest first.
func (h *HNSW) searchLayer(query []float32, ep queue.Item, layer, ef int) []queue.Item {
	seen := h.visitedPool.Get().(*visited.Set)
	candidates := h.queuePool.Get().(*queue.Candidates)
	defer func() {
		candidates.Reset()
		h.queuePool.Put(candidates)
		h.visitedPool.Put(seen)
	}()
	seen.Clear()
	candidates.Reset()

	results := queue.NewTopK(ef)

	seen.Mark(ep.Node)
	candidates.Push(ep)
	results.Offer(ep)

	for candidates.Len() > 0 {
		curr, _ := candidates.Pop()
		if worst, _ := results.Worst(); results.Full() && worst.Less(curr) {
			break
		}

		for _, n := range h.g.neighbors(curr.Node, layer) {
			if !seen.Mark(n) {
				continue
			}

			item := queue.Item{Node: n, Distance: h.distanceFunc(query, h.store.Get(n))}
			if results.Offer(item) {
				candidates.Push(item)
			}
		}
	}

	return results.Sorted()
}

// selectNeighbors applies the relative-neighbor heuristic to candidates,
// which must be sorted closest first. A candidate is kept only if it is
// closer to the base vector than to every neighbor kept before it.
func (h *HNSW) selectNeighbors(candidates []queue.Item, m int) []uint32 {
	if len(candidates) <= m {
		out := make([]uint32, len(candidates))
		for i, c := range candidates {
			out[i] = c.Node
		}
		return out
	}

	selected := make([]uint32, 0, m)
	for _, c := range candidates {
		if len(selected) >= m {
			break
		}
		cv := h.store.Get(c.Node)
		good := true
		for _, s := range selected {
			if h.distanceFunc(cv, h.store.Get(s)) < c.Distance {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, c.Node)
		}
	}
	return selected
}

// connect adds a link from src to dst on layer, re-pruning the neighbor list
// of src with the heuristic when it overflows.
func (h *HNSW) connect(src, dst uint32, layer int) {
	conns := h.g.neighbors(src, layer)
	for _, c := range conns {
		if c == dst {
			return
		}
	}

	maxConns := h.maxConnectionsPerLayer
	if layer == 0 {
		maxConns = h.maxConnectionsLayer0
	}

	if len(conns) < maxConns {
		h.g.nodes[src].links[layer] = append(conns, dst)
		return
	}

	base := h.store.Get(src)
	candidates := make([]queue.Item, 0, len(conns)+1)
	for _, c := range conns {
		candidates = append(candidates, queue.Item{Node: c, Distance: h.distanceFunc(base, h.store.Get(c))})
	}
	candidates = append(candidates, queue.Item{Node: dst, Distance: h.distanceFunc(base, h.store.Get(dst))})
	// The new link wins distance ties so it is not the one always dropped.
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Distance == b.Distance && (a.Node == dst || b.Node == dst) {
			return a.Node == dst
		}
		return a.Less(b)
	})

	h.g.setNeighbors(src, layer, h.selectNeighbors(candidates, maxConns))
}

// Search returns the k approximate nearest neighbors of query, closest
// first. The beam width is max(ef, k); ef <= 0 uses the EFSearch option.
// Cosine indexes normalize a copy of query first.
func (h *HNSW) Search(query []float32, k, ef int) ([]Result, error) {
	if h.opts.Metric.RequiresNormalization() && len(query) == h.opts.Dimension {
		query = distance.NormalizeCopy(query)
	}
	return h.SearchNormalized(query, k, ef)
}

// SearchNormalized is Search for a query the caller has already prepared.
func (h *HNSW) SearchNormalized(query []float32, k, ef int) ([]Result, error) {
	if err := h.checkQuery(query, k); err != nil {
		return nil, err
	}
	if ef <= 0 {
		ef = h.opts.EFSearch
	}
	ef = max(ef, k)

	g := h.g
	ep := queue.Item{Node: g.entryPoint, Distance: h.distanceFunc(query, h.store.Get(g.entryPoint))}
	for l := g.maxLevel; l > 0; l-- {
		ep = h.greedy(query, ep, l)
	}

	found := h.withDuplicates(h.searchLayer(query, ep, 0, ef))
	if len(found) > k {
		found = found[:k]
	}
	return h.toResults(found), nil
}

// withDuplicates adds the copies of every found node at the same distance
// and restores the closest-first order.
func (h *HNSW) withDuplicates(found []queue.Item) []queue.Item {
	if h.g.duplicateCount() == 0 {
		return found
	}
	for _, it := range found {
		for _, d := range h.g.duplicates(it.Node) {
			found = append(found, queue.Item{Node: d, Distance: it.Distance})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].Less(found[j]) })
	return found
}

// BruteSearch performs an exact scan over every stored vector.
func (h *HNSW) BruteSearch(query []float32, k int) ([]Result, error) {
	if h.opts.Metric.RequiresNormalization() && len(query) == h.opts.Dimension {
		query = distance.NormalizeCopy(query)
	}
	if err := h.checkQuery(query, k); err != nil {
		return nil, err
	}

	top := queue.NewTopK(k)
	for i := range h.g.len() {
		n := uint32(i)
		top.Offer(queue.Item{Node: n, Distance: h.distanceFunc(query, h.store.Get(n))})
	}
	return h.toResults(top.Sorted()), nil
}

func (h *HNSW) checkQuery(query []float32, k int) error {
	if h.released {
		return ErrReleased
	}
	if len(query) != h.opts.Dimension {
		return &vectorstore.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(query)}
	}
	if k <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if h.g.len() == 0 {
		return ErrEmptyIndex
	}
	return nil
}

func (h *HNSW) toResults(items []queue.Item) []Result {
	out := make([]Result, len(items))
	for i, it := range items {
		out[i] = Result{
			Handle:   it.Node,
			Label:    h.store.LabelOf(it.Node),
			Distance: it.Distance,
		}
	}
	return out
}

// Release drops the graph and the vector arena. Every later call fails
// with ErrReleased.
func (h *HNSW) Release() {
	if h.released {
		return
	}
	h.store.Release()
	h.g.release()
	h.released = true
}
