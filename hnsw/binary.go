package hnsw

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/internal/conv"
	"github.com/hupe1980/hnswlib/persistence"
	"github.com/hupe1980/hnswlib/vectorstore"
)

// WriteOptions configures WriteToWithOptions.
type WriteOptions struct {
	Compression persistence.Compression
}

// ReadOptions configures ReadFrom.
type ReadOptions struct {
	// EFSearch and RandomSeed are not persisted. Zero keeps the defaults.
	EFSearch   int
	RandomSeed int64

	// CheckHeader, if set, inspects the validated header before the body
	// is decoded.
	CheckHeader func(*persistence.FileHeader) error
}

// duplicateLevel in place of a node level marks an exact copy; the handle
// of the graph node it copies follows.
const duplicateLevel = math.MaxUint32

// preallocLimit caps slices sized from header counts before the body has
// shown that many records exist.
const preallocLimit = 1 << 16

// countingWriter tracks bytes written.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

// WriteTo implements io.WriterTo using an uncompressed body.
func (h *HNSW) WriteTo(w io.Writer) (int64, error) {
	return h.WriteToWithOptions(w, WriteOptions{})
}

// WriteToWithOptions serializes the index.
func (h *HNSW) WriteToWithOptions(w io.Writer, opts WriteOptions) (int64, error) {
	if h.released {
		return 0, ErrReleased
	}
	if !opts.Compression.Valid() {
		return 0, fmt.Errorf("hnsw: unknown compression %d", opts.Compression)
	}

	cw := &countingWriter{w: w}
	g := h.g

	header := persistence.FileHeader{
		Flags:          uint16(opts.Compression),
		Metric:         uint8(h.opts.Metric),
		Dimension:      uint32(h.opts.Dimension),
		M:              uint32(h.opts.M),
		EFConstruction: uint32(h.opts.EFConstruction),
		Capacity:       uint64(h.opts.MaxElements),
		Count:          uint64(g.len()),
		EntryPoint:     g.entryPoint,
		MaxLevel:       int32(g.maxLevel),
		LabelBase:      h.store.LabelBase(),
		NextAutoLabel:  h.store.NextAutoLabel(),
	}
	if err := persistence.WriteHeader(cw, &header); err != nil {
		return cw.n, fmt.Errorf("hnsw: write header: %w", err)
	}

	body, err := persistence.NewBodyWriter(cw, opts.Compression)
	if err != nil {
		return cw.n, err
	}
	bw := persistence.NewBinaryWriter(body, &header)

	n := g.len()
	for i := 0; i < n; i++ {
		bw.WriteUint64(h.store.LabelOf(uint32(i)))
		bw.WriteFloat32s(h.store.Get(uint32(i)))
	}
	for i := range g.nodes {
		node := &g.nodes[i]
		if node.dupOf != notDuplicate {
			bw.WriteUint32(duplicateLevel)
			bw.WriteUint32(node.dupOf)
			continue
		}
		bw.WriteUint32(uint32(node.level))
		for _, links := range node.links {
			bw.WriteUint32(uint32(len(links)))
			bw.WriteUint32s(links)
		}
	}

	if err := bw.Finish(); err != nil {
		return cw.n, fmt.Errorf("hnsw: write body: %w", err)
	}
	if err := body.Close(); err != nil {
		return cw.n, fmt.Errorf("hnsw: close body: %w", err)
	}
	return cw.n, nil
}

// ReadFrom decodes an index written by WriteTo into a new HNSW with capacity
// maxElements. Structural damage is reported as persistence.ErrCorrupt and a
// vector count above maxElements as vectorstore.ErrCapacityExceeded.
func ReadFrom(r io.Reader, maxElements int, optFns ...func(o *ReadOptions)) (*HNSW, error) {
	var ro ReadOptions
	for _, fn := range optFns {
		fn(&ro)
	}

	header, err := persistence.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}
	if ro.CheckHeader != nil {
		if err := ro.CheckHeader(header); err != nil {
			return nil, err
		}
	}
	if header.Count > uint64(maxElements) {
		return nil, fmt.Errorf("%w: file holds %d vectors, capacity %d", vectorstore.ErrCapacityExceeded, header.Count, maxElements)
	}

	opts := DefaultOptions
	opts.Dimension = int(header.Dimension)
	opts.Metric = distance.Metric(header.Metric)
	opts.MaxElements = maxElements
	opts.M = int(header.M)
	opts.EFConstruction = int(header.EFConstruction)
	opts.LabelBase = header.LabelBase
	if ro.EFSearch > 0 {
		opts.EFSearch = ro.EFSearch
	}
	if ro.RandomSeed != 0 {
		opts.RandomSeed = ro.RandomSeed
	}
	if err := opts.validate(); err != nil {
		return nil, persistence.Corruptf("%v", err)
	}

	body, err := persistence.NewBodyReader(r, header.Compression())
	if err != nil {
		return nil, err
	}
	defer body.Close()
	br := persistence.NewBinaryReader(body, header)

	count, err := conv.To[int](header.Count)
	if err != nil {
		return nil, persistence.Corruptf("vector count: %v", err)
	}
	dim := opts.Dimension

	// Slices grow with the records actually read, so a forged count fails on
	// truncation before it can drive a large allocation.
	labels := make([]uint64, 0, min(count, preallocLimit))
	data := make([]float32, 0, min(count, preallocLimit/dim+1)*dim)
	vec := make([]float32, dim)
	for i := 0; i < count; i++ {
		labels = append(labels, br.ReadUint64())
		br.ReadFloat32s(vec)
		if err := br.Err(); err != nil {
			return nil, err
		}
		data = append(data, vec...)
	}

	maxConns := func(layer int) int {
		if layer == 0 {
			return 2 * opts.M
		}
		return opts.M
	}

	nodes := make([]node, 0, min(count, preallocLimit))
	for i := 0; i < count; i++ {
		level := br.ReadUint32()
		if err := br.Err(); err != nil {
			return nil, err
		}

		if level == duplicateLevel {
			primary := br.ReadUint32()
			if err := br.Err(); err != nil {
				return nil, err
			}
			if int(primary) >= i || nodes[primary].dupOf != notDuplicate {
				return nil, persistence.Corruptf("node %d copies invalid node %d", i, primary)
			}
			if !slices.Equal(data[i*dim:(i+1)*dim], data[int(primary)*dim:(int(primary)+1)*dim]) {
				return nil, persistence.Corruptf("node %d differs from node %d it copies", i, primary)
			}
			nodes = append(nodes, node{links: [][]uint32{nil}, dupOf: primary})
			continue
		}

		if int64(level) > int64(header.MaxLevel) {
			return nil, persistence.Corruptf("node %d level %d above max level %d", i, level, header.MaxLevel)
		}

		links := make([][]uint32, level+1)
		for l := range links {
			cnt := br.ReadUint32()
			if err := br.Err(); err != nil {
				return nil, err
			}
			if int(cnt) > maxConns(l) {
				return nil, persistence.Corruptf("node %d layer %d has %d links, limit %d", i, l, cnt, maxConns(l))
			}
			links[l] = make([]uint32, cnt, maxConns(l)+1)
			br.ReadUint32s(links[l])
			if err := br.Err(); err != nil {
				return nil, err
			}
			for _, nb := range links[l] {
				if int(nb) >= count {
					return nil, persistence.Corruptf("node %d links to unknown handle %d", i, nb)
				}
				if int(nb) == i {
					return nil, persistence.Corruptf("node %d links to itself", i)
				}
			}
		}
		nodes = append(nodes, node{level: int(level), links: links, dupOf: notDuplicate})
	}
	if err := br.Finish(); err != nil {
		return nil, err
	}

	store, err := vectorstore.Restore(dim, maxElements, header.LabelBase, header.NextAutoLabel, labels, data)
	if err != nil {
		if errors.Is(err, vectorstore.ErrDuplicateLabel) {
			return nil, persistence.Corruptf("%v", err)
		}
		return nil, err
	}

	h := newWithStore(opts, store)
	if err := h.restoreGraph(nodes, header); err != nil {
		return nil, err
	}
	return h, nil
}

func validateHeader(header *persistence.FileHeader) error {
	if !distance.Metric(header.Metric).Valid() {
		return persistence.Corruptf("unknown metric %d", header.Metric)
	}
	if header.Dimension == 0 || header.Dimension > MaxDimension {
		return persistence.Corruptf("dimension %d out of range [1, %d]", header.Dimension, MaxDimension)
	}
	if _, err := conv.To[uint32](header.Count); err != nil {
		return persistence.Corruptf("vector count: %v", err)
	}
	if header.MaxLevel < -1 || header.MaxLevel > maxLevelBound {
		return persistence.Corruptf("max level %d out of range", header.MaxLevel)
	}
	if (header.Count == 0) != (header.MaxLevel == -1) {
		return persistence.Corruptf("max level %d inconsistent with %d vectors", header.MaxLevel, header.Count)
	}
	if header.Count > 0 && uint64(header.EntryPoint) >= header.Count {
		return persistence.Corruptf("entry point %d out of range", header.EntryPoint)
	}
	return nil
}

// restoreGraph installs decoded nodes and checks that every link stays on
// a layer its target takes part in.
func (h *HNSW) restoreGraph(nodes []node, header *persistence.FileHeader) error {
	g := h.g
	for i := range nodes {
		g.nodes = append(g.nodes, nodes[i])
		if p := nodes[i].dupOf; p != notDuplicate {
			g.markDuplicate(uint32(i), p)
			continue
		}
		g.markLayers(uint32(i), nodes[i].level)
	}

	for i := range g.nodes {
		for l, links := range g.nodes[i].links {
			for _, nb := range links {
				if !g.onLayer(nb, l) {
					return persistence.Corruptf("node %d links to %d on layer %d it is not part of", i, nb, l)
				}
			}
		}
	}

	if len(g.nodes) == 0 {
		return nil
	}
	if g.isDuplicate(header.EntryPoint) || g.levelOf(header.EntryPoint) != int(header.MaxLevel) {
		return persistence.Corruptf("entry point %d is not on top layer %d", header.EntryPoint, header.MaxLevel)
	}
	g.entryPoint = header.EntryPoint
	g.maxLevel = int(header.MaxLevel)
	return nil
}
