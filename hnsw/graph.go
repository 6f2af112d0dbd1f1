package hnsw

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
)

// notDuplicate marks a node that takes part in the graph.
const notDuplicate = math.MaxUint32

// node is the graph record of one handle.
// links[l] holds the neighbor handles on layer l, for l in [0, level].
// A duplicate has no links and dupOf names the graph node holding the same
// vector.
type node struct {
	level int
	links [][]uint32
	dupOf uint32
}

// graph is the multi-layer proximity graph.
type graph struct {
	nodes []node

	// layers[l] contains every linked handle whose level is at least l.
	layers []*roaring.Bitmap

	// dups maps a graph node to the handles of its exact copies, which are
	// kept out of the layers.
	dups   map[uint32][]uint32
	dupSet *roaring.Bitmap

	entryPoint uint32
	maxLevel   int // -1 while the graph is empty
}

func newGraph(capacity int) *graph {
	return &graph{
		nodes:    make([]node, 0, capacity),
		dups:     make(map[uint32][]uint32),
		dupSet:   roaring.New(),
		maxLevel: -1,
	}
}

// addNode appends a node with empty neighbor lists and returns its handle.
// Lists are allocated with room for one overflow entry before pruning.
func (g *graph) addNode(level, mMax, mMax0 int) uint32 {
	h := uint32(len(g.nodes))
	links := make([][]uint32, level+1)
	for l := range links {
		capacity := mMax
		if l == 0 {
			capacity = mMax0
		}
		links[l] = make([]uint32, 0, capacity+1)
	}
	g.nodes = append(g.nodes, node{level: level, links: links, dupOf: notDuplicate})
	g.markLayers(h, level)
	return h
}

// addDuplicate appends an unlinked copy of primary and returns its handle.
func (g *graph) addDuplicate(primary uint32) uint32 {
	h := uint32(len(g.nodes))
	g.nodes = append(g.nodes, node{links: [][]uint32{nil}, dupOf: primary})
	g.markDuplicate(h, primary)
	return h
}

func (g *graph) markDuplicate(h, primary uint32) {
	g.dups[primary] = append(g.dups[primary], h)
	g.dupSet.Add(h)
}

func (g *graph) isDuplicate(h uint32) bool { return g.nodes[h].dupOf != notDuplicate }

// duplicates returns the copies attached to h in insertion order.
func (g *graph) duplicates(h uint32) []uint32 { return g.dups[h] }

func (g *graph) duplicateCount() int { return int(g.dupSet.GetCardinality()) }

func (g *graph) markLayers(h uint32, level int) {
	for len(g.layers) <= level {
		g.layers = append(g.layers, roaring.New())
	}
	for l := 0; l <= level; l++ {
		g.layers[l].Add(h)
	}
}

func (g *graph) len() int { return len(g.nodes) }

func (g *graph) levelOf(h uint32) int { return g.nodes[h].level }

func (g *graph) neighbors(h uint32, layer int) []uint32 {
	n := &g.nodes[h]
	if layer > n.level {
		return nil
	}
	return n.links[layer]
}

func (g *graph) setNeighbors(h uint32, layer int, neighbors []uint32) {
	g.nodes[h].links[layer] = append(g.nodes[h].links[layer][:0], neighbors...)
}

// onLayer reports whether h takes part in layer.
func (g *graph) onLayer(h uint32, layer int) bool {
	if layer >= len(g.layers) {
		return false
	}
	return g.layers[layer].Contains(h)
}

// layerSize returns the number of nodes on layer.
func (g *graph) layerSize(layer int) int {
	if layer >= len(g.layers) {
		return 0
	}
	return int(g.layers[layer].GetCardinality())
}

func (g *graph) release() {
	g.nodes = nil
	g.layers = nil
	g.dups = nil
	g.dupSet = roaring.New()
	g.maxLevel = -1
}
