package hnsw

import (
	"fmt"
	"io"

	"github.com/hupe1980/hnswlib/distance"
)

// LevelStats describes one layer of the graph.
type LevelStats struct {
	Level int
	// Nodes is the number of nodes present on the layer.
	Nodes int
	// Connections is the total number of directed links on the layer.
	Connections    int
	AvgConnections float64
}

// Stats describes the shape of the graph.
type Stats struct {
	Count          int
	Capacity       int
	Dimension      int
	Metric         distance.Metric
	M              int
	MaxM0          int
	EFConstruction int
	EFSearch       int
	LevelMult      float64
	EntryPoint     uint32
	MaxLevel       int
	// Duplicates counts vectors stored as exact copies of a graph node.
	// They are part of Count but of no layer.
	Duplicates    int
	NextAutoLabel uint64
	Levels        []LevelStats
}

// Stats returns statistics about the HNSW graph.
func (h *HNSW) Stats() Stats {
	g := h.g
	s := Stats{
		Count:          g.len(),
		Capacity:       h.opts.MaxElements,
		Dimension:      h.opts.Dimension,
		Metric:         h.opts.Metric,
		M:              h.maxConnectionsPerLayer,
		MaxM0:          h.maxConnectionsLayer0,
		EFConstruction: h.opts.EFConstruction,
		EFSearch:       h.opts.EFSearch,
		LevelMult:      h.layerMultiplier,
		EntryPoint:     g.entryPoint,
		MaxLevel:       g.maxLevel,
		Duplicates:     g.duplicateCount(),
		NextAutoLabel:  h.NextAutoLabel(),
	}
	if g.maxLevel < 0 {
		return s
	}

	s.Levels = make([]LevelStats, g.maxLevel+1)
	for l := range s.Levels {
		s.Levels[l].Level = l
		s.Levels[l].Nodes = g.layerSize(l)
	}
	for i := range g.nodes {
		n := &g.nodes[i]
		for l := 0; l <= n.level; l++ {
			s.Levels[l].Connections += len(n.links[l])
		}
	}
	for l := range s.Levels {
		if s.Levels[l].Nodes > 0 {
			s.Levels[l].AvgConnections = float64(s.Levels[l].Connections) / float64(s.Levels[l].Nodes)
		}
	}
	return s
}

// Print writes a human readable report of the statistics.
func (s Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "Options:")
	fmt.Fprintf(w, "\tmetric = %s\n", s.Metric)
	fmt.Fprintf(w, "\tdimension = %d\n", s.Dimension)
	fmt.Fprintf(w, "\tM = %d\n", s.M)
	fmt.Fprintf(w, "\tefConstruction = %d\n", s.EFConstruction)
	fmt.Fprintf(w, "\tefSearch = %d\n\n", s.EFSearch)

	fmt.Fprintln(w, "Parameters:")
	fmt.Fprintf(w, "\tmmax = %d\n", s.M)
	fmt.Fprintf(w, "\tmmax0 = %d\n", s.MaxM0)
	fmt.Fprintf(w, "\tep = %d\n", s.EntryPoint)
	fmt.Fprintf(w, "\tmaxLevel = %d\n", s.MaxLevel)
	fmt.Fprintf(w, "\tml = %f\n\n", s.LevelMult)

	fmt.Fprintf(w, "Number of nodes = %d / %d\n", s.Count, s.Capacity)
	fmt.Fprintf(w, "Duplicates = %d\n", s.Duplicates)
	fmt.Fprintf(w, "Next auto label = %d\n\n", s.NextAutoLabel)

	fmt.Fprintln(w, "Node Levels:")
	for _, l := range s.Levels {
		fmt.Fprintf(w, "\tLevel %d:\n", l.Level)
		fmt.Fprintf(w, "\t\tNumber of nodes: %d\n", l.Nodes)
		fmt.Fprintf(w, "\t\tNumber of connections: %d\n", l.Connections)
		fmt.Fprintf(w, "\t\tAverage connections per node: %.2f\n", l.AvgConnections)
	}
}
