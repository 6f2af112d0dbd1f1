package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/hnswlib/distance"
	"github.com/hupe1980/hnswlib/hnsw"
	"github.com/hupe1980/hnswlib/persistence"
)

type indexInfo struct {
	Version        uint32                  `json:"version"`
	Compression    persistence.Compression `json:"compression"`
	Metric         distance.Metric         `json:"metric"`
	Dimension      uint32                  `json:"dimension"`
	Count          uint64                  `json:"count"`
	Capacity       uint64                  `json:"capacity"`
	M              uint32                  `json:"m"`
	EFConstruction uint32                  `json:"ef_construction"`
	EntryPoint     uint32                  `json:"entry_point"`
	MaxLevel       int32                   `json:"max_level"`
	NextAutoLabel  uint64                  `json:"next_auto_label"`
	Duplicates     int                     `json:"duplicates,omitempty"`
	Levels         []hnsw.LevelStats       `json:"levels,omitempty"`
}

func newInfoCmd(gf *globalFlags) *cobra.Command {
	var (
		index string
		full  bool
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the header and graph statistics of a saved index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			saved, err := openSaved(cmd.Context(), index)
			if err != nil {
				return err
			}
			h := saved.header
			_ = saved.Close()

			info := indexInfo{
				Version:        h.Version,
				Compression:    h.Compression(),
				Metric:         distance.Metric(h.Metric),
				Dimension:      h.Dimension,
				Count:          h.Count,
				Capacity:       h.Capacity,
				M:              h.M,
				EFConstruction: h.EFConstruction,
				EntryPoint:     h.EntryPoint,
				MaxLevel:       h.MaxLevel,
				NextAutoLabel:  h.NextAutoLabel,
			}

			var stats *hnsw.Stats
			if full {
				idx, err := loadIndex(cmd, gf, index, 0)
				if err != nil {
					return err
				}
				defer idx.Close()

				s, err := idx.Stats()
				if err != nil {
					return err
				}
				stats = &s
				info.Duplicates = s.Duplicates
				info.Levels = s.Levels
			}

			if done, err := gf.emit(cmd, info); done {
				return err
			}

			cmd.Printf("format version  %d\n", info.Version)
			cmd.Printf("compression     %s\n", info.Compression)
			cmd.Printf("metric          %s\n", info.Metric)
			cmd.Printf("dimension       %d\n", info.Dimension)
			cmd.Printf("vectors         %d / %d\n", info.Count, info.Capacity)
			cmd.Printf("M               %d\n", info.M)
			cmd.Printf("ef construction %d\n", info.EFConstruction)
			cmd.Printf("entry point     %d\n", info.EntryPoint)
			cmd.Printf("max level       %d\n", info.MaxLevel)
			cmd.Printf("next auto label %d\n", info.NextAutoLabel)

			if stats != nil {
				cmd.Println()
				stats.Print(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&index, "index", "", "location of the saved index")
	cmd.Flags().BoolVar(&full, "stats", false, "load the index and print per-level statistics")
	_ = cmd.MarkFlagRequired("index")
	return cmd
}
