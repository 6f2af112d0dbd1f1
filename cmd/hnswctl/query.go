package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/hnswlib"
)

type queryOptions struct {
	index       string
	vector      string
	k           int
	ef          int
	maxElements int
	normalized  bool
}

func newQueryCmd(gf *globalFlags) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Print the nearest neighbors of a vector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, gf, opts)
		},
	}
	cmd.Flags().StringVar(&opts.index, "index", "", "location of the saved index")
	cmd.Flags().StringVar(&opts.vector, "vector", "", "query vector, components separated by spaces or commas")
	cmd.Flags().IntVarP(&opts.k, "k", "k", 10, "number of neighbors")
	cmd.Flags().IntVar(&opts.ef, "ef", 0, "query beam width (0 keeps the default)")
	cmd.Flags().IntVar(&opts.maxElements, "max-elements", 0, "capacity of the loaded index (0 uses the stored count)")
	cmd.Flags().BoolVar(&opts.normalized, "normalized", false, "skip normalization of the query for cosine indexes")
	_ = cmd.MarkFlagRequired("index")
	_ = cmd.MarkFlagRequired("vector")
	return cmd
}

func runQuery(cmd *cobra.Command, gf *globalFlags, opts queryOptions) error {
	vec, err := parseVector(opts.vector)
	if err != nil {
		return err
	}

	idx, err := loadIndex(cmd, gf, opts.index, opts.maxElements)
	if err != nil {
		return err
	}
	defer idx.Close()

	if opts.ef > 0 {
		if err := idx.SetEF(opts.ef); err != nil {
			return err
		}
	}

	var res *hnswlib.QueryResult
	if opts.normalized {
		res, err = idx.KNNNormalizedQuery(vec, opts.k)
	} else {
		res, err = idx.KNNQuery(vec, opts.k)
	}
	if err != nil {
		return err
	}

	neighbors := make([]neighbor, res.Len())
	for i := range neighbors {
		neighbors[i].Label, neighbors[i].Distance = res.At(i)
	}
	if done, err := gf.emit(cmd, neighbors); done {
		return err
	}

	for _, n := range neighbors {
		cmd.Printf("%d %g\n", n.Label, n.Distance)
	}
	return nil
}

type neighbor struct {
	Label    uint64  `json:"label"`
	Distance float32 `json:"distance"`
}

// loadIndex loads the index at raw. A zero maxElements sizes the index to
// the stored vector count.
func loadIndex(cmd *cobra.Command, gf *globalFlags, raw string, maxElements int) (*hnswlib.Index, error) {
	logger, err := gf.logger(cmd, nil)
	if err != nil {
		return nil, err
	}

	saved, err := openSaved(cmd.Context(), raw)
	if err != nil {
		return nil, err
	}
	defer saved.Close()

	if maxElements <= 0 {
		maxElements = max(int(saved.header.Count), 1)
	}
	return hnswlib.Load(saved, maxElements, nil, hnswlib.WithLogger(logger))
}
