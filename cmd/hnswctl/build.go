package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hnswlib"
)

type buildOptions struct {
	config      string
	input       string
	out         string
	maxElements int
}

func newBuildCmd(gf *globalFlags) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an index from a vector file and save it",
		Long: `Reads one vector per line from --input ("-" for stdin), inserts them
into an index configured by --config and saves the result to --out.
A line may start with "label:" to choose the label of its vector.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, gf, opts)
		},
	}
	cmd.Flags().StringVar(&opts.config, "config", "", "index configuration file (YAML)")
	cmd.Flags().StringVar(&opts.input, "input", "-", "vector file")
	cmd.Flags().StringVar(&opts.out, "out", "", "destination of the saved index")
	cmd.Flags().IntVar(&opts.maxElements, "max-elements", 0, "override max_elements of the configuration")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func runBuild(cmd *cobra.Command, gf *globalFlags, opts buildOptions) error {
	ctx := cmd.Context()

	cfg, err := hnswlib.LoadConfigFile(opts.config)
	if err != nil {
		return err
	}
	if opts.maxElements > 0 {
		cfg.MaxElements = opts.maxElements
	}

	logger, err := gf.logger(cmd, &cfg)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	records, err := readVectors(in, cfg.Dimension)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.input, err)
	}

	idx, err := cfg.NewIndex(hnswlib.WithLogger(logger))
	if err != nil {
		return err
	}
	defer idx.Close()

	start := time.Now()
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.hasLabel {
			err = idx.AddItemWithLabel(rec.vector, rec.label)
		} else {
			_, err = idx.AddItem(rec.vector)
		}
		if err != nil {
			return fmt.Errorf("insert vector %d: %w", i, err)
		}
	}
	elapsed := time.Since(start)

	loc, err := parseLocation(opts.out)
	if err != nil {
		return err
	}
	store, name, err := openStore(ctx, loc)
	if err != nil {
		return err
	}
	n, err := idx.SaveToStore(ctx, store, name, cfg.SaveOptions()...)
	if err != nil {
		return err
	}

	cmd.Printf("indexed %d vectors in %s, wrote %d bytes to %s\n", len(records), elapsed.Round(time.Millisecond), n, opts.out)
	return nil
}
