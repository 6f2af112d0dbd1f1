package main

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/hnswlib"
	"github.com/hupe1980/hnswlib/codec"
)

type globalFlags struct {
	logLevel  string
	logFormat string
	output    string
}

func newRootCmd() *cobra.Command {
	var gf globalFlags

	cmd := &cobra.Command{
		Use:           "hnswctl",
		Short:         "Build, query and inspect HNSW indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "off", "log level (debug, info, warn, error, off)")
	cmd.PersistentFlags().StringVar(&gf.logFormat, "log-format", "text", "log format (text, json)")
	cmd.PersistentFlags().StringVarP(&gf.output, "output", "o", "text", "output format (text, json, go-json)")

	cmd.AddCommand(
		newBuildCmd(&gf),
		newQueryCmd(&gf),
		newInfoCmd(&gf),
	)
	return cmd
}

// logger builds the logger selected by the global flags, letting a config
// file take precedence when it sets a level.
func (gf *globalFlags) logger(cmd *cobra.Command, cfg *hnswlib.Config) (*hnswlib.Logger, error) {
	c := hnswlib.DefaultConfig()
	if cfg != nil {
		c = *cfg
	}
	if cfg == nil || cmd.Flags().Changed("log-level") || cmd.Flags().Changed("log-format") {
		c.Log = hnswlib.LogConfig{Level: gf.logLevel, Format: gf.logFormat}
	}
	return c.NewLogger(cmd.ErrOrStderr())
}

// emit writes v in the selected machine-readable format. It reports false
// for text output, which the caller renders itself.
func (gf *globalFlags) emit(cmd *cobra.Command, v any) (bool, error) {
	if gf.output == "" || gf.output == "text" {
		return false, nil
	}
	c, err := codec.ByName(gf.output)
	if err != nil {
		return true, err
	}
	return true, c.Encode(cmd.OutOrStdout(), v)
}
