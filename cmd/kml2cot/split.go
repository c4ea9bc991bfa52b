package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	batch "github.com/stronnag/kml2cot/pkg/batch"
	options "github.com/stronnag/kml2cot/pkg/options"
)

var splitCmd = &cobra.Command{
	Use:     "split [flags] <file|dir>...",
	Short:   "Split KML documents into smaller KML or KMZ files",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: resolveConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		d := &batch.Driver{Config: &options.Config, Logger: slog.Default()}
		res, err := d.Split(ctx, args)
		if err != nil {
			return err
		}
		for _, r := range res {
			if r.Failed() {
				continue
			}
			summary("Source", r.Input.Source)
			summary("Chunks", len(r.Outputs))
			summary("Size", humanize.Bytes(r.Bytes))
			for _, o := range r.Outputs {
				show_output(o)
			}
		}
		return failed(res)
	},
}

func init() {
	f := splitCmd.Flags()
	c := &options.Config
	f.IntVar(&c.MaxPerFile, "max", c.MaxPerFile, "Maximum placemarks per output file")
	f.BoolVar(&c.ByFolder, "by-folder", c.ByFolder, "Start a new file at each top level folder")
	f.BoolVar(&c.Kmz, "kmz", c.Kmz, "Write KMZ")
	f.StringVarP(&c.Outdir, "out", "o", c.Outdir, "Output directory")
	f.BoolVar(&c.Force, "force", c.Force, "Repair malformed KML and drop invalid vertices")
	f.IntVar(&c.Workers, "workers", c.Workers, "Files split in parallel")
	f.StringVar(&c.Glob, "glob", c.Glob, "Pattern for files found in directories")
	rootCmd.AddCommand(splitCmd)
}
