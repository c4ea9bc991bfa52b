package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	batch "github.com/stronnag/kml2cot/pkg/batch"
	geo "github.com/stronnag/kml2cot/pkg/geo"
	ledger "github.com/stronnag/kml2cot/pkg/ledger"
	options "github.com/stronnag/kml2cot/pkg/options"
)

var convertCmd = &cobra.Command{
	Use:     "convert [flags] <file|dir>...",
	Short:   "Write one CoT event file per placemark",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: resolveConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		d := &batch.Driver{Config: &options.Config, Logger: slog.Default()}
		if options.Config.Dump {
			return dump(d, args)
		}
		if options.Config.Sql != "" {
			l, err := ledger.Open(options.Config.Sql, strings.Join(os.Args, " "))
			if err != nil {
				return err
			}
			defer l.Close()
			d.Ledger = l
		}

		res, err := d.Convert(ctx, args)
		if err != nil {
			return err
		}
		var total uint64
		events := 0
		for _, r := range res {
			if r.Failed() {
				continue
			}
			summary("Source", r.Input.Source)
			summary("Events", fmt.Sprintf("%d of %d", len(r.Outputs), r.Placemarks))
			if len(r.Warnings) > 0 {
				summary("Warnings", len(r.Warnings))
			}
			if verbose || options.Config.Verbose {
				for _, m := range r.Events {
					summary("Event", fmt.Sprintf("%s %s %s", m.File, m.Type, geo.CoordFormat(m.Anchor, options.Config.Dms)))
				}
			}
			if r.Diag != "" {
				summary("Debug", r.Diag)
			}
			total += r.Bytes
			events += len(r.Outputs)
		}
		summary("Total", fmt.Sprintf("%d events, %s", events, humanize.Bytes(total)))
		show_output(options.Config.Outdir)
		return failed(res)
	},
}

// failed lists the failed files on stderr.
func failed(res []batch.FileResult) error {
	fails := batch.Failures(res)
	if len(fails) == 0 {
		return nil
	}
	for _, r := range fails {
		fmt.Fprintf(os.Stderr, "%-8.8s : %s: %v\n", "Failed", r.Input.Path, r.Err)
	}
	return fmt.Errorf("%w: %d of %d", batch.ErrFilesFailed, len(fails), len(res))
}

func dump(d *batch.Driver, args []string) error {
	inputs, err := batch.Discover(args, options.Config.Glob)
	if err != nil {
		return err
	}
	for _, in := range inputs {
		doc, warns, err := d.Parse(in)
		if err != nil {
			return err
		}
		spew.Fdump(os.Stdout, doc)
		for _, w := range warns {
			fmt.Println(w)
		}
	}
	return nil
}

func init() {
	f := convertCmd.Flags()
	c := &options.Config
	f.StringVarP(&c.Outdir, "out", "o", c.Outdir, "Output directory")
	f.StringVar(&c.Prefix, "prefix", c.Prefix, "Output file name prefix")
	f.BoolVar(&c.Force, "force", c.Force, "Repair malformed KML and drop invalid vertices")
	f.BoolVar(&c.Debug, "debug", c.Debug, "Write a .diag.yaml mapping per input")
	f.BoolVar(&c.Dump, "dump", c.Dump, "Dump the parsed documents and exit")
	f.BoolVar(&c.Dms, "dms", c.Dms, "Show positions as DMS")
	f.BoolVar(&c.StripHTML, "strip-html", c.StripHTML, "Strip HTML markup from descriptions")
	f.DurationVar(&c.Stale, "stale", c.Stale, "Event stale interval")
	f.Float64Var(&c.Simplify, "simplify", c.Simplify, "Line simplification tolerance (degrees, 0 disables)")
	f.IntVar(&c.Workers, "workers", c.Workers, "Files converted in parallel")
	f.StringVar(&c.Glob, "glob", c.Glob, "Pattern for files found in directories")
	f.StringVar(&c.Sql, "sql", c.Sql, "Record the run in this SQLite ledger")
	f.StringVar(&c.Gradient, "gradient", c.Gradient, "Colour placemarks by top folder [red,rdylgn,ylorrd]")
	f.StringVar(&c.Rebase, "rebase", c.Rebase, "Move features to lat,lon")
	rootCmd.AddCommand(convertCmd)
}
