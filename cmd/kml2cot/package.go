package main

import (
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	datapkg "github.com/stronnag/kml2cot/pkg/datapkg"
	options "github.com/stronnag/kml2cot/pkg/options"
)

var packageCmd = &cobra.Command{
	Use:     "package [flags] <name> <cot-dir|file>...",
	Short:   "Bundle CoT files into a TAK data package",
	Args:    cobra.MinimumNArgs(2),
	PreRunE: resolveConfig,
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := datapkg.Collect(args[1:])
		if err != nil {
			return err
		}
		m, err := datapkg.Build(files, datapkg.Options{
			Name:   args[0],
			OutDir: options.Config.Outdir,
			Zip:    options.Config.Zip,
			Logger: slog.Default(),
		})
		if err != nil {
			return err
		}
		summary("Package", args[0])
		summary("UID", m.Param("uid"))
		summary("Contents", len(m.Contents))
		summary("Size", humanize.Bytes(uint64(m.Size)))
		show_output(m.Dir)
		show_output(m.Zip)
		return nil
	},
}

func init() {
	f := packageCmd.Flags()
	c := &options.Config
	f.StringVarP(&c.Outdir, "out", "o", c.Outdir, "Package directory")
	f.BoolVar(&c.Zip, "zip", c.Zip, "Also write {name}.zip")
	rootCmd.AddCommand(packageCmd)
}
