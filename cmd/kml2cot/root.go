package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	options "github.com/stronnag/kml2cot/pkg/options"
)

var (
	verbose bool
	cfgfile string
	level   slog.LevelVar
)

var rootCmd = &cobra.Command{
	Use:   "kml2cot",
	Short: "Convert KML/KMZ features to Cursor-on-Target events",
	Long: `kml2cot turns KML and KMZ placemarks into CoT event files for TAK clients,
splits large KML documents and bundles CoT files into data packages.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			level.Set(slog.LevelDebug)
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))
		slog.SetDefault(logger)
	},
}

// resolveConfig layers the config file and $KML2COT_OPTS under the flags
// given on the command line.
func resolveConfig(cmd *cobra.Command, args []string) error {
	if err := options.Resolve(cmd.Flags(), cfgfile); err != nil {
		return err
	}
	if options.Config.Verbose {
		level.Set(slog.LevelDebug)
	}
	slog.Debug("configuration", "outdir", options.Config.Outdir, "workers", options.Config.Workers,
		"force", options.Config.Force, "stale", options.Config.Stale)
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgfile, "config", "", "Configuration file (default "+options.DefaultConfigFile()+")")
}
