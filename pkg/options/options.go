package options

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/stronnag/kml2cot/pkg/geo"
	"github.com/stronnag/kml2cot/pkg/styles"
	"github.com/stronnag/kml2cot/pkg/types"
)

const (
	EnvOpts    = "KML2COT_OPTS"
	ConfigName = "kml2cot.yaml"
)

type TypeConfig struct {
	Point   string `yaml:"point"`
	Line    string `yaml:"line"`
	Polygon string `yaml:"polygon"`
	// Keywords refine the type when a style id, or an extended data value
	// under a key containing "type", contains the keyword.
	Keywords map[string]map[string]string `yaml:"keywords"`
}

type HowConfig struct {
	Point string `yaml:"point"`
	Shape string `yaml:"shape"`
}

type ColourConfig struct {
	Point  string  `yaml:"point"`
	Stroke string  `yaml:"stroke"`
	Fill   string  `yaml:"fill"`
	Line   float64 `yaml:"line_weight"`
	Poly   float64 `yaml:"polygon_weight"`
}

type Configuration struct {
	Outdir     string        `yaml:"outdir"`
	Prefix     string        `yaml:"prefix"`
	Force      bool          `yaml:"force"`
	Debug      bool          `yaml:"debug"`
	Dump       bool          `yaml:"-"`
	Dms        bool          `yaml:"dms"`
	StripHTML  bool          `yaml:"strip_html"`
	Stale      time.Duration `yaml:"stale"`
	Simplify   float64       `yaml:"simplify"`
	Workers    int           `yaml:"workers"`
	Glob       string        `yaml:"glob"`
	Sql        string        `yaml:"sql"`
	Rebase     string        `yaml:"rebase"`
	Gradient   string        `yaml:"gradient"`
	MaxPerFile int           `yaml:"max_per_file"`
	ByFolder   bool          `yaml:"by_folder"`
	Kmz        bool          `yaml:"kmz"`
	Zip        bool          `yaml:"zip"`
	Types      TypeConfig    `yaml:"types"`
	How        HowConfig     `yaml:"how"`
	Colours    ColourConfig  `yaml:"colours"`
	Verbose    bool          `yaml:"verbose"`
}

var Config = Defaults()

func Defaults() Configuration {
	return Configuration{
		Stale:      time.Hour,
		Workers:    4,
		Glob:       "**/*.{kml,kmz}",
		MaxPerFile: 100,
		Types: TypeConfig{
			Point:   "a-u-G",
			Line:    "u-d-f",
			Polygon: "u-d-r",
			Keywords: map[string]map[string]string{
				"point":   {"marker": "a-u-G", "pin": "b-m-p-s-m", "icon": "a-u-G"},
				"line":    {"route": "b-m-r", "track": "u-d-f", "extrude": "u-d-f"},
				"polygon": {"shape": "u-d-r", "building": "a-h-S"},
			},
		},
		How: HowConfig{Point: "h-g-i-g-o", Shape: "h-e"},
		Colours: ColourConfig{
			Point:  "#ffffff",
			Stroke: "#ffffff",
			Fill:   "#ffffff96",
			Line:   4.0,
			Poly:   3.0,
		},
	}
}

func DefaultConfigFile() string {
	return filepath.Join(types.GetConfigDir(), ConfigName)
}

// ReadFile overlays a YAML file on c. A missing file is only an error when
// required is set.
func (c *Configuration) ReadFile(fn string, required bool) error {
	data, err := os.ReadFile(fn)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config %s: %w", fn, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return &types.ParseError{Kind: types.InvalidConfiguration, Source: fn, Message: "yaml", Err: err}
	}
	return nil
}

// ReadEnv applies the flags held in $KML2COT_OPTS.
func (c *Configuration) ReadEnv(defs string) error {
	var parts []string
	for _, p := range strings.Split(defs, " ") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	envflags := flag.NewFlagSet("$"+EnvOpts, flag.ContinueOnError)
	envflags.SetOutput(os.Stderr)
	envflags.BoolVar(&c.Force, "force", c.Force, "force")
	envflags.BoolVar(&c.Debug, "debug", c.Debug, "debug")
	envflags.BoolVar(&c.Dms, "dms", c.Dms, "dms")
	envflags.BoolVar(&c.StripHTML, "strip-html", c.StripHTML, "strip-html")
	envflags.BoolVar(&c.Kmz, "kmz", c.Kmz, "kmz")
	envflags.BoolVar(&c.Verbose, "verbose", c.Verbose, "verbose")
	envflags.DurationVar(&c.Stale, "stale", c.Stale, "stale")
	envflags.IntVar(&c.Workers, "workers", c.Workers, "workers")
	envflags.StringVar(&c.Gradient, "gradient", c.Gradient, "gradient")
	envflags.StringVar(&c.Outdir, "outdir", c.Outdir, "outdir")
	if err := envflags.Parse(parts); err != nil {
		return types.ConfigError("$%s: %v", EnvOpts, err)
	}
	return nil
}

// Resolve rebuilds Config as defaults < config file < $KML2COT_OPTS <
// command line. The command line flags must be bound to Config's fields.
func Resolve(flags *pflag.FlagSet, cfgfile string) error {
	changed := map[string]string{}
	flags.Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	c := Defaults()
	if cfgfile != "" {
		if err := c.ReadFile(cfgfile, true); err != nil {
			return err
		}
	} else if err := c.ReadFile(DefaultConfigFile(), false); err != nil {
		return err
	}
	if err := c.ReadEnv(os.Getenv(EnvOpts)); err != nil {
		return err
	}
	Config = c

	for k, v := range changed {
		if err := flags.Set(k, v); err != nil {
			return types.ConfigError("--%s: %v", k, err)
		}
	}
	return Config.Validate()
}

// Validate reports the first unusable setting as InvalidConfiguration.
func (c *Configuration) Validate() error {
	switch {
	case c.MaxPerFile <= 0:
		return types.ConfigError("max per file must be positive, got %d", c.MaxPerFile)
	case c.Stale <= 0:
		return types.ConfigError("stale duration must be positive, got %s", c.Stale)
	case c.Workers <= 0:
		return types.ConfigError("workers must be positive, got %d", c.Workers)
	case c.Simplify < 0:
		return types.ConfigError("simplify epsilon must not be negative, got %g", c.Simplify)
	case c.Types.Point == "" || c.Types.Line == "" || c.Types.Polygon == "":
		return types.ConfigError("every geometry needs a default CoT type")
	case c.How.Point == "" || c.How.Shape == "":
		return types.ConfigError("how values must not be empty")
	}
	for k := range c.Types.Keywords {
		if _, err := types.ParseGeometryKind(k); err != nil {
			return types.ConfigError("type keywords: %v", err)
		}
	}
	for _, s := range []string{c.Colours.Point, c.Colours.Stroke, c.Colours.Fill} {
		if _, err := styles.ParseCSS(s); err != nil {
			return types.ConfigError("%v", err)
		}
	}
	if c.Gradient != "" {
		if _, err := styles.NewPalette(c.Gradient); err != nil {
			return err
		}
	}
	if c.Rebase != "" {
		if _, err := geo.NewRebaser(c.Rebase); err != nil {
			return err
		}
	}
	return nil
}
