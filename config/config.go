// Package config loads run parameters from an optional YAML document and
// lets every field be overridden by command-line flags: a YAML base, with
// flags for the knobs an operator actually wants to touch per run.
package config

import (
	"flag"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"stencil/decomp"
	"stencil/errs"
	"stencil/pattern"
)

// Config holds every run parameter from the CLI surface. Field tags carry
// both the viper/mapstructure key and the yaml key FromYAML's final decode
// uses, since yaml.v3's default (lowercased field name, no underscores)
// would otherwise silently miss the multi-word options.
type Config struct {
	Nx           int    `mapstructure:"nx" yaml:"nx"`
	Ny           int    `mapstructure:"ny" yaml:"ny"`
	Steps        int    `mapstructure:"steps" yaml:"steps"`
	Seed         int64  `mapstructure:"seed" yaml:"seed"`
	Pattern      string `mapstructure:"pattern" yaml:"pattern"`
	Decomp       string `mapstructure:"decomp" yaml:"decomp"`
	OutputDir    string `mapstructure:"output_dir" yaml:"output_dir"`
	SaveInterval int    `mapstructure:"save_interval" yaml:"save_interval"`
	Benchmark    bool   `mapstructure:"benchmark" yaml:"benchmark"`
}

// Defaults returns the CLI surface's documented default values.
func Defaults() Config {
	return Config{
		Nx:           16384,
		Ny:           16384,
		Steps:        2000,
		Seed:         42,
		Pattern:      "glider_gun",
		Decomp:       "1d",
		OutputDir:    "snapshots",
		SaveInterval: 100,
		Benchmark:    false,
	}
}

// FromYAML loads a Config from a YAML file, starting from Defaults and
// overwriting only the fields the document sets. There was no strong reason
// to route this through viper rather than yaml.Unmarshal directly onto
// Defaults, other than following the conventional vp.ReadInConfig +
// Unmarshal loader shape.
func FromYAML(path string) (Config, error) {
	cfg := Defaults()

	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return cfg, errs.Configf("config.FromYAML", "read %s: %v", path, err)
	}

	raw := map[string]any{}
	if err := vp.Unmarshal(&raw); err != nil {
		return cfg, errs.Configf("config.FromYAML", "unmarshal %s: %v", path, err)
	}

	merged, err := yaml.Marshal(raw)
	if err != nil {
		return cfg, errs.Configf("config.FromYAML", "remarshal %s: %v", path, err)
	}
	if err := yaml.Unmarshal(merged, &cfg); err != nil {
		return cfg, errs.Configf("config.FromYAML", "decode %s: %v", path, err)
	}
	return cfg, nil
}

// RegisterFlags binds every Config field to a flag.FlagSet rooted at cfg's
// current values, so a YAML-loaded Config can be further overridden by CLI
// flags. Call Parse on fs after RegisterFlags, then read cfg back;
// flag.Var-style binding means cfg's fields update in place.
func RegisterFlags(fs *flag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.Nx, "nx", cfg.Nx, "global grid width")
	fs.IntVar(&cfg.Ny, "ny", cfg.Ny, "global grid height")
	fs.IntVar(&cfg.Steps, "steps", cfg.Steps, "generations to advance")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "RNG seed for random initialization")
	fs.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "one of glider_gun, random, glider, r_pentomino")
	fs.StringVar(&cfg.Decomp, "decomp", cfg.Decomp, "one of 1d, 2d")
	fs.StringVar(&cfg.OutputDir, "output_dir", cfg.OutputDir, "destination for snapshot files")
	fs.IntVar(&cfg.SaveInterval, "save_interval", cfg.SaveInterval, "snapshot every N steps; 0 disables intermediate snapshots")
	fs.BoolVar(&cfg.Benchmark, "benchmark", cfg.Benchmark, "emit machine-readable timing lines")
}

// Validate checks the fields that would otherwise surface as a cryptic
// failure deep inside decomp or pattern, returning an errs.Config error that
// aborts all ranks at startup per the propagation policy.
func (c Config) Validate() error {
	if c.Nx <= 0 || c.Ny <= 0 {
		return errs.Configf("Config.Validate", "nx and ny must be positive, got %dx%d", c.Nx, c.Ny)
	}
	if c.Steps < 0 {
		return errs.Configf("Config.Validate", "steps must be non-negative, got %d", c.Steps)
	}
	if c.SaveInterval < 0 {
		return errs.Configf("Config.Validate", "save_interval must be non-negative, got %d", c.SaveInterval)
	}
	if _, err := pattern.ParseKind(c.Pattern); err != nil {
		return errs.Configf("Config.Validate", "%v", err)
	}
	if c.Decomp != "1d" && c.Decomp != "2d" {
		return errs.Configf("Config.Validate", "decomp must be one of 1d, 2d, got %q", c.Decomp)
	}
	return nil
}

// Layout maps the CLI's decomp string onto a decomp.Layout.
func (c Config) Layout() decomp.Layout {
	if c.Decomp == "2d" {
		return decomp.Cart2D
	}
	return decomp.Row1D
}
