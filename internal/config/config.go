package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables read by ApplyEnv, e.g.
// MULTIPLICITY_DATA_DIR.
const EnvPrefix = "MULTIPLICITY"

// DefaultConfigPath is the path to the canonical defaults file. It carries
// the hand-maintained set of unstable systems.
const DefaultConfigPath = "config/multiplicity.defaults.json"

// Config is the root configuration for extraction and batch runs. Fields
// omitted from a file fall back to the defaults returned by the Get* methods.
type Config struct {
	// Input and output locations
	DataDir   *string `json:"data_dir,omitempty" yaml:"data_dir,omitempty" split_words:"true"`
	OutputDir *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty" split_words:"true"`
	Database  *string `json:"database,omitempty" yaml:"database,omitempty" split_words:"true"`

	// Extraction params
	SkipFailed *bool    `json:"skip_failed,omitempty" yaml:"skip_failed,omitempty" split_words:"true"`
	MinEndTime *float64 `json:"min_end_time,omitempty" yaml:"min_end_time,omitempty" split_words:"true"`

	// Cleaning params
	Multiplier      *float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty" split_words:"true"`
	LooseMultiplier *float64 `json:"loose_multiplier,omitempty" yaml:"loose_multiplier,omitempty" split_words:"true"`
	MaxPasses       *int     `json:"max_passes,omitempty" yaml:"max_passes,omitempty" split_words:"true"`
	Trace           *bool    `json:"trace,omitempty" yaml:"trace,omitempty" split_words:"true"`

	// Batch params
	Workers               *int     `json:"workers,omitempty" yaml:"workers,omitempty" split_words:"true"`
	PlotFormat            *string  `json:"plot_format,omitempty" yaml:"plot_format,omitempty" split_words:"true"` // pdf, png or svg
	HighVariationFraction *float64 `json:"high_variation_fraction,omitempty" yaml:"high_variation_fraction,omitempty" split_words:"true"`
	UnstableSystems       []string `json:"unstable_systems,omitempty" yaml:"unstable_systems,omitempty" split_words:"true"`
}

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// Load reads a Config from a .json, .yaml or .yml file.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", cleanPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides c with any MULTIPLICITY_* environment variables that
// are set. Unset variables leave the existing values alone. Lists such as
// MULTIPLICITY_UNSTABLE_SYSTEMS are comma separated.
func (c *Config) ApplyEnv() error {
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	return nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.Multiplier != nil && !(*c.Multiplier >= 0) {
		return fmt.Errorf("multiplier must be non-negative, got %f", *c.Multiplier)
	}
	if c.LooseMultiplier != nil && !(*c.LooseMultiplier >= 0) {
		return fmt.Errorf("loose_multiplier must be non-negative, got %f", *c.LooseMultiplier)
	}
	if c.MaxPasses != nil && *c.MaxPasses < 0 {
		return fmt.Errorf("max_passes must be non-negative, got %d", *c.MaxPasses)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.MinEndTime != nil && *c.MinEndTime < 0 {
		return fmt.Errorf("min_end_time must be non-negative, got %f", *c.MinEndTime)
	}
	if c.HighVariationFraction != nil {
		if f := *c.HighVariationFraction; f < 0 || f > 1 {
			return fmt.Errorf("high_variation_fraction must be between 0 and 1, got %f", f)
		}
	}
	if c.PlotFormat != nil {
		switch *c.PlotFormat {
		case "pdf", "png", "svg":
		default:
			return fmt.Errorf("plot_format must be pdf, png or svg, got %q", *c.PlotFormat)
		}
	}
	return nil
}

// GetDataDir returns the data_dir value or the default.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return "data"
	}
	return *c.DataDir
}

// GetOutputDir returns the output_dir value or the default.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "plots"
	}
	return *c.OutputDir
}

// GetDatabase returns the database path. Empty disables result storage.
func (c *Config) GetDatabase() string {
	if c.Database == nil {
		return ""
	}
	return *c.Database
}

// GetSkipFailed returns the skip_failed value or the default.
func (c *Config) GetSkipFailed() bool {
	if c.SkipFailed == nil {
		return false
	}
	return *c.SkipFailed
}

// GetMinEndTime returns the min_end_time value or the default.
func (c *Config) GetMinEndTime() float64 {
	if c.MinEndTime == nil {
		return 1e6
	}
	return *c.MinEndTime
}

// GetMultiplier returns the multiplier used on the expectation signal.
func (c *Config) GetMultiplier() float64 {
	if c.Multiplier == nil {
		return 4.0
	}
	return *c.Multiplier
}

// GetLooseMultiplier returns the loose_multiplier value or the default.
func (c *Config) GetLooseMultiplier() float64 {
	if c.LooseMultiplier == nil {
		return 15.0
	}
	return *c.LooseMultiplier
}

// GetMaxPasses returns the max_passes value. Zero means bounded by series length.
func (c *Config) GetMaxPasses() int {
	if c.MaxPasses == nil {
		return 0
	}
	return *c.MaxPasses
}

// GetTrace returns the trace value or the default.
func (c *Config) GetTrace() bool {
	if c.Trace == nil {
		return false
	}
	return *c.Trace
}

// GetWorkers returns the workers value or the number of CPUs.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetPlotFormat returns the plot_format value or the default.
func (c *Config) GetPlotFormat() string {
	if c.PlotFormat == nil || *c.PlotFormat == "" {
		return "pdf"
	}
	return *c.PlotFormat
}

// GetHighVariationFraction returns the high_variation_fraction value or the default.
func (c *Config) GetHighVariationFraction() float64 {
	if c.HighVariationFraction == nil {
		return 0.01
	}
	return *c.HighVariationFraction
}

// GetUnstableSystems returns a copy of the unstable system file names.
func (c *Config) GetUnstableSystems() []string {
	return append([]string(nil), c.UnstableSystems...)
}
