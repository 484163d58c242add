package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sartorproj/mcdiag/compare"
	"github.com/sartorproj/mcdiag/sampler"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// Config is the demo configuration, loaded from YAML over DefaultConfig.
type Config struct {
	Sampler SamplerConfig `yaml:"sampler"`
	Compare CompareConfig `yaml:"compare"`
	Summary SummaryConfig `yaml:"summary"`
	Data    DataConfig    `yaml:"data"`
	Output  OutputConfig  `yaml:"output"`
	Log     LogConfig     `yaml:"log"`
}

// SamplerConfig mirrors sampler.Config.
type SamplerConfig struct {
	Method   string  `yaml:"method"`
	Draws    int     `yaml:"draws"`
	Tune     int     `yaml:"tune"`
	Chains   int     `yaml:"chains"`
	Seed     uint64  `yaml:"seed"`
	StepSize float64 `yaml:"step_size"`
	Leapfrog int     `yaml:"leapfrog"`
}

// CompareConfig mirrors compare.Config.
type CompareConfig struct {
	IC       string  `yaml:"ic"`
	Method   string  `yaml:"method"`
	BSamples int     `yaml:"b_samples"`
	Alpha    float64 `yaml:"alpha"`
}

// SummaryConfig controls the printed summaries.
type SummaryConfig struct {
	Alpha              float64 `yaml:"alpha"`
	Decimals           int     `yaml:"decimals"`
	IncludeTransformed bool    `yaml:"include_transformed"`
}

// DataConfig points at observations for the comparison models. Without a
// file, observations are simulated.
type DataConfig struct {
	File   string `yaml:"file"`
	Column string `yaml:"column"`
	N      int    `yaml:"n"` // simulated observations
}

// OutputConfig lists where results are written. Empty paths are skipped.
type OutputConfig struct {
	TraceDir string `yaml:"trace_dir"`
	SQLite   string `yaml:"sqlite"`
	JSON     string `yaml:"json"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the demo defaults.
func DefaultConfig() *Config {
	s := sampler.DefaultConfig()
	c := compare.DefaultConfig()
	return &Config{
		Sampler: SamplerConfig{
			Method:   s.Method,
			Draws:    s.Draws,
			Tune:     s.Tune,
			Chains:   s.Chains,
			Seed:     s.Seed,
			StepSize: s.StepSize,
			Leapfrog: s.Leapfrog,
		},
		Compare: CompareConfig{
			IC:       c.IC,
			Method:   c.Method,
			BSamples: c.BSamples,
			Alpha:    c.Alpha,
		},
		Summary: SummaryConfig{Alpha: 0.05, Decimals: 3},
		Data:    DataConfig{Column: "y", N: 100},
		Output: OutputConfig{
			TraceDir: "traces",
			SQLite:   "traces.db",
			JSON:     "diagnostics.json",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML file over the defaults. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// SamplerOptions returns the sampler configuration.
func (c *Config) SamplerOptions(logger *zap.Logger) *sampler.Config {
	return &sampler.Config{
		Draws:    c.Sampler.Draws,
		Tune:     c.Sampler.Tune,
		Chains:   c.Sampler.Chains,
		Seed:     c.Sampler.Seed,
		Method:   c.Sampler.Method,
		StepSize: c.Sampler.StepSize,
		Leapfrog: c.Sampler.Leapfrog,
		Logger:   logger,
	}
}

// CompareOptions returns the comparison configuration.
func (c *Config) CompareOptions(names []string, logger *zap.Logger) *compare.Config {
	return &compare.Config{
		IC:       c.Compare.IC,
		Method:   c.Compare.Method,
		BSamples: c.Compare.BSamples,
		Alpha:    c.Compare.Alpha,
		Seed:     c.Sampler.Seed,
		Names:    names,
		Logger:   logger,
	}
}

// Logger builds the zap logger described by the config.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
