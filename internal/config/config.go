// Package config loads the training configuration, layering sources with
// koanf. Precedence from highest to lowest: command-line flags, SCRAWL_
// environment variables, a scrawl.yaml config file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config file names searched in the working directory.
const (
	FileName    = "scrawl.yaml"
	FileNameAlt = "scrawl.yml"
)

// EnvPrefix namespaces the environment variables, e.g. SCRAWL_EPOCHS.
const EnvPrefix = "SCRAWL_"

// Config holds every tunable of the pipeline.
type Config struct {
	DataDir        string  `koanf:"data_dir"`
	BaseURL        string  `koanf:"base_url"`
	CheckpointPath string  `koanf:"checkpoint_path"`
	Epochs         int     `koanf:"epochs"`
	BatchSize      int     `koanf:"batch_size"`
	ValBatchSize   int     `koanf:"val_batch_size"`
	ValRatio       float64 `koanf:"val_ratio"`
	Seed           int64   `koanf:"seed"`
	Limit          int     `koanf:"limit"`
	Optimizer      string  `koanf:"optimizer"`
	LR             float64 `koanf:"lr"`
	Momentum       float64 `koanf:"momentum"`
	Beta1          float64 `koanf:"beta1"`
	Beta2          float64 `koanf:"beta2"`
	Rho            float64 `koanf:"rho"`
	Eps            float64 `koanf:"eps"`
	LogLevel       string  `koanf:"log_level"`
}

// defaults mirror the reference training recipe: Adadelta over 12 epochs
// of batch-128 steps, with a tenth of the training split held out.
var defaults = map[string]interface{}{
	"data_dir":        "data",
	"base_url":        "",
	"checkpoint_path": "scrawl-cnn.scrw",
	"epochs":          12,
	"batch_size":      128,
	"val_batch_size":  256,
	"val_ratio":       0.1,
	"seed":            42,
	"limit":           0, // 0 uses the full dataset
	"optimizer":       "adadelta",
	"lr":              0.0, // 0 takes the optimizer's own default
	"momentum":        0.0,
	"beta1":           0.0,
	"beta2":           0.0,
	"rho":             0.0,
	"eps":             0.0,
	"log_level":       "info",
}

// Load builds the configuration. cfgFile may be empty, in which case
// scrawl.yaml or scrawl.yml in the working directory is used if present.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if cfgFile == "" {
		cfgFile = findConfigFile()
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", cfgFile, err)
		}
	}

	// SCRAWL_BATCH_SIZE -> batch_size
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Epochs <= 0 {
		return fmt.Errorf("config: epochs must be positive, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.ValRatio < 0 || c.ValRatio >= 1 {
		return fmt.Errorf("config: val_ratio %v outside [0, 1)", c.ValRatio)
	}
	if c.Limit < 0 {
		return fmt.Errorf("config: limit must not be negative, got %d", c.Limit)
	}
	if c.Rho < 0 || c.Rho >= 1 {
		return fmt.Errorf("config: rho %v outside [0, 1)", c.Rho)
	}
	switch c.Optimizer {
	case "sgd", "adam", "adadelta":
	default:
		return fmt.Errorf("config: unknown optimizer %q (want sgd, adam, or adadelta)", c.Optimizer)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

func findConfigFile() string {
	for _, name := range []string{FileName, FileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
