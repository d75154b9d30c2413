// Package config resolves runner settings from defaults, an optional YAML
// file, and T262_* environment variables, in that order of precedence.
// Command-line flags are applied on top by the cli package.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mstoykov/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHarness  = "harness.js"
	DefaultJobs     = 1
	DefaultLogLevel = "warn"
)

// Config holds the settings for a run.
type Config struct {
	// Harness is the JavaScript prelude prepended to every test.
	Harness string `yaml:"harness" envconfig:"T262_HARNESS"`

	// Includes is the directory that frontmatter includes are read from.
	Includes string `yaml:"includes" envconfig:"T262_INCLUDES"`

	// ExcludeFile lists extra tests to skip, merged with the built-in list.
	ExcludeFile string `yaml:"exclude_file" envconfig:"T262_EXCLUDE_FILE"`

	// NoDefaultExcludes drops the built-in exclusion list.
	NoDefaultExcludes bool `yaml:"no_default_excludes" envconfig:"T262_NO_DEFAULT_EXCLUDES"`

	Jobs    int           `yaml:"jobs" envconfig:"T262_JOBS"`
	Timeout time.Duration `yaml:"timeout" envconfig:"T262_TIMEOUT"`

	ScratchDir  string `yaml:"scratch_dir" envconfig:"T262_SCRATCH_DIR"`
	KeepScratch bool   `yaml:"keep_scratch" envconfig:"T262_KEEP_SCRATCH"`

	// DB is the SQLite run history. Empty disables recording.
	DB string `yaml:"db" envconfig:"T262_DB"`

	LogLevel string `yaml:"log_level" envconfig:"T262_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Harness:  DefaultHarness,
		Jobs:     DefaultJobs,
		LogLevel: DefaultLogLevel,
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped
// when path is empty) and the environment. lookup replaces os.LookupEnv
// when non-nil.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := envconfig.Process("", &cfg, lookup); err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if c.Harness == "" {
		return errors.New("harness path must not be empty")
	}
	if c.Jobs < 1 {
		return fmt.Errorf("jobs must be at least 1, got %d", c.Jobs)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level.
func (c Config) Level() (logrus.Level, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
