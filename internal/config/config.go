package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/harrison/eprimestat/internal/logframe"
)

// ParserConfig tunes frame parser diagnostics.
type ParserConfig struct {
	// ReportUnterminated reports a block still open at end of input
	ReportUnterminated bool `yaml:"report_unterminated" toml:"report_unterminated"`

	// WarnDuplicateKeys reports keys repeated within one block
	WarnDuplicateKeys bool `yaml:"warn_duplicate_keys" toml:"warn_duplicate_keys"`
}

// HistoryConfig represents batch history configuration
type HistoryConfig struct {
	// Enabled records every batch in the history database
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// DBPath is the history database path; empty means $EPRIMESTAT_HOME/history.db
	DBPath string `yaml:"db_path" toml:"db_path"`
}

// CacheConfig represents parsed-frame cache configuration
type CacheConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`

	// Dir is the cache directory; empty means the user cache dir
	Dir string `yaml:"dir" toml:"dir"`
}

// Config represents eprimestat configuration options
type Config struct {
	// MaxConcurrency is the maximum number of concurrently processed files (0 = unlimited)
	MaxConcurrency int `yaml:"max_concurrency" toml:"max_concurrency"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// LogDir is the directory where run logs will be written; empty disables them
	LogDir string `yaml:"log_dir" toml:"log_dir"`

	// Encoding of input logs: auto, utf-8, utf-16le, utf-16be
	Encoding string `yaml:"encoding" toml:"encoding"`

	// Extension selects input files during target resolution
	Extension string `yaml:"extension" toml:"extension"`

	// Recursive descends into sub-directories of directory targets
	Recursive bool `yaml:"recursive" toml:"recursive"`

	// SkipHandled skips inputs whose detail table already exists
	SkipHandled bool `yaml:"skip_handled" toml:"skip_handled"`

	// WriteDetails writes a per-file detail table
	WriteDetails bool `yaml:"write_details" toml:"write_details"`

	// OutputDir receives detail tables; empty writes them beside the input
	OutputDir string `yaml:"output_dir" toml:"output_dir"`

	// SummaryPath is the summary table path; empty means <strategy>-summary.csv
	SummaryPath string `yaml:"summary_path" toml:"summary_path"`

	// FailFast aborts the batch on the first per-file failure
	FailFast bool `yaml:"fail_fast" toml:"fail_fast"`

	// ReportPath, when set, receives an HTML batch report
	ReportPath string `yaml:"report_path" toml:"report_path"`

	// MetricsPath, when set, receives a Prometheus textfile
	MetricsPath string `yaml:"metrics_path" toml:"metrics_path"`

	Parser  ParserConfig  `yaml:"parser" toml:"parser"`
	History HistoryConfig `yaml:"history" toml:"history"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency: 0, // Unlimited
		LogLevel:       "info",
		LogDir:         filepath.Join(".eprimestat", "logs"),
		Encoding:       string(logframe.EncodingAuto),
		Extension:      ".txt",
		WriteDetails:   true,
		History: HistoryConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// Files ending in .toml are decoded as TOML, anything else as YAML.
// Keys present in the file override defaults, including explicit false.
// If the file doesn't exist, returns default configuration without error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// LoadConfigFromDir loads .eprimestat/config.yaml (or config.toml) in dir.
// If neither exists, returns default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	base := filepath.Join(dir, ".eprimestat")
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		path := filepath.Join(base, name)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}
	return DefaultConfig(), nil
}

// FlagOverrides carries CLI flag values. Nil fields were not set on the
// command line and leave the configuration untouched.
type FlagOverrides struct {
	MaxConcurrency *int
	LogLevel       *string
	LogDir         *string
	Encoding       *string
	Extension      *string
	Recursive      *bool
	SkipHandled    *bool
	WriteDetails   *bool
	OutputDir      *string
	SummaryPath    *string
	FailFast       *bool
	ReportPath     *string
	MetricsPath    *string
	NoHistory      *bool
	Cache          *bool
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(f FlagOverrides) {
	setInt(&c.MaxConcurrency, f.MaxConcurrency)
	setString(&c.LogLevel, f.LogLevel)
	setString(&c.LogDir, f.LogDir)
	setString(&c.Encoding, f.Encoding)
	setString(&c.Extension, f.Extension)
	setBool(&c.Recursive, f.Recursive)
	setBool(&c.SkipHandled, f.SkipHandled)
	setBool(&c.WriteDetails, f.WriteDetails)
	setString(&c.OutputDir, f.OutputDir)
	setString(&c.SummaryPath, f.SummaryPath)
	setBool(&c.FailFast, f.FailFast)
	setString(&c.ReportPath, f.ReportPath)
	setString(&c.MetricsPath, f.MetricsPath)
	if f.NoHistory != nil {
		c.History.Enabled = !*f.NoHistory
	}
	setBool(&c.Cache.Enabled, f.Cache)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if _, err := logframe.ParseEncoding(c.Encoding); err != nil {
		return fmt.Errorf("invalid encoding: %w", err)
	}

	if !strings.HasPrefix(c.Extension, ".") || len(c.Extension) < 2 {
		return fmt.Errorf("extension must start with '.', got %q", c.Extension)
	}

	if c.OutputDir != "" {
		if info, err := os.Stat(c.OutputDir); err == nil && !info.IsDir() {
			return fmt.Errorf("output_dir %q is not a directory", c.OutputDir)
		}
	}

	return nil
}

// InputEncoding returns the validated input encoding.
func (c *Config) InputEncoding() logframe.Encoding {
	enc, err := logframe.ParseEncoding(c.Encoding)
	if err != nil {
		return logframe.EncodingAuto
	}
	return enc
}

// ParseOptions returns the parser options derived from the configuration.
func (c *Config) ParseOptions() logframe.ParseOptions {
	return logframe.ParseOptions{
		ReportUnterminated: c.Parser.ReportUnterminated,
		WarnDuplicateKeys:  c.Parser.WarnDuplicateKeys,
	}
}

// SummaryFile returns the summary table path for a strategy.
func (c *Config) SummaryFile(strategy string) string {
	if c.SummaryPath != "" {
		return c.SummaryPath
	}
	return strategy + "-summary.csv"
}

// HistoryDB returns the history database path, defaulting into the
// eprimestat home directory.
func (c *Config) HistoryDB() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	return GetHistoryDBPath()
}

// CacheDirectory returns the parsed-frame cache directory.
func (c *Config) CacheDirectory() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "eprimestat"), nil
}
