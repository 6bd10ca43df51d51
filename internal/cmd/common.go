package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/eprimestat/internal/cache"
	"github.com/harrison/eprimestat/internal/config"
	"github.com/harrison/eprimestat/internal/executor"
	"github.com/harrison/eprimestat/internal/fileutil"
	"github.com/harrison/eprimestat/internal/logger"
	"github.com/harrison/eprimestat/internal/output"
)

// addBatchFlags registers the flags shared by commands that run the
// pipeline over input files. Every flag overrides its config key only when
// set on the command line.
func addBatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "Path to config file (default: .eprimestat/config.yaml)")
	f.Bool("verbose", false, "Show debug output, including parser diagnostics")
	f.String("log-level", "", "Log level: trace, debug, info, warn, error")
	f.String("log-dir", "", "Directory for run logs (empty string disables)")
	f.String("encoding", "", "Input encoding: auto, utf-8, utf-16le, utf-16be")
	f.String("extension", "", "Extension of input files (default .txt)")
	f.Bool("recursive", false, "Descend into sub-directories of directory targets")
	f.String("pattern", "", "Regular expression the file name (without extension) must match")
	f.Bool("skip-handled", false, "Skip files whose detail CSV already exists")
	f.Bool("no-details", false, "Do not write per-file detail CSVs")
	f.String("output-dir", "", "Directory for detail CSVs (default: beside each input)")
	f.Bool("cache", false, "Reuse parsed frames of unchanged files")
	f.Int("max-concurrency", -1, "Maximum files processed at once (0 = unlimited, -1 = use config)")
	f.Bool("fail-fast", false, "Stop the batch at the first failed file")
}

func changedString(cmd *cobra.Command, name string) *string {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}

func changedBool(cmd *cobra.Command, name string) *bool {
	if cmd.Flags().Lookup(name) == nil || !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

// flagOverrides collects the flags set on the command line.
func flagOverrides(cmd *cobra.Command) config.FlagOverrides {
	o := config.FlagOverrides{
		LogLevel:    changedString(cmd, "log-level"),
		LogDir:      changedString(cmd, "log-dir"),
		Encoding:    changedString(cmd, "encoding"),
		Extension:   changedString(cmd, "extension"),
		Recursive:   changedBool(cmd, "recursive"),
		SkipHandled: changedBool(cmd, "skip-handled"),
		OutputDir:   changedString(cmd, "output-dir"),
		SummaryPath: changedString(cmd, "summary"),
		FailFast:    changedBool(cmd, "fail-fast"),
		ReportPath:  changedString(cmd, "report"),
		MetricsPath: changedString(cmd, "metrics"),
		NoHistory:   changedBool(cmd, "no-history"),
		Cache:       changedBool(cmd, "cache"),
	}
	if noDetails := changedBool(cmd, "no-details"); noDetails != nil {
		write := !*noDetails
		o.WriteDetails = &write
	}
	if cmd.Flags().Lookup("max-concurrency") != nil && cmd.Flags().Changed("max-concurrency") {
		v, _ := cmd.Flags().GetInt("max-concurrency")
		if v >= 0 {
			o.MaxConcurrency = &v
		}
	}
	return o
}

// loadConfig reads the config file, applies command-line overrides and
// validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	cfg.MergeWithFlags(flagOverrides(cmd))
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the console logger (on stderr, keeping stdout for
// tables) plus the run log file when a log directory is configured. The
// returned func closes the run log.
func newLogger(cmd *cobra.Command, cfg *config.Config) (logger.Multi, func(), error) {
	log := logger.Multi{logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)}
	if cfg.LogDir == "" {
		return log, func() {}, nil
	}

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	log = append(log, fileLog)
	return log, func() { fileLog.Close() }, nil
}

// newProcessor wires the file processor described by cfg.
func newProcessor(cfg *config.Config, log logger.Logger) (*executor.DefaultProcessor, error) {
	proc := &executor.DefaultProcessor{
		Encoding:     cfg.InputEncoding(),
		ParseOptions: cfg.ParseOptions(),
		Reporter:     log,
		SkipHandled:  cfg.SkipHandled,
	}
	if cfg.WriteDetails {
		proc.Details = output.NewDetailWriter(cfg.OutputDir)
	}
	if cfg.Cache.Enabled {
		dir, err := cfg.CacheDirectory()
		if err != nil {
			return nil, err
		}
		frameCache, err := cache.Open(dir, proc.Encoding, proc.ParseOptions)
		if err != nil {
			return nil, err
		}
		proc.Cache = frameCache
		log.LogDebug("frame cache: " + frameCache.Dir())
	}
	return proc, nil
}

// scanOptions returns the target resolution options for cfg.
func scanOptions(cmd *cobra.Command, cfg *config.Config) fileutil.ScanOptions {
	opts := fileutil.ScanOptions{
		Extension: cfg.Extension,
		Recursive: cfg.Recursive,
	}
	if cmd.Flags().Lookup("pattern") != nil {
		opts.Pattern, _ = cmd.Flags().GetString("pattern")
	}
	return opts
}
