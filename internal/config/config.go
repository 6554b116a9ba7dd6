// Package config loads sgat settings from defaults, an optional config file,
// SGAT_* environment variables and command line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/born-ml/sgat/internal/parallel"
)

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	Parallel  ParallelConfig  `mapstructure:"parallel"`
	Bench     BenchConfig     `mapstructure:"bench"`
	GradCheck GradCheckConfig `mapstructure:"gradcheck"`
}

type ParallelConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Workers  int  `mapstructure:"workers"`
	MinChunk int  `mapstructure:"min_chunk"`
}

// BenchConfig sizes the masked matmul benchmark: a is [M, K], b is [K, N]
// and the mask keeps roughly Density * M * N coordinates.
type BenchConfig struct {
	M       int     `mapstructure:"m"`
	K       int     `mapstructure:"k"`
	N       int     `mapstructure:"n"`
	Density float64 `mapstructure:"density"`
	Repeat  int     `mapstructure:"repeat"`
	Seed    int64   `mapstructure:"seed"`
}

type GradCheckConfig struct {
	Seed      int64   `mapstructure:"seed"`
	Tolerance float64 `mapstructure:"tolerance"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	def := parallel.DefaultConfig()
	return Config{
		LogLevel: "info",
		Parallel: ParallelConfig{
			Enabled:  def.Enabled,
			Workers:  def.NumWorkers,
			MinChunk: def.MinChunkSize,
		},
		Bench: BenchConfig{
			M:       512,
			K:       64,
			N:       512,
			Density: 0.05,
			Repeat:  5,
			Seed:    42,
		},
		GradCheck: GradCheckConfig{
			Seed:      42,
			Tolerance: 1e-9,
		},
	}
}

// ParallelSettings converts the parallel section into the kernel worker
// configuration.
func (c Config) ParallelSettings() parallel.Config {
	return parallel.Config{
		Enabled:      c.Parallel.Enabled,
		NumWorkers:   c.Parallel.Workers,
		MinChunkSize: c.Parallel.MinChunk,
	}
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Parallel.Workers < 1 {
		errs = append(errs, fmt.Errorf("parallel.workers must be at least 1, got %d", c.Parallel.Workers))
	}
	if c.Parallel.MinChunk < 1 {
		errs = append(errs, fmt.Errorf("parallel.min_chunk must be at least 1, got %d", c.Parallel.MinChunk))
	}
	if c.Bench.M < 1 || c.Bench.K < 1 || c.Bench.N < 1 {
		errs = append(errs, fmt.Errorf("bench dimensions must be positive, got m=%d k=%d n=%d", c.Bench.M, c.Bench.K, c.Bench.N))
	}
	if c.Bench.Density <= 0 || c.Bench.Density > 1 {
		errs = append(errs, fmt.Errorf("bench.density must be in (0, 1], got %g", c.Bench.Density))
	}
	if c.Bench.Repeat < 1 {
		errs = append(errs, fmt.Errorf("bench.repeat must be at least 1, got %d", c.Bench.Repeat))
	}
	if c.GradCheck.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("gradcheck.tolerance must be positive, got %g", c.GradCheck.Tolerance))
	}
	return errors.Join(errs...)
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.Bool("parallel-enabled", defaults.Parallel.Enabled, "Split CPU kernels across goroutines")
	fs.Int("parallel-workers", defaults.Parallel.Workers, "Maximum concurrent kernel goroutines")
	fs.Int("parallel-min-chunk", defaults.Parallel.MinChunk, "Minimum rows or entries per goroutine")
	fs.Int("bench-m", defaults.Bench.M, "Rows of the left operand")
	fs.Int("bench-k", defaults.Bench.K, "Shared inner dimension")
	fs.Int("bench-n", defaults.Bench.N, "Columns of the right operand")
	fs.Float64("bench-density", defaults.Bench.Density, "Fraction of output coordinates kept by the mask")
	fs.Int("bench-repeat", defaults.Bench.Repeat, "Timed runs per method")
	fs.Int64("bench-seed", defaults.Bench.Seed, "Random seed for benchmark inputs")
	fs.Int64("gradcheck-seed", defaults.GradCheck.Seed, "Random seed for generated inputs")
	fs.Float64("gradcheck-tolerance", defaults.GradCheck.Tolerance, "Largest accepted absolute gradient difference")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("SGAT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("sgat")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("parallel.enabled", c.Parallel.Enabled)
	v.SetDefault("parallel.workers", c.Parallel.Workers)
	v.SetDefault("parallel.min_chunk", c.Parallel.MinChunk)
	v.SetDefault("bench.m", c.Bench.M)
	v.SetDefault("bench.k", c.Bench.K)
	v.SetDefault("bench.n", c.Bench.N)
	v.SetDefault("bench.density", c.Bench.Density)
	v.SetDefault("bench.repeat", c.Bench.Repeat)
	v.SetDefault("bench.seed", c.Bench.Seed)
	v.SetDefault("gradcheck.seed", c.GradCheck.Seed)
	v.SetDefault("gradcheck.tolerance", c.GradCheck.Tolerance)
}

// flagKeys maps each dashed flag name to its dotted config key.
var flagKeys = map[string]string{
	"log-level":           "log_level",
	"parallel-enabled":    "parallel.enabled",
	"parallel-workers":    "parallel.workers",
	"parallel-min-chunk":  "parallel.min_chunk",
	"bench-m":             "bench.m",
	"bench-k":             "bench.k",
	"bench-n":             "bench.n",
	"bench-density":       "bench.density",
	"bench-repeat":        "bench.repeat",
	"bench-seed":          "bench.seed",
	"gradcheck-seed":      "gradcheck.seed",
	"gradcheck-tolerance": "gradcheck.tolerance",
}

// bindFlags binds every registered config flag to its nested key, so an
// unchanged flag falls through to env, file and default values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// ParseLogLevel maps a level name to its slog.Level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}
