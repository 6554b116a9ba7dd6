package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)
	require.NoError(t, fs.Parse(args))
	return &fakeBinder{fs: fs}
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, BenchConfig{M: 512, K: 64, N: 512, Density: 0.05, Repeat: 5, Seed: 42}, cfg.Bench)
	assert.Equal(t, int64(42), cfg.GradCheck.Seed)
	assert.Positive(t, cfg.Parallel.Workers)
	assert.NoError(t, cfg.Validate())
}

func TestRegisterFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, DefaultConfig())

	for name := range flagKeys {
		assert.NotNil(t, fs.Lookup(name), "flag --%s", name)
	}
}

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(t, defaults), Defaults: defaults})
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
}

func TestLoad_NilCmd(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{Defaults: defaults})
	require.NoError(t, err)
	assert.Equal(t, defaults, cfg)
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults,
		"--log-level=debug",
		"--parallel-workers=3",
		"--bench-density=0.5",
		"--gradcheck-seed=7",
	)

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Parallel.Workers)
	assert.InDelta(t, 0.5, cfg.Bench.Density, 0)
	assert.Equal(t, int64(7), cfg.GradCheck.Seed)
	assert.Equal(t, defaults.Bench.M, cfg.Bench.M)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SGAT_LOG_LEVEL", "warn")
	t.Setenv("SGAT_PARALLEL_MIN_CHUNK", "8")
	t.Setenv("SGAT_BENCH_K", "16")

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(t, defaults), Defaults: defaults})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Parallel.MinChunk)
	assert.Equal(t, 16, cfg.Bench.K)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, "sgat.yaml", `
log_level: error
parallel:
  enabled: false
  workers: 2
bench:
  m: 32
  repeat: 9
`)

	defaults := DefaultConfig()
	cfg, err := Load(LoadOptions{Cmd: newFlagBinder(t, defaults), ConfigFile: path, Defaults: defaults})
	require.NoError(t, err)

	assert.Equal(t, "error", cfg.LogLevel)
	assert.False(t, cfg.Parallel.Enabled)
	assert.Equal(t, 2, cfg.Parallel.Workers)
	assert.Equal(t, 32, cfg.Bench.M)
	assert.Equal(t, 9, cfg.Bench.Repeat)
	assert.Equal(t, defaults.Bench.N, cfg.Bench.N)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, "sgat.yaml", "bench:\n  m: 32\n  k: 32\n  n: 32\n")
	t.Setenv("SGAT_BENCH_K", "48")

	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults, "--bench-n=64")

	cfg, err := Load(LoadOptions{Cmd: binder, ConfigFile: path, Defaults: defaults})
	require.NoError(t, err)

	assert.Equal(t, 32, cfg.Bench.M, "file over default")
	assert.Equal(t, 48, cfg.Bench.K, "env over file")
	assert.Equal(t, 64, cfg.Bench.N, "flag over file")
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "bench: [unclosed\n")

	_, err := Load(LoadOptions{ConfigFile: path, Defaults: DefaultConfig()})
	assert.Error(t, err)
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: "/nonexistent/path/sgat.yaml", Defaults: DefaultConfig()})
	assert.Error(t, err)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults, "--bench-density=1.5", "--parallel-workers=0")

	_, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bench.density")
	assert.Contains(t, err.Error(), "parallel.workers")
}

func TestParallelSettings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parallel = ParallelConfig{Enabled: true, Workers: 6, MinChunk: 10}

	got := cfg.ParallelSettings()
	assert.True(t, got.Enabled)
	assert.Equal(t, 6, got.NumWorkers)
	assert.Equal(t, 10, got.MinChunkSize)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
