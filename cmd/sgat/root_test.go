package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/sgat/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"version", "bench", "gradcheck", "inspect", "fit"} {
		assert.Contains(t, names, want)
	}
}

func TestNewRootCmd_HasPersistentFlags(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"config", "log-level", "parallel-workers", "bench-density", "gradcheck-seed"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "flag --%s", name)
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "not-a-level"} {
		setupLogger(level)
	}
}

func TestRequireConfig(t *testing.T) {
	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	activeCfg = nil
	_, err := requireConfig()
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	activeCfg = &cfg
	got, err := requireConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sgat "+version)
}

func TestRootCmd_InvalidConfigRejected(t *testing.T) {
	_, err := execute(t, "version", "--bench-density=0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bench.density")
}

func TestRootCmd_FlagsReachConfig(t *testing.T) {
	_, err := execute(t, "version", "--bench-m=3", "--parallel-workers=2", "--log-level=warn")
	require.NoError(t, err)

	cfg, err := requireConfig()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Bench.M)
	assert.Equal(t, 2, cfg.Parallel.Workers)
	assert.Equal(t, "warn", cfg.LogLevel)
}
