package explorer

import (
	"flag"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/cppunit-explorer/flags"
)

func newCLIContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range flags.Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(&cli.App{Flags: flags.Flags}, set, nil)
}

func TestNewConfig(t *testing.T) {
	logger := log.NewLogger(log.DiscardHandler())

	t.Run("run once from executable list", func(t *testing.T) {
		ctx := newCLIContext(t, "--executable", "bin/tests", "--report", "out/report.xml", "--tests", "0")
		cfg, err := NewConfig(ctx, logger)
		require.NoError(t, err)
		assert.Equal(t, []string{"bin/tests"}, cfg.Executables)
		assert.Equal(t, []string{"out/report.xml"}, cfg.Reports)
		assert.Equal(t, []string{"0"}, cfg.Tests)
		assert.True(t, cfg.RunOnce)
		assert.True(t, filepath.IsAbs(cfg.LogDir))
		assert.Equal(t, 10*time.Minute, cfg.DefaultTimeout)
		assert.Zero(t, cfg.Service.APIPort, "api is only served with --serve")
		assert.Zero(t, cfg.Service.MetricsPort, "metrics are disabled by default")
		assert.Equal(t, 8080, cfg.Service.HealthzPort)
	})

	t.Run("serve with watch and autorun", func(t *testing.T) {
		ctx := newCLIContext(t, "--executables-config", "exes.yaml", "--serve", "--watch", "--autorun",
			"--api-port", "9000", "--logdir", "")
		cfg, err := NewConfig(ctx, logger)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(cfg.ExecutablesConfig))
		assert.False(t, cfg.RunOnce)
		assert.True(t, cfg.Serve)
		assert.True(t, cfg.Watch)
		assert.True(t, cfg.Autorun)
		assert.Empty(t, cfg.LogDir)
		assert.Equal(t, 9000, cfg.Service.APIPort)
	})

	t.Run("periodic", func(t *testing.T) {
		ctx := newCLIContext(t, "--executables-config", "exes.toml", "--run-interval", "1h")
		cfg, err := NewConfig(ctx, logger)
		require.NoError(t, err)
		assert.False(t, cfg.RunOnce)
		assert.Equal(t, time.Hour, cfg.RunInterval)
	})

	t.Run("metrics enabled", func(t *testing.T) {
		ctx := newCLIContext(t, "--executables-config", "exes.yaml", "--metrics.enabled", "--metrics.port", "7400")
		cfg, err := NewConfig(ctx, logger)
		require.NoError(t, err)
		assert.Equal(t, 7400, cfg.Service.MetricsPort)
	})

	invalid := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no executables", args: nil, wantErr: "missing required flags"},
		{name: "unpaired reports", args: []string{"--executable", "a", "--executable", "b", "--report", "a.xml"}, wantErr: "2 executables but 1 reports"},
		{name: "watch without serve", args: []string{"--executables-config", "e.yaml", "--watch"}, wantErr: "--watch requires --serve"},
		{name: "autorun without watch", args: []string{"--executables-config", "e.yaml", "--serve", "--autorun"}, wantErr: "--autorun requires --watch"},
		{name: "negative cache", args: []string{"--executables-config", "e.yaml", "--report-cache-size", "-1"}, wantErr: "must not be negative"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(newCLIContext(t, tt.args...), logger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
