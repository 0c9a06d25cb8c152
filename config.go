package explorer

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/ethereum-optimism/infra/cppunit-explorer/flags"
	"github.com/ethereum-optimism/infra/cppunit-explorer/service"
)

// Config holds the application configuration
type Config struct {
	ExecutablesConfig string   // YAML or TOML executables file, exclusive with Executables
	Executables       []string // Test executables, paired with Reports by position
	Reports           []string
	Tests             []string      // Ids to run, all tests when empty
	RunInterval       time.Duration // Interval between test runs
	RunOnce           bool          // Exit after one run
	Serve             bool          // Serve the API until interrupted
	Watch             bool          // Reload when reports or executables change
	Autorun           bool          // Run all tests when an executable changes
	DefaultTimeout    time.Duration // Timeout of one executable unless configured otherwise
	LogDir            string        // Per-run output directory, disabled when empty
	ReportCacheSize   int
	Service           service.Config
	Log               log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	var err error
	executablesConfig := ctx.String(flags.ExecutablesConfig.Name)
	if executablesConfig != "" {
		executablesConfig, err = filepath.Abs(executablesConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for executables config '%s': %w", executablesConfig, err)
		}
	}

	executables := ctx.StringSlice(flags.Executables.Name)
	reports := ctx.StringSlice(flags.Reports.Name)
	if len(executables) != len(reports) {
		return nil, fmt.Errorf("got %d executables but %d reports", len(executables), len(reports))
	}

	logDir := ctx.String(flags.LogDir.Name)
	if logDir != "" {
		logDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}

	serve := ctx.Bool(flags.Serve.Name)
	watch := ctx.Bool(flags.Watch.Name)
	autorun := ctx.Bool(flags.Autorun.Name)
	if watch && !serve {
		return nil, fmt.Errorf("--%s requires --%s", flags.Watch.Name, flags.Serve.Name)
	}
	if autorun && !watch {
		return nil, fmt.Errorf("--%s requires --%s", flags.Autorun.Name, flags.Watch.Name)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)
	if runInterval < 0 {
		return nil, fmt.Errorf("run interval must not be negative: %s", runInterval)
	}

	cacheSize := ctx.Int(flags.ReportCacheSize.Name)
	if cacheSize < 0 {
		return nil, fmt.Errorf("report cache size must not be negative: %d", cacheSize)
	}

	svc := service.DefaultConfig()
	svc.HealthzPort = ctx.Int(flags.HealthzPort.Name)
	svc.APIAddr = ctx.String(flags.APIAddr.Name)
	svc.APIPort = ctx.Int(flags.APIPort.Name)
	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if metricsCfg.Enabled {
		svc.MetricsAddr = metricsCfg.ListenAddr
		svc.MetricsPort = metricsCfg.ListenPort
	} else {
		svc.MetricsPort = 0
	}
	if !serve {
		svc.APIPort = 0
	}

	return &Config{
		ExecutablesConfig: executablesConfig,
		Executables:       executables,
		Reports:           reports,
		Tests:             ctx.StringSlice(flags.Tests.Name),
		RunInterval:       runInterval,
		RunOnce:           runInterval == 0 && !serve,
		Serve:             serve,
		Watch:             watch,
		Autorun:           autorun,
		DefaultTimeout:    ctx.Duration(flags.DefaultTimeout.Name),
		LogDir:            logDir,
		ReportCacheSize:   cacheSize,
		Service:           svc,
		Log:               log,
	}, nil
}
