package flags

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "CPPUNIT_EXPLORER"

var (
	ExecutablesConfig = &cli.StringFlag{
		Name:    "executables-config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXECUTABLES_CONFIG"),
		Usage:   "Path to a YAML or TOML file listing test executables and their reports (eg. 'executables.yaml')",
	}
	Executables = &cli.StringSliceFlag{
		Name:    "executable",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "EXECUTABLE"),
		Usage:   "Path to a CppUnit test executable. Repeat for several executables.",
	}
	Reports = &cli.StringSliceFlag{
		Name:    "report",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT"),
		Usage:   "Path to the XML report written by the executable at the same position",
	}
	Tests = &cli.StringSliceFlag{
		Name:    "tests",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTS"),
		Usage:   "Test ids to run (eg. 'TestBasicMath', 'TestBasicMath::testAddition'). Runs everything when omitted.",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "Serve the test tree and run requests over HTTP instead of exiting after one run",
	}
	Watch = &cli.BoolFlag{
		Name:    "watch",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WATCH"),
		Usage:   "Reload when reports change. Only applies with --serve.",
	}
	Autorun = &cli.BoolFlag{
		Name:    "autorun",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "AUTORUN"),
		Usage:   "Run all tests when an executable is rebuilt. Requires --watch.",
	}
	DefaultTimeout = &cli.DurationFlag{
		Name:    "default-timeout",
		Value:   10 * time.Minute,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEFAULT_TIMEOUT"),
		Usage:   "Timeout for one executable when its config does not set one",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory to store per-run output. Set to empty to disable.",
	}
	ReportCacheSize = &cli.IntFlag{
		Name:    "report-cache-size",
		Value:   32,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT_CACHE_SIZE"),
		Usage:   "Number of parsed reports kept in memory",
	}
	HealthzPort = &cli.IntFlag{
		Name:    "healthz-port",
		Value:   8080,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_PORT"),
		Usage:   "Port of the health check server. Set to 0 to disable.",
	}
	APIAddr = &cli.StringFlag{
		Name:    "api-addr",
		Value:   "127.0.0.1",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "API_ADDR"),
		Usage:   "Listen address of the API server",
	}
	APIPort = &cli.IntFlag{
		Name:    "api-port",
		Value:   8765,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "API_PORT"),
		Usage:   "Port of the API server",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	ExecutablesConfig,
	Executables,
	Reports,
	Tests,
	RunInterval,
	Serve,
	Watch,
	Autorun,
	DefaultTimeout,
	LogDir,
	ReportCacheSize,
	HealthzPort,
	APIAddr,
	APIPort,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

var ErrNoExecutables = errors.New("either --executables-config or --executable is required")

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	if !ctx.IsSet(ExecutablesConfig.Name) && !ctx.IsSet(Executables.Name) {
		return ErrNoExecutables
	}
	if ctx.IsSet(ExecutablesConfig.Name) && ctx.IsSet(Executables.Name) {
		return fmt.Errorf("flags %s and %s are mutually exclusive", ExecutablesConfig.Name, Executables.Name)
	}
	return opflags.CheckRequiredXor(ctx)
}
