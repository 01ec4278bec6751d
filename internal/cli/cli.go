package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/slotflow/internal/app"
	"github.com/vk/slotflow/internal/config"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("slotflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Slotflow - runs node pipelines over annotated data tables, reusing cached
results for every node whose inputs did not change.

Usage:
  slotflow [options] [PIPELINE_PATH...]

Arguments:
  PIPELINE_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := config.Defaults()
	pipelineFlag := flagSet.String("pipeline", "", "Path to the pipeline file or directory.")
	pFlag := flagSet.String("p", "", "Path to the pipeline file or directory (shorthand).")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	workersFlag := flagSet.Int("workers", defaults.Workers, "Number of nodes computed concurrently.")
	cacheFlag := flagSet.String("cache", defaults.Cache, "Cache backend. Options: 'memory' or 'redis'.")
	redisAddrFlag := flagSet.String("redis-addr", "", "Address of the redis server used by the redis cache.")
	redisPrefixFlag := flagSet.String("redis-prefix", defaults.RedisPrefix, "Key prefix of the redis cache.")
	runsDBFlag := flagSet.String("runs-db", "", "SQLite file that stores a report of every run. Empty disables it.")
	notifyURLFlag := flagSet.String("notify-url", "", "socket.io server that receives run events. Empty disables it.")
	skipFlag := flagSet.Bool("skip-on-failure", false, "Keep running independent nodes after a failure and skip its dependents.")
	failWarnFlag := flagSet.Bool("fail-on-warnings", false, "Refuse to run when validation reports warnings.")
	targetsFlag := flagSet.String("targets", "", "Comma-separated nodes to run, with their ancestors. Empty runs every node.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	var paths []string
	if *pipelineFlag != "" {
		paths = append(paths, *pipelineFlag)
	} else if *pFlag != "" {
		paths = append(paths, *pFlag)
	}
	paths = append(paths, flagSet.Args()...)
	slog.Debug("Pipeline paths determined.", "paths", paths)

	if len(paths) == 0 {
		slog.Debug("No pipeline path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	explicit := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	settings := config.Settings{
		Workers:         *workersFlag,
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		HealthcheckPort: *healthPortFlag,
		Cache:           strings.ToLower(*cacheFlag),
		RedisAddr:       *redisAddrFlag,
		RedisPrefix:     *redisPrefixFlag,
		RunsDB:          *runsDBFlag,
		NotifyURL:       *notifyURLFlag,
		SkipOnFailure:   *skipFlag,
		FailOnWarnings:  *failWarnFlag,
		Targets:         splitList(*targetsFlag),
	}

	cfg, err := app.NewConfig(app.Config{
		PipelinePaths: paths,
		Settings:      settings,
		Explicit:      explicit,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", cfg)
	return cfg, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
