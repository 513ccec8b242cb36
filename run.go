package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/config"
	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/logging"
	"github.com/lmproxy/proxy-contract-tests/metrics"
	"github.com/lmproxy/proxy-contract-tests/mockproxy"
	"github.com/lmproxy/proxy-contract-tests/proxytests"
)

type runOptions struct {
	*rootOptions

	url          string
	configPath   string
	filters      framework.RegexFilters
	debug        bool
	debugAll     bool
	reportFile   string
	metricsFile  string
	capabilities []string
	without      []string
	timeout      time.Duration
	noColor      bool
	mock         bool
}

func newRunCommand(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the contract test suite against a proxy",
		Long: `Run the contract test suite against a proxy.

The proxy must answer GET /health with 200 within the startup timeout.
The agent-run and Assistants surfaces are probed; surfaces that do not answer are
reported as discovery failures unless listed with --without-capability,
which skips their tests. Chat completions cannot be probed and must be
declared with --capability chat-completions.

Settings are read from --config, then PROXYTESTS_* environment variables,
then flags.

Exit codes:
  0  All selected tests passed
  1  One or more tests failed
  2  Command, configuration or startup error

Examples:
  proxy-contract-tests run --url http://127.0.0.1:3141
  proxy-contract-tests run --run '^assistants' --debug
  proxy-contract-tests run --mock --capability chat-completions --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuite(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "proxy base URL (default "+config.DefaultBaseURL+")")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	cmd.Flags().Var(&opts.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	cmd.Flags().Var(&opts.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "show debug output for failed tests")
	cmd.Flags().BoolVar(&opts.debugAll, "debug-all", false, "show debug output for all tests")
	cmd.Flags().StringVar(&opts.reportFile, "report-file", "", "write a JSON report to this file")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics in textfile format to this file")
	cmd.Flags().StringSliceVar(&opts.capabilities, "capability", nil, "declare a capability the proxy has (repeatable)")
	cmd.Flags().StringSliceVar(&opts.without, "without-capability", nil, "a capability the proxy does not have; its tests are skipped (repeatable)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default from configuration)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&opts.mock, "mock", false, "start an in-process mock proxy and test against it")

	return cmd
}

func (o *runOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(o.configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("url") {
		cfg.Proxy.BaseURL = o.url
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Proxy.RequestTimeout = o.timeout
	}
	cfg.Capabilities = append(cfg.Capabilities, o.capabilities...)
	cfg.WithoutCapabilities = append(cfg.WithoutCapabilities, o.without...)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSuite(ctx context.Context, cmd *cobra.Command, opts *runOptions) error {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, opts.errOut)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid logging configuration", err)
	}

	if opts.mock {
		running, err := mockproxy.New(mockproxy.WithLogger(logger.With("component", "mockproxy"))).Start("127.0.0.1:0")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to start mock proxy", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = running.Close(shutdownCtx)
		}()
		cfg.Proxy.BaseURL = running.URL
	}

	// Human-readable progress goes to stdout in text mode. In json mode stdout carries only
	// the report.
	progress := opts.out
	if opts.format == formatJSON {
		progress = opts.errOut
	}

	collector := metrics.NewCollector(prometheus.NewRegistry())
	proxyClient := client.New(cfg.Proxy.BaseURL,
		client.WithTimeout(cfg.Proxy.RequestTimeout),
		client.WithObserver(collector),
	)

	mainDebugLogger := logging.NullLogger()
	if opts.debugAll {
		mainDebugLogger = logging.FromSlog(logger, slog.LevelInfo)
	}

	logger.Debug("starting test run", "url", cfg.Proxy.BaseURL, "capabilities", cfg.Capabilities)
	harness, err := framework.NewTestHarness(
		ctx,
		proxyClient,
		cfg.Proxy.StartupTimeout,
		framework.CapabilityOptions{Expected: cfg.ExpectedCapabilities(), Excluded: cfg.WithoutCapabilities},
		mainDebugLogger,
		progress,
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "proxy error", err)
	}

	fmt.Fprintln(progress)
	framework.PrintFilterDescription(progress, harness, opts.filters, proxytests.AllCapabilities)
	fmt.Fprintln(progress, "Running test suite")

	testLogger := NewConsoleTestLogger(progress, opts.noColor)
	testLogger.DebugOutputOnFailure = opts.debug || opts.debugAll
	testLogger.DebugOutputOnSuccess = opts.debugAll

	results := proxytests.RunTestSuite(ctx, harness, cfg, opts.filters.AsFilter, testLogger)

	fmt.Fprintln(progress)
	if opts.format == formatJSON {
		if err := framework.WriteJSONReport(opts.out, results); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
	} else {
		framework.PrintResults(opts.out, results)
	}

	if opts.reportFile != "" {
		if err := writeReportFile(opts.reportFile, results); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report file", err)
		}
	}
	if opts.metricsFile != "" {
		collector.RecordResults(results)
		if err := collector.WriteTextfile(opts.metricsFile); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if !results.OK() {
		fmt.Fprintf(progress, "\nTo rerun the failed tests:\n  %s\n", rerunCommand(cfg.Proxy.BaseURL, opts, results))
		_, failed, _ := results.Counts()
		return NewExitError(ExitFailure, fmt.Sprintf("%d test(s) failed", failed))
	}
	return nil
}

func writeReportFile(path string, results framework.Results) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := framework.WriteJSONReport(f, results); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// rerunCommand builds a shell command line that runs only the tests that failed.
func rerunCommand(baseURL string, opts *runOptions, results framework.Results) string {
	var b commandBuilder
	b.add(os.Args[0], "run")
	if opts.mock {
		b.add("--mock")
	} else {
		b.add("--url", baseURL)
	}
	if opts.configPath != "" {
		b.add("--config", opts.configPath)
	}
	for _, c := range opts.capabilities {
		b.add("--capability", c)
	}
	for _, c := range opts.without {
		b.add("--without-capability", c)
	}
	b.add("--run", failedTestsPattern(results))
	if opts.debug || opts.debugAll {
		b.add("--debug")
	}
	return b.String()
}

// failedTestsPattern matches every failed test, everything under it, and the groups that
// contain it. The filter is applied to groups too, so without the ancestors the failed
// tests would never be reached.
func failedTestsPattern(results framework.Results) string {
	var ancestors, failed []string
	seen := make(map[string]bool)
	for _, f := range results.Failures {
		path := f.TestID.Path
		for i := 1; i < len(path); i++ {
			name := strings.Join(path[:i], "/")
			if !seen[name] {
				seen[name] = true
				ancestors = append(ancestors, regexp.QuoteMeta(name))
			}
		}
		failed = append(failed, regexp.QuoteMeta(f.TestID.String()))
	}
	pattern := "^(" + strings.Join(failed, "|") + ")(/|$)"
	if len(ancestors) > 0 {
		pattern = "^(" + strings.Join(ancestors, "|") + ")$|" + pattern
	}
	return pattern
}
