package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/logging"
	"github.com/lmproxy/proxy-contract-tests/mockproxy"
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	cmd := NewRootCommand(&out, &errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "2 test(s) failed")))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag: --bogus")))

	wrapped := WrapExitError(ExitCommandError, "invalid configuration", errors.New("bad url"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.Equal(t, "invalid configuration: bad url", wrapped.Error())
	assert.Equal(t, "bad url", errors.Unwrap(wrapped).Error())
}

func TestInvalidFormatIsCommandError(t *testing.T) {
	_, _, err := execute("--format", "xml", "run")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRunRejectsBadTimeout(t *testing.T) {
	_, _, err := execute("run", "--url", "http://127.0.0.1:1", "--timeout=-1s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCommandBuilderQuotesArguments(t *testing.T) {
	var b commandBuilder
	b.add("proxy-contract-tests", "run", "--run", "^(run/simple question)$")
	assert.Equal(t, `proxy-contract-tests run --run '^(run/simple question)$'`, b.String())
}

func TestFailedTestsPattern(t *testing.T) {
	results := framework.Results{
		Failures: []framework.TestResult{
			{TestID: framework.TestID{Path: []string{"run", "math (2+2)"}}},
			{TestID: framework.TestID{Path: []string{"assistants"}}},
		},
	}
	rx := regexp.MustCompile(failedTestsPattern(results))

	for _, id := range []string{"run", "run/math (2+2)", "run/math (2+2)/child", "assistants", "assistants/thread"} {
		assert.True(t, rx.MatchString(id), id)
	}
	for _, id := range []string{"run/other", "streaming", "run/math (2+2)x"} {
		assert.False(t, rx.MatchString(id), id)
	}
}

func TestConsoleTestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewConsoleTestLogger(&buf, true)
	l.DebugOutputOnFailure = true

	group := framework.TestID{Path: []string{"run"}}
	passing := framework.TestID{Path: []string{"run", "a"}}
	failing := framework.TestID{Path: []string{"run", "b"}}
	skipped := framework.TestID{Path: []string{"run", "c"}}

	l.TestStarted(group)
	l.TestStarted(passing)
	l.TestFinished(passing, false, nil)
	l.TestStarted(failing)
	l.TestError(failing, errors.New("first\nsecond"))
	l.TestFinished(failing, true, logging.CapturedOutput{{Message: "sent request"}})
	l.TestStarted(skipped)
	l.TestSkipped(skipped, "proxy does not have capability \"adk\"")
	l.TestFinished(group, false, nil)

	out := buf.String()
	assert.Contains(t, out, "[run/a]\n  PASSED: run/a\n")
	assert.Contains(t, out, "  first\n  second\n  FAILED: run/b\n")
	assert.Contains(t, out, "    DEBUG [")
	assert.Contains(t, out, "sent request")
	assert.Contains(t, out, `  SKIPPED: run/c (proxy does not have capability "adk")`)
	assert.NotContains(t, out, "PASSED: run\n")
}

func TestRunAgainstMockProxy(t *testing.T) {
	server := httptest.NewServer(mockproxy.New())
	defer server.Close()

	stdout, _, err := execute("run", "--url", server.URL, "--no-color",
		"--capability", servicedef.CapabilityChatCompletions)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "Running test suite")
	assert.Contains(t, stdout, "PASSED: run/simple question")
	assert.Contains(t, stdout, "All tests passed (23 passed, 0 skipped)")
}

func TestRunJSONFormatWritesReportAndMetrics(t *testing.T) {
	server := httptest.NewServer(mockproxy.New())
	defer server.Close()

	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	metricsPath := filepath.Join(dir, "metrics.prom")

	stdout, stderr, err := execute("--format", "json", "run", "--url", server.URL, "--run", "^discovery",
		"--report-file", reportPath, "--metrics-file", metricsPath)
	require.NoError(t, err, stderr)

	var report framework.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report), stdout)
	assert.Equal(t, 0, report.Failed)
	assert.Greater(t, report.Passed, 0)
	assert.Contains(t, stderr, "Running test suite")

	saved, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.JSONEq(t, stdout, string(saved))

	metricsText, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "proxytests_tests_total")
	assert.Contains(t, string(metricsText), "proxytests_http_requests_total")
}

func TestRunWithFailuresPrintsRerunCommand(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("/", mockproxy.New())
	mux.Handle("POST "+servicedef.PathRun, httphelpers.HandlerWithStatus(500))
	server := httptest.NewServer(mux)
	defer server.Close()

	stdout, _, err := execute("run", "--url", server.URL, "--run", "^run", "--no-color")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Regexp(t, `\d+ test\(s\) failed`, err.Error())
	assert.Contains(t, stdout, "FAILED TESTS:")
	assert.Contains(t, stdout, "To rerun the failed tests:")
	assert.Contains(t, stdout, "--url "+server.URL)
}

func TestRunUnhealthyProxyIsCommandError(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(503), func(server *httptest.Server) {
		t.Setenv("PROXYTESTS_STARTUP_TIMEOUT", "100ms")
		_, _, err := execute("run", "--url", server.URL)
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "did not become healthy")
	})
}

func TestExampleCommand(t *testing.T) {
	server := httptest.NewServer(mockproxy.New())
	defer server.Close()

	stdout, _, err := execute("example", "adk-text", "--url", server.URL)
	require.NoError(t, err)
	assert.Contains(t, stdout, "vscode-lm-proxy: Hello! I am a mock assistant.")

	_, _, err = execute("example", "no-such-example", "--url", server.URL)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute("example", "adk-image", "--url", server.URL)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestExampleHelpListsExamples(t *testing.T) {
	stdout, _, err := execute("example", "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "assistants-thread-image <image>")
	assert.Contains(t, stdout, "sdk-text")
}
