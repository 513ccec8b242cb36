package proxytests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/config"
	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/mockproxy"
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAgainst(t *testing.T, url string, declared []string, filter framework.Filter) framework.Results {
	cfg := config.Default()
	cfg.Capabilities = declared
	return runWithConfig(t, url, cfg, filter)
}

func runWithConfig(t *testing.T, url string, cfg *config.Config, filter framework.Filter) framework.Results {
	capabilities := framework.CapabilityOptions{Expected: cfg.ExpectedCapabilities(), Excluded: cfg.WithoutCapabilities}
	harness, err := framework.NewTestHarness(context.Background(), client.New(url), cfg.Proxy.StartupTimeout,
		capabilities, nil, nil)
	require.NoError(t, err)
	return RunTestSuite(context.Background(), harness, cfg, filter, nil)
}

func onlyGroups(groups ...string) framework.Filter {
	return func(id framework.TestID) bool {
		return len(id.Path) == 0 || slices.Contains(groups, id.Path[0])
	}
}

func describeFailures(results framework.Results) string {
	var sb strings.Builder
	for _, f := range results.Failures {
		sb.WriteString(f.TestID.String())
		for _, e := range f.Errors {
			sb.WriteString("\n  " + e.Error())
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func resultFor(results framework.Results, id string) (framework.TestResult, bool) {
	for _, r := range results.Tests {
		if r.TestID.String() == id {
			return r, true
		}
	}
	return framework.TestResult{}, false
}

func TestSuitePassesAgainstMockProxy(t *testing.T) {
	server := httptest.NewServer(mockproxy.New())
	defer server.Close()

	results := runAgainst(t, server.URL, []string{servicedef.CapabilityChatCompletions}, nil)
	require.True(t, results.OK(), describeFailures(results))

	passed, failed, skipped := results.Counts()
	assert.Equal(t, 0, failed)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 23, passed)

	for _, id := range []string{
		"discovery/health",
		"discovery/expected surfaces",
		"run/simple question",
		"streaming/matches non-streaming reply",
		"sessions/create and delete several",
		"session isolation/separate contexts",
		"assistants/thread isolation",
		"agent patterns/parallel fan-out",
		"agent patterns/loop refinement",
		"openai sdk/chat completion",
	} {
		r, ok := resultFor(results, id)
		if assert.True(t, ok, "no result for %s", id) {
			assert.False(t, r.Skipped, id)
			assert.Empty(t, r.Errors, id)
		}
	}
}

func TestSuiteSkipsUndeclaredCapability(t *testing.T) {
	server := httptest.NewServer(mockproxy.New())
	defer server.Close()

	results := runAgainst(t, server.URL, nil, nil)
	require.True(t, results.OK(), describeFailures(results))

	r, ok := resultFor(results, "openai sdk")
	require.True(t, ok)
	assert.True(t, r.Skipped)
	assert.Equal(t, `proxy does not have capability "chat-completions"`, r.SkipReason)
}

func TestSuiteFilter(t *testing.T) {
	server := httptest.NewServer(mockproxy.New())
	defer server.Close()

	var filters framework.RegexFilters
	require.NoError(t, filters.MustMatch.Set("^discovery"))
	results := runAgainst(t, server.URL, nil, filters.AsFilter)
	require.True(t, results.OK(), describeFailures(results))

	r, ok := resultFor(results, "run")
	require.True(t, ok)
	assert.True(t, r.Skipped)
	r, ok = resultFor(results, "discovery/list apps")
	require.True(t, ok)
	assert.False(t, r.Skipped)
}

func TestSuiteFailsWhenExpectedSurfacesAreMissing(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server) {
		results := runAgainst(t, server.URL, nil, nil)
		assert.False(t, results.OK())

		r, ok := resultFor(results, "discovery/expected surfaces")
		require.True(t, ok)
		require.Len(t, r.Errors, 2)
		assert.Contains(t, r.Errors[0].Error(), `"adk"`)
		assert.Contains(t, r.Errors[1].Error(), `"assistants"`)

		r, ok = resultFor(results, "run")
		require.True(t, ok)
		assert.False(t, r.Skipped)
	})
}

func TestSuiteWithoutCapabilitiesSkipsTheirTests(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server) {
		cfg := config.Default()
		cfg.WithoutCapabilities = []string{servicedef.CapabilityADK, servicedef.CapabilityAssistants}
		results := runWithConfig(t, server.URL, cfg, nil)
		require.True(t, results.OK(), describeFailures(results))

		passed, _, skipped := results.Counts()
		assert.Equal(t, 2, passed)
		assert.Equal(t, 8, skipped)
	})
}

func TestSuiteReportsServerErrors(t *testing.T) {
	mock := mockproxy.New()
	handler := httphelpers.HandlerForPath(servicedef.PathRun, httphelpers.HandlerWithStatus(500), mock)
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		results := runAgainst(t, server.URL, nil, onlyGroups("run"))
		assert.False(t, results.OK())
		r, ok := resultFor(results, "run/simple question")
		require.True(t, ok)
		require.NotEmpty(t, r.Errors)
		assert.Contains(t, r.Errors[0].Error(), "500")
	})
}

func TestParseScore(t *testing.T) {
	for reply, expected := range map[string]int{
		"8":                8,
		"I'd give it 7/10": 7,
		"0":                1,
		"42":               10,
		"no idea":          5,
	} {
		assert.Equal(t, expected, parseScore(reply), reply)
	}
}

// sharedState forwards to a correct mock proxy but answers every session and every thread
// from one shared conversation.
func sharedState(t *testing.T) http.Handler {
	mock := mockproxy.New()

	rec := httptest.NewRecorder()
	mock.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, servicedef.PathThreads, strings.NewReader(`{}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var shared servicedef.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shared))

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch {
		case req.URL.Path == servicedef.PathRun || req.URL.Path == servicedef.PathRunSSE:
			var body servicedef.RunRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			body.SessionID = "shared"
			data, _ := json.Marshal(body)
			req.Body = io.NopCloser(bytes.NewReader(data))
			req.ContentLength = int64(len(data))
		case strings.HasPrefix(req.URL.Path, servicedef.PathThreads+"/"):
			parts := strings.Split(req.URL.Path, "/") // "", "v1", "threads", id, ...
			if len(parts) == 5 && (parts[4] == "messages" || parts[4] == "runs") {
				parts[3] = shared.ID
				req.URL.Path = strings.Join(parts, "/")
			}
		}
		mock.ServeHTTP(w, req)
	})
}

func TestSuiteCatchesSharedConversationState(t *testing.T) {
	httphelpers.WithServer(sharedState(t), func(server *httptest.Server) {
		results := runAgainst(t, server.URL, nil, onlyGroups("session isolation", "assistants"))
		assert.False(t, results.OK())

		for _, id := range []string{"session isolation/separate contexts", "assistants/thread isolation"} {
			r, ok := resultFor(results, id)
			if assert.True(t, ok, "no result for %s", id) {
				assert.NotEmpty(t, r.Errors, "%s should have failed", id)
			}
		}
	})
}

func TestSuiteCatchesDeleteThatDoesNotDelete(t *testing.T) {
	mock := mockproxy.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodDelete && strings.HasPrefix(req.URL.Path, "/apps/") {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		mock.ServeHTTP(w, req)
	})
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		results := runAgainst(t, server.URL, nil, onlyGroups("sessions"))
		assert.False(t, results.OK())

		r, ok := resultFor(results, "sessions/lifecycle")
		require.True(t, ok)
		require.NotEmpty(t, r.Errors)
		assert.Contains(t, r.Errors[0].Error(), "item(s)")
	})
}

func TestSuiteAcceptsLowercaseAndSpelledOutReplies(t *testing.T) {
	mock := mockproxy.New()
	handler := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet || !strings.HasSuffix(req.URL.Path, "/messages") {
			mock.ServeHTTP(w, req)
			return
		}
		rec := httptest.NewRecorder()
		mock.ServeHTTP(rec, req)
		body := strings.ToLower(rec.Body.String())
		body = strings.ReplaceAll(body, `"value":"300"`, `"value":"three hundred"`)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rec.Code)
		_, _ = io.WriteString(w, body)
	})
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		results := runAgainst(t, server.URL, nil, onlyGroups("assistants"))
		require.True(t, results.OK(), describeFailures(results))

		r, ok := resultFor(results, "assistants/thread isolation")
		require.True(t, ok)
		assert.False(t, r.Skipped)
	})
}
