package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/framework"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCall(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveCall("POST", "/run", client.OutcomeSuccess, 200, 1500*time.Millisecond)
	c.ObserveCall("POST", "/run", client.OutcomeSuccess, 200, 900*time.Millisecond)
	c.ObserveCall("GET", "/health", client.OutcomeTransportError, 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("POST", "/run", "success", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requestsTotal.WithLabelValues("GET", "/health", "transport-error", "0")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.requestDuration))
}

func TestRecordResults(t *testing.T) {
	c := NewCollector(nil)
	c.RecordResults(framework.Results{Tests: []framework.TestResult{
		{TestID: framework.TestID{Path: []string{"run"}}, Group: true},
		{TestID: framework.TestID{Path: []string{"run", "a"}}},
		{TestID: framework.TestID{Path: []string{"run", "b"}}, Errors: []error{errors.New("x")}},
		{TestID: framework.TestID{Path: []string{"assistants"}}, Group: true, Skipped: true},
	}})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.testsTotal.WithLabelValues("pass")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.testsTotal.WithLabelValues("fail")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.testsTotal.WithLabelValues("skip")))
}

func TestWriteTextfile(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveCall("GET", "/list-apps", client.OutcomeHTTPError, 404, 10*time.Millisecond)

	path := filepath.Join(t.TempDir(), "proxytests.prom")
	require.NoError(t, c.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data),
		`proxytests_http_requests_total{method="GET",outcome="http-error",route="/list-apps",status="404"} 1`)

	assert.Error(t, c.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
