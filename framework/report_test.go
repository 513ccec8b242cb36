package framework

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

func sampleResults() Results {
	failed := TestResult{
		TestID:   TestID{Path: []string{"run", "simple question"}},
		Errors:   []error{errors.New("expected \"4\"\nin reply")},
		Duration: 1500 * time.Millisecond,
	}
	return Results{
		Tests: []TestResult{
			{TestID: TestID{Path: []string{"discovery", "health"}}, Duration: 12 * time.Millisecond},
			{TestID: TestID{Path: []string{"discovery"}}, Group: true, Duration: 30 * time.Millisecond},
			failed,
			{TestID: TestID{Path: []string{"run"}}, Group: true, Duration: 1500 * time.Millisecond},
			{
				TestID:     TestID{Path: []string{"assistants"}},
				Group:      true,
				Skipped:    true,
				SkipReason: `proxy does not have capability "assistants"`,
			},
		},
		Failures: []TestResult{failed},
	}
}

func TestPrintResultsWithFailures(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, sampleResults())
	goldie.New(t).Assert(t, "results_with_failures", buf.Bytes())
}

func TestPrintResultsAllPassed(t *testing.T) {
	var buf bytes.Buffer
	PrintResults(&buf, Results{Tests: []TestResult{
		{TestID: TestID{Path: []string{"discovery", "health"}}},
		{TestID: TestID{Path: []string{"discovery", "list apps"}}},
		{TestID: TestID{Path: []string{"discovery"}}, Group: true},
	}})
	goldie.New(t).Assert(t, "results_all_passed", buf.Bytes())
}

func TestWriteJSONReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONReport(&buf, sampleResults()))
	goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	).Assert(t, "report", buf.Bytes())
}
