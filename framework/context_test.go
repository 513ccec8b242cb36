package framework

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lmproxy/proxy-contract-tests/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTestLogger struct {
	events []string
}

func (r *recordingTestLogger) TestStarted(id TestID) {
	r.events = append(r.events, "start "+id.String())
}

func (r *recordingTestLogger) TestError(id TestID, err error) {
	r.events = append(r.events, "error "+id.String())
}

func (r *recordingTestLogger) TestFinished(id TestID, failed bool, debugOutput logging.CapturedOutput) {
	r.events = append(r.events, fmt.Sprintf("finish %s failed=%t debug=%d", id, failed, len(debugOutput)))
}

func (r *recordingTestLogger) TestSkipped(id TestID, reason string) {
	r.events = append(r.events, "skip "+id.String()+": "+reason)
}

func findResult(t *testing.T, results Results, id string) TestResult {
	for _, r := range results.Tests {
		if r.TestID.String() == id {
			return r
		}
	}
	require.Fail(t, "no result", "test %q was not recorded", id)
	return TestResult{}
}

func TestPassingAndFailingTests(t *testing.T) {
	var logger recordingTestLogger
	results := Run(context.Background(), nil, &logger, func(c *Context) {
		c.Run("group", func(c *Context) {
			c.Run("passes", func(c *Context) {
				c.Debug("hello %d", 1)
				assert.True(c, true)
			})
			c.Run("fails", func(c *Context) {
				require.Equal(c, 1, 2)
				c.Debug("not reached")
			})
		})
	})

	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "group/fails", results.Failures[0].TestID.String())
	passed, failed, skipped := results.Counts()
	assert.Equal(t, []int{1, 1, 0}, []int{passed, failed, skipped})
	assert.True(t, findResult(t, results, "group").Group)

	assert.Equal(t, []string{
		"start group",
		"start group/passes",
		"finish group/passes failed=false debug=1",
		"start group/fails",
		"error group/fails",
		"finish group/fails failed=true debug=0",
		"finish group failed=false debug=0",
	}, logger.events)
}

func TestSkip(t *testing.T) {
	var logger recordingTestLogger
	results := Run(context.Background(), nil, &logger, func(c *Context) {
		c.Run("skipped", func(c *Context) {
			c.SkipWithReason("not supported")
			c.Errorf("not reached")
		})
	})
	assert.True(t, results.OK())
	r := findResult(t, results, "skipped")
	assert.True(t, r.Skipped)
	assert.Equal(t, "not supported", r.SkipReason)
	assert.Contains(t, logger.events, "skip skipped: not supported")
}

func TestPanicIsReportedAsFailure(t *testing.T) {
	results := Run(context.Background(), nil, nil, func(c *Context) {
		c.Run("panics", func(c *Context) {
			var m map[string]int
			m["x"] = 1
		})
		c.Run("still runs", func(c *Context) {})
	})
	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "unexpected panic in test")
	assert.Empty(t, findResult(t, results, "still runs").Errors)
}

func TestDeferRunsInReverseOrderEvenAfterFailure(t *testing.T) {
	var order []string
	results := Run(context.Background(), nil, nil, func(c *Context) {
		c.Run("cleanup", func(c *Context) {
			c.Defer(func() { order = append(order, "first") })
			c.Defer(func() { order = append(order, "second") })
			c.FailNow()
		})
	})
	assert.Equal(t, []string{"second", "first"}, order)
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "test failed with no failure message", results.Failures[0].Errors[0].Error())
}

func TestFailingCleanupFailsTest(t *testing.T) {
	results := Run(context.Background(), nil, nil, func(c *Context) {
		c.Run("bad cleanup", func(c *Context) {
			c.Defer(func() { require.NoError(c, errors.New("delete failed")) })
		})
	})
	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "delete failed")
}

func TestFilterExcludesTests(t *testing.T) {
	var filters RegexFilters
	require.NoError(t, filters.MustNotMatch.Set("^a/skip"))
	ran := map[string]bool{}
	results := Run(context.Background(), filters.AsFilter, nil, func(c *Context) {
		c.Run("a", func(c *Context) {
			c.Run("skip me", func(c *Context) { ran["skip me"] = true })
			c.Run("run me", func(c *Context) { ran["run me"] = true })
		})
	})
	assert.Equal(t, map[string]bool{"run me": true}, ran)
	assert.Equal(t, filteredReason, findResult(t, results, "a/skip me").SkipReason)
}

func TestInterruptedRunSkipsRemainingTests(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	results := Run(ctx, nil, nil, func(c *Context) {
		c.Run("first", func(c *Context) { cancel() })
		c.Run("second", func(c *Context) { c.Errorf("should not run") })
	})
	assert.True(t, results.OK())
	assert.True(t, findResult(t, results, "second").Skipped)
}

func TestRegexFilters(t *testing.T) {
	var filters RegexFilters
	assert.True(t, filters.AsFilter(TestID{Path: []string{"anything"}}))

	require.NoError(t, filters.MustMatch.Set("sessions"))
	require.NoError(t, filters.MustNotMatch.Set("several"))
	assert.True(t, filters.AsFilter(TestID{Path: []string{"sessions", "lifecycle"}}))
	assert.False(t, filters.AsFilter(TestID{Path: []string{"sessions", "create and delete several"}}))
	assert.False(t, filters.AsFilter(TestID{Path: []string{"run", "simple question"}}))
	assert.Equal(t, `"sessions"`, filters.MustMatch.String())

	assert.Error(t, filters.MustMatch.Set("("))
}
