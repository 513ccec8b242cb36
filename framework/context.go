package framework

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/lmproxy/proxy-contract-tests/logging"
)

type environment struct {
	ctx        context.Context
	results    Results
	testLogger TestLogger
	filter     Filter
}

// Context is the state of one test or subtest. It plays the role of *testing.T, so it can be
// passed to testify's assert and require functions.
type Context struct {
	env         *environment
	id          TestID
	debugLogger logging.CapturingLogger
	failed      bool
	skipped     bool
	skipReason  string
	errors      []error
	cleanups    []func()
	hasChildren bool
	lock        sync.Mutex
}

func Run(
	ctx context.Context,
	filter Filter,
	testLogger TestLogger,
	action func(*Context),
) Results {
	if testLogger == nil {
		testLogger = nullTestLogger{}
	}
	env := &environment{
		ctx:        ctx,
		filter:     filter,
		testLogger: testLogger,
	}
	c := &Context{env: env}
	c.run(action)
	return env.results
}

func (c *Context) run(action func(*Context)) {
	started := time.Now()
	defer func() {
		c.recoverFrom(recover())
		c.runCleanups()
		if len(c.id.Path) == 0 {
			return
		}
		result := TestResult{
			TestID:     c.id,
			Errors:     c.errors,
			Skipped:    c.skipped,
			SkipReason: c.skipReason,
			Group:      c.hasChildren,
			Duration:   time.Since(started),
		}
		c.env.results.Tests = append(c.env.results.Tests, result)
		if c.failed {
			c.env.results.Failures = append(c.env.results.Failures, result)
		}
	}()

	action(c)
}

func (c *Context) recoverFrom(r interface{}) {
	if r == nil || c.skipped {
		return
	}
	c.failed = true
	var addError error
	if _, ok := r.(*Context); ok {
		if len(c.errors) == 0 {
			addError = errors.New("test failed with no failure message")
		}
	} else {
		addError = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
	}
	if addError != nil {
		c.errors = append(c.errors, addError)
		c.env.testLogger.TestError(c.id, addError)
	}
}

func (c *Context) runCleanups() {
	for len(c.cleanups) > 0 {
		f := c.cleanups[len(c.cleanups)-1]
		c.cleanups = c.cleanups[:len(c.cleanups)-1]
		func() {
			defer func() { c.recoverFrom(recover()) }()
			f()
		}()
	}
}

func (c *Context) ID() TestID {
	return c.id
}

// Context returns the context.Context that blocking calls made by the test should use. It is
// cancelled if the whole run is interrupted.
func (c *Context) Context() context.Context {
	if c.env.ctx == nil {
		return context.Background()
	}
	return c.env.ctx
}

func (c *Context) Run(name string, action func(*Context)) {
	id := TestID{Path: append(append([]string(nil), c.id.Path...), name)}
	c.hasChildren = true

	c.env.testLogger.TestStarted(id)
	if c.env.filter != nil && !c.env.filter(id) {
		c.env.results.Tests = append(c.env.results.Tests,
			TestResult{TestID: id, Skipped: true, SkipReason: filteredReason})
		c.env.testLogger.TestSkipped(id, filteredReason)
		return
	}
	if err := c.Context().Err(); err != nil {
		c.env.results.Tests = append(c.env.results.Tests,
			TestResult{TestID: id, Skipped: true, SkipReason: "run was interrupted"})
		c.env.testLogger.TestSkipped(id, "run was interrupted")
		return
	}
	c1 := &Context{
		id:  id,
		env: c.env,
	}
	c1.run(action)
	if c1.skipped {
		c.env.testLogger.TestSkipped(id, c1.skipReason)
	} else {
		c.env.testLogger.TestFinished(id, c1.failed, c1.debugLogger.Output())
	}
}

const filteredReason = "excluded by filter parameters"

func (c *Context) Errorf(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	c.lock.Lock()
	c.failed = true
	c.errors = append(c.errors, err)
	c.lock.Unlock()
	c.env.testLogger.TestError(c.id, err)
}

func (c *Context) FailNow() {
	panic(c)
}

func (c *Context) Failed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.failed
}

func (c *Context) Skip() {
	c.skipped = true
	panic(c)
}

func (c *Context) SkipWithReason(reason string) {
	c.skipReason = reason
	c.Skip()
}

// Defer schedules a function to run when the test ends, whether it passed or not. Deferred
// functions run in last-in-first-out order, and may themselves fail the test.
func (c *Context) Defer(cleanup func()) {
	c.cleanups = append(c.cleanups, cleanup)
}

func (c *Context) Debug(message string, args ...interface{}) {
	c.debugLogger.Printf(message, args...)
}

func (c *Context) DebugLogger() logging.Logger {
	return &c.debugLogger
}
