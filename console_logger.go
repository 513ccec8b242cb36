package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/logging"
)

// ConsoleTestLogger prints test progress as it happens: the test ID when it starts, errors
// as they are reported, and a PASSED, FAILED or SKIPPED marker when it ends.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool

	out         io.Writer
	pass        *color.Color
	fail        *color.Color
	skip        *color.Color
	lastStarted string
}

func NewConsoleTestLogger(out io.Writer, noColor bool) *ConsoleTestLogger {
	c := &ConsoleTestLogger{
		out:  out,
		pass: color.New(color.FgGreen),
		fail: color.New(color.FgRed, color.Bold),
		skip: color.New(color.FgYellow),
	}
	if noColor {
		c.pass.DisableColor()
		c.fail.DisableColor()
		c.skip.DisableColor()
	}
	return c
}

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	c.lastStarted = id.String()
	fmt.Fprintf(c.out, "[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		fmt.Fprintf(c.out, "  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput logging.CapturedOutput) {
	switch {
	case failed:
		fmt.Fprintf(c.out, "  %s: %s\n", c.fail.Sprint("FAILED"), id)
	case id.String() == c.lastStarted:
		// groups finish after their last subtest started; only leaves get a PASSED line
		fmt.Fprintf(c.out, "  %s: %s\n", c.pass.Sprint("PASSED"), id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(c.out, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		fmt.Fprintf(c.out, "  %s: %s\n", c.skip.Sprint("SKIPPED"), id)
	} else {
		fmt.Fprintf(c.out, "  %s: %s (%s)\n", c.skip.Sprint("SKIPPED"), id, reason)
	}
}
