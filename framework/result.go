package framework

import (
	"fmt"
	"strings"
	"time"
)

type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

type TestResult struct {
	TestID     TestID
	Errors     []error
	Skipped    bool
	SkipReason string

	// Group is true for a test that only ran subtests. Groups are not counted in totals.
	Group    bool
	Duration time.Duration
}

func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// Counts returns the number of passed, failed and skipped tests, not counting groups.
func (r Results) Counts() (passed, failed, skipped int) {
	for _, t := range r.Tests {
		switch {
		case t.Group && !t.Skipped && len(t.Errors) == 0:
			continue
		case t.Skipped:
			skipped++
		case len(t.Errors) > 0:
			failed++
		default:
			passed++
		}
	}
	return
}

type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

type TestFailure struct {
	ID  TestID
	Err error
}

func (f TestFailure) Error() string {
	return fmt.Sprintf("[%s]: %s", f.ID, f.Err)
}
