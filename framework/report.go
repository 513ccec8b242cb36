package framework

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// PrintResults writes the end-of-run summary: every failed test with its errors, then totals.
func PrintResults(w io.Writer, results Results) {
	passed, failed, skipped := results.Counts()
	if results.OK() {
		fmt.Fprintf(w, "All tests passed (%d passed, %d skipped)\n", passed, skipped)
		return
	}
	fmt.Fprintln(w, "FAILED TESTS:")
	for _, f := range results.Failures {
		fmt.Fprintf(w, "  * %s\n", f.TestID)
		for _, e := range f.Errors {
			for _, line := range strings.Split(e.Error(), "\n") {
				fmt.Fprintf(w, "      %s\n", line)
			}
		}
	}
	fmt.Fprintf(w, "%d passed, %d failed, %d skipped\n", passed, failed, skipped)
}

const (
	StatusPass = "pass"
	StatusFail = "fail"
	StatusSkip = "skip"
)

// Report is the machine-readable form of Results.
type Report struct {
	Passed  int            `json:"passed"`
	Failed  int            `json:"failed"`
	Skipped int            `json:"skipped"`
	Tests   []ReportedTest `json:"tests"`
}

type ReportedTest struct {
	ID         string   `json:"id"`
	Status     string   `json:"status"`
	Reason     string   `json:"reason,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// BuildReport converts Results into a Report. Groups are left out unless they failed or
// were skipped as a whole.
func BuildReport(results Results) Report {
	var r Report
	r.Passed, r.Failed, r.Skipped = results.Counts()
	r.Tests = []ReportedTest{}
	for _, t := range results.Tests {
		rt := ReportedTest{
			ID:         t.TestID.String(),
			Status:     StatusPass,
			DurationMS: t.Duration.Milliseconds(),
		}
		switch {
		case t.Skipped:
			rt.Status = StatusSkip
			rt.Reason = t.SkipReason
		case len(t.Errors) > 0:
			rt.Status = StatusFail
			for _, e := range t.Errors {
				rt.Errors = append(rt.Errors, e.Error())
			}
		case t.Group:
			continue
		}
		r.Tests = append(r.Tests, rt)
	}
	return r
}

func WriteJSONReport(w io.Writer, results Results) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildReport(results))
}
