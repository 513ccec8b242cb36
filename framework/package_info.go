// Package framework contains the test-running infrastructure that is independent of any
// particular proxy API.
//
// The general model is:
//
// 1. The harness talks to an already-running proxy over HTTP. At startup it waits for the
// proxy's health endpoint and probes which API surfaces the proxy offers.
//
// 2. There is a general notion of a test context which is similar to Go's *testing.T,
// allowing pieces of test logic to be associated with a test identifier, to accumulate
// success/failure results, and to register cleanup actions such as deleting a session.
//
// 3. Results are reported as they happen through a TestLogger, and summarized at the end
// as text or as a JSON report.
//
// The domain-specific code that knows what is being tested builds a test API on top of
// the test context.
package framework
