package proxytests

import (
	"context"
	"fmt"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/config"
	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/servicedef"
)

var AllCapabilities = []string{
	servicedef.CapabilityADK,
	servicedef.CapabilityAssistants,
	servicedef.CapabilityChatCompletions,
}

// T represents a test or subtest in the proxy contract suites.
//
// It implements the same basic functionality as Go's testing.T, but outside of the Go test
// runner, with per-test debug logging provided by the framework package. Every T has its own
// copy of the proxy client whose request and response log goes to that test's debug output.
//
// To make test assertions, use the assert and require packages, passing the *T as if it were
// a *testing.T. The helpers for calling the proxy fail the test immediately if the call does
// not succeed, to reduce boilerplate in the tests.
type T struct {
	context *framework.Context
	harness *framework.TestHarness
	config  *config.Config
	client  *client.Client
}

func newTestScope(c *framework.Context, harness *framework.TestHarness, cfg *config.Config) *T {
	return &T{
		context: c,
		harness: harness,
		config:  cfg,
		client:  harness.Client().With(client.WithLogger(c.DebugLogger())),
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
func (t *T) Run(name string, action func(*T)) {
	t.context.Run(name, func(c *framework.Context) {
		action(newTestScope(c, t.harness, t.config))
	})
}

// Debug logs some debug output for the test. The output will be passed to the test logger at
// the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// Defer schedules a cleanup to run when the test ends.
func (t *T) Defer(cleanup func()) {
	t.context.Defer(cleanup)
}

// RequireCapability skips this test if the proxy does not have the specified capability.
func (t *T) RequireCapability(capability string) {
	if !t.harness.HasCapability(capability) {
		t.context.SkipWithReason(fmt.Sprintf("proxy does not have capability %q", capability))
	}
}

// Context is the context.Context for calls made by the test.
func (t *T) Context() context.Context {
	return t.context.Context()
}

// Client is the proxy client for this test.
func (t *T) Client() *client.Client {
	return t.client
}

func (t *T) Config() *config.Config {
	return t.config
}

// closeOnExit deletes a resource when the test ends, failing the test if that does not work.
func (t *T) closeOnExit(r *framework.Resource) {
	t.Defer(func() {
		if err := r.Close(context.Background()); err != nil {
			t.Errorf("cleanup failed: %s", err)
		}
	})
}
