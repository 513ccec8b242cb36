// Package proxytests contains the contract suites that are run against an LLM proxy.
//
// Tests are written against the T type, which wraps a framework.Context in the same way
// that *testing.T wraps a Go test, so that testify's assert and require packages can be used
// with it. T also carries the proxy client and helpers for the agent-run and Assistants APIs.
package proxytests
