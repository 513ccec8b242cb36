package framework

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/logging"
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	healthPollInterval = time.Millisecond * 100
	healthProbeTimeout = time.Second * 5
)

// ProxyInfo is what the harness learned about the proxy at startup.
type ProxyInfo struct {
	BaseURL      string
	Apps         []string
	Capabilities []string

	// Missing are expected capabilities whose probe failed. Their tests still run.
	Missing []string
}

// CapabilityOptions says which capabilities a run assumes the proxy has.
type CapabilityOptions struct {
	// Expected capabilities are tested whether or not a probe finds them.
	Expected []string
	// Excluded capabilities are never tested, even when a probe finds them.
	Excluded []string
}

// TestHarness holds the shared state of a test run: the client used to reach the proxy and
// what is known about the proxy.
type TestHarness struct {
	client *client.Client
	info   ProxyInfo
}

// NewTestHarness waits for the proxy's health endpoint to answer 200, then probes the API
// surfaces to find out which capabilities the proxy has. Expected capabilities are added to
// whatever the probes found, and an expected capability that a probe could have found but
// did not is reported in ProxyInfo.Missing.
func NewTestHarness(
	ctx context.Context,
	proxyClient *client.Client,
	startupTimeout time.Duration,
	capabilities CapabilityOptions,
	debugLogger logging.Logger,
	startupOutput io.Writer,
) (*TestHarness, error) {
	if debugLogger == nil {
		debugLogger = logging.NullLogger()
	}
	if startupOutput == nil {
		startupOutput = io.Discard
	}

	h := &TestHarness{client: proxyClient}
	info, err := queryProxyInfo(ctx, proxyClient.With(client.WithLogger(debugLogger)), startupTimeout, startupOutput)
	if err != nil {
		return nil, err
	}
	for _, c := range capabilities.Expected {
		if slices.Contains(servicedef.ProbedCapabilities, c) && !slices.Contains(info.Capabilities, c) &&
			!slices.Contains(capabilities.Excluded, c) {
			info.Missing = append(info.Missing, c)
		}
	}
	if len(info.Missing) > 0 {
		fmt.Fprintf(startupOutput, "Expected capabilities not detected: %s\n", strings.Join(info.Missing, ", "))
	}
	info.Capabilities = slices.DeleteFunc(mergeCapabilities(info.Capabilities, capabilities.Expected),
		func(c string) bool { return slices.Contains(capabilities.Excluded, c) })
	h.info = info
	return h, nil
}

// NewTestHarnessWithInfo creates a harness without contacting the proxy.
func NewTestHarnessWithInfo(proxyClient *client.Client, info ProxyInfo) *TestHarness {
	info.Capabilities = mergeCapabilities(info.Capabilities, nil)
	if info.BaseURL == "" {
		info.BaseURL = proxyClient.BaseURL()
	}
	return &TestHarness{client: proxyClient, info: info}
}

func (h *TestHarness) ProxyInfo() ProxyInfo {
	return h.info
}

// Client returns the shared proxy client. Tests normally attach their own logger with Client().With.
func (h *TestHarness) Client() *client.Client {
	return h.client
}

func (h *TestHarness) HasCapability(desired string) bool {
	for _, capability := range h.info.Capabilities {
		if capability == desired {
			return true
		}
	}
	return false
}

func queryProxyInfo(
	ctx context.Context,
	c *client.Client,
	timeout time.Duration,
	output io.Writer,
) (ProxyInfo, error) {
	info := ProxyInfo{BaseURL: c.BaseURL()}
	fmt.Fprintf(output, "Connecting to proxy at %s", c.BaseURL())

	deadline := time.Now().Add(timeout)
	for {
		fmt.Fprintf(output, ".")
		result := c.Do(ctx, client.Request{Method: "GET", Path: servicedef.PathHealth, Timeout: healthProbeTimeout})
		if result.OK() && result.Status == 200 {
			fmt.Fprintln(output)
			break
		}
		if !time.Now().Before(deadline) || ctx.Err() != nil {
			fmt.Fprintln(output)
			return ProxyInfo{}, fmt.Errorf("proxy did not become healthy within %s, result of last query was: %s",
				timeout, result)
		}
		select {
		case <-ctx.Done():
		case <-time.After(healthPollInterval):
		}
	}

	if apps := c.Get(ctx, servicedef.PathListApps); apps.OK() && apps.Body.Type() == ldvalue.ArrayType {
		info.Capabilities = append(info.Capabilities, servicedef.CapabilityADK)
		for i := 0; i < apps.Body.Count(); i++ {
			info.Apps = append(info.Apps, apps.Body.GetByIndex(i).StringValue())
		}
		fmt.Fprintf(output, "Agent apps: %v\n", info.Apps)
	}
	if assistants := c.Get(ctx, servicedef.PathAssistants); assistants.OK() &&
		assistants.Body.GetByKey("data").Type() == ldvalue.ArrayType {
		info.Capabilities = append(info.Capabilities, servicedef.CapabilityAssistants)
	}
	return info, nil
}

func mergeCapabilities(found, declared []string) []string {
	seen := make(map[string]bool)
	var ret []string
	for _, list := range [][]string{found, declared} {
		for _, c := range list {
			if c != "" && !seen[c] {
				seen[c] = true
				ret = append(ret, c)
			}
		}
	}
	sort.Strings(ret)
	return ret
}
