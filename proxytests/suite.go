package proxytests

import (
	"context"

	"github.com/lmproxy/proxy-contract-tests/config"
	"github.com/lmproxy/proxy-contract-tests/framework"
)

func RunTestSuite(
	ctx context.Context,
	harness *framework.TestHarness,
	cfg *config.Config,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	return framework.Run(ctx, filter, testLogger, func(c *framework.Context) {
		t := newTestScope(c, harness, cfg)

		t.Run("discovery", DoDiscoveryTests)
		t.Run("run", DoRunTests)
		t.Run("streaming", DoStreamingTests)
		t.Run("sessions", DoSessionTests)
		t.Run("session isolation", DoSessionIsolationTests)
		t.Run("assistants", DoAssistantsTests)
		t.Run("agent patterns", DoAgentPatternTests)
		t.Run("openai sdk", DoOpenAISDKTests)
	})
}
