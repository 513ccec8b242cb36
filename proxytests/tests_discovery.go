package proxytests

import (
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func DoDiscoveryTests(t *T) {
	t.Run("health", func(t *T) {
		result := t.Client().Get(t.Context(), servicedef.PathHealth)
		require.True(t, result.OK(), result.ErrorMessage())
		assert.Equal(t, 200, result.Status)
	})

	t.Run("expected surfaces", func(t *T) {
		for _, c := range t.harness.ProxyInfo().Missing {
			t.Errorf("proxy does not appear to have capability %q; if it does not support it, "+
				"list it under without_capabilities", c)
		}
	})

	t.Run("list apps", func(t *T) {
		t.RequireCapability(servicedef.CapabilityADK)

		result := t.Client().Get(t.Context(), servicedef.PathListApps)
		require.True(t, result.OK(), result.ErrorMessage())
		assert.Equal(t, 200, result.Status)
		require.Equal(t, ldvalue.ArrayType, result.Body.Type(), "expected a JSON array, got: %s", result.Body)
		t.Debug("apps: %s", result.Body)
	})
}
