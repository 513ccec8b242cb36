package proxytests

import (
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoStreamingTests(t *T) {
	t.RequireCapability(servicedef.CapabilityADK)

	t.Run("yields events before DONE", func(t *T) {
		reply := t.StreamAgent(NewSessionID("stream"), "Count from 1 to 5, one number per line.")
		assert.True(t, reply.Terminated, "stream did not end with [DONE]")
		require.NotEmpty(t, reply.Events, "no events were streamed before [DONE]")
		assert.NotEmpty(t, reply.LastText())
	})

	t.Run("matches non-streaming reply", func(t *T) {
		const question, answer = "What is 7 + 8?", "15"

		plain := t.Ask(NewSessionID("plain"), question)
		streamed := t.StreamAgent(NewSessionID("streamed"), question)
		require.NotEmpty(t, streamed.Events)

		assert.Contains(t, plain, answer)
		assert.Contains(t, streamed.LastText(), answer)
	})
}
