package proxytests

import (
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoRunTests(t *T) {
	t.RequireCapability(servicedef.CapabilityADK)

	t.Run("simple question", func(t *T) {
		req := t.runRequest(NewSessionID("simple"), servicedef.UserText("What is 2+2? Answer with just the number."))
		result := t.Client().Post(t.Context(), servicedef.PathRun, req)
		require.True(t, result.OK(), result.ErrorMessage())
		assert.Equal(t, 200, result.Status)

		require.Equal(t, 1, result.Body.Count(), "expected exactly one event, got: %s", result.Body)
		first := result.Body.GetByIndex(0)
		for _, key := range []string{"id", "invocation_id", "author"} {
			assert.NotEmpty(t, first.GetByKey(key).StringValue(), "event has no %q", key)
		}
		text := first.GetByKey("content").GetByKey("parts").GetByIndex(0).GetByKey("text").StringValue()
		assert.Contains(t, text, "4")
	})

	t.Run("multi-turn conversation", func(t *T) {
		sessionID := NewSessionID("multi-turn")
		for _, message := range []string{
			"Hello! My name is Alex.",
			"What is 5 + 3?",
			"Multiply that by 2",
			"What were my question and your answer?",
		} {
			reply := t.Ask(sessionID, message)
			assert.NotContains(t, reply, "ERROR")
		}
	})

	t.Run("unknown session id is accepted", func(t *T) {
		events := t.RunAgent(NewSessionID("fresh"), servicedef.UserText("What is 3 + 4?"))
		assert.Contains(t, servicedef.ReplyText(events), "7")
	})
}
