package proxytests

import (
	"net/http"
	"strings"

	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func DoAssistantsTests(t *T) {
	t.RequireCapability(servicedef.CapabilityAssistants)

	t.Run("list assistants", func(t *T) {
		result := t.Client().Get(t.Context(), servicedef.PathAssistants)
		require.True(t, result.OK(), result.ErrorMessage())
		assert.Equal(t, 200, result.Status)
		assert.Equal(t, ldvalue.ArrayType, result.Body.GetByKey("data").Type(), "response has no data array")
	})

	t.Run("thread lifecycle", func(t *T) {
		thread := t.CreateThread()
		assert.Equal(t, 201, thread.Status)
		assert.Equal(t, 200, t.GetThread(thread.ID))

		message := t.AddMessage(thread.ID, "What is 2 + 2?")
		assert.NotEmpty(t, message.ID)
		assert.NotEmpty(t, t.ListMessages(thread.ID).Data)

		run := t.CreateRun(thread.ID)
		assert.Equal(t, servicedef.RunStatusCompleted, run.Status)
		assert.GreaterOrEqual(t, len(t.ListMessages(thread.ID).Data), 2)
		assert.Contains(t, t.RequireAssistantReply(thread.ID), "4")

		assert.Contains(t, []int{http.StatusOK, http.StatusNoContent}, thread.Delete(t))
	})

	t.Run("multi-turn thread", func(t *T) {
		thread := t.CreateThread()
		assert.Contains(t, t.AskThread(thread.ID, "What is 10 + 5?"), "15")
		assert.Contains(t, t.AskThread(thread.ID, "Multiply that by 2"), "30")
		assert.Contains(t, t.AskThread(thread.ID, "What was the first number you gave me?"), "15")
	})

	t.Run("create thread and run", func(t *T) {
		run := t.CreateThreadAndRun("What color is the sky?")
		assert.Contains(t, []string{"", servicedef.RunStatusCompleted}, run.Status)
		assert.NotEmpty(t, t.RequireAssistantReply(run.ThreadID))
	})

	t.Run("thread isolation", func(t *T) {
		a, b := t.CreateThread(), t.CreateThread()

		assert.Contains(t, t.AskThread(a.ID, "What is 100 + 50?"), "150")
		replies := []string{t.AskThread(b.ID, "What color is snow?")}
		assertMentionsAny(t, t.AskThread(a.ID, "Double that number."), "300", "three hundred")
		replies = append(replies, t.AskThread(b.ID, "What color is grass?"))
		replies = append(replies, t.AskThread(b.ID, "What were my question and your answer?"))

		assert.Contains(t, strings.ToLower(replies[1]), "green")
		assert.Contains(t, strings.ToLower(replies[2]), "snow")
		for _, reply := range replies {
			assert.NotContains(t, reply, "150", "thread B leaked thread A's answer")
			assert.NotContains(t, reply, "300", "thread B leaked thread A's answer")
		}
	})
}

// assertMentionsAny passes if reply contains any of the alternatives, ignoring case.
func assertMentionsAny(t *T, reply string, alternatives ...string) bool {
	lower := strings.ToLower(reply)
	for _, a := range alternatives {
		if strings.Contains(lower, strings.ToLower(a)) {
			return true
		}
	}
	return assert.Fail(t, "reply does not mention the expected answer",
		"reply %q contains none of %q", reply, alternatives)
}
