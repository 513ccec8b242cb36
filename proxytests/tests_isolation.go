package proxytests

import (
	"strings"

	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/assert"
)

func DoSessionIsolationTests(t *T) {
	t.RequireCapability(servicedef.CapabilityADK)

	t.Run("separate contexts", func(t *T) {
		math, colors := NewSessionID("math"), NewSessionID("colors")

		assert.Contains(t, t.Ask(math, "What is 10 + 20?"), "30")
		colorReplies := []string{t.Ask(colors, "What color is the sky?")}
		assert.Contains(t, t.Ask(math, "Double that number."), "60")
		colorReplies = append(colorReplies, t.Ask(colors, "What color is grass?"))
		assert.Contains(t, t.Ask(math, "What was the original number?"), "30")
		colorReplies = append(colorReplies, t.Ask(colors, "What was the first color I asked about?"))
		colorReplies = append(colorReplies, t.Ask(colors, "What were my question and your answer?"))

		assert.Contains(t, strings.ToLower(colorReplies[2]), "blue")
		assert.Contains(t, strings.ToLower(colorReplies[3]), "sky")
		for _, reply := range colorReplies {
			assert.NotContains(t, reply, "30", "colour session leaked the math session's answer")
			assert.NotContains(t, reply, "60", "colour session leaked the math session's answer")
		}
	})

	t.Run("independent sessions recall", func(t *T) {
		cases := []struct {
			question, answer string
		}{
			{"What is 5 + 5?", "10"},
			{"What is 6 * 7?", "42"},
			{"What is 100 - 1?", "99"},
		}
		ids := make([]string, len(cases))
		for i, c := range cases {
			ids[i] = NewSessionID("recall")
			assert.Contains(t, t.Ask(ids[i], c.question), c.answer)
		}
		for i, c := range cases {
			assert.Contains(t, t.Ask(ids[i], "What was your final answer?"), c.answer,
				"session %d did not recall its own answer", i+1)
		}
	})
}
