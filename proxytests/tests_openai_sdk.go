package proxytests

import (
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/openai/openai-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func DoOpenAISDKTests(t *T) {
	t.RequireCapability(servicedef.CapabilityChatCompletions)

	t.Run("chat completion", func(t *T) {
		sdk := t.Client().OpenAI(t.Config().OpenAI.APIKey)
		completion, err := sdk.Chat.Completions.New(t.Context(), openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.UserMessage("What is 2+2?"),
			},
			Model: openai.ChatModel(t.Config().OpenAI.Model),
		})
		require.NoError(t, err)
		require.NotEmpty(t, completion.Choices, "completion has no choices")
		reply := completion.Choices[0].Message.Content
		t.Debug("chat completion reply: %q", reply)
		assert.Contains(t, reply, "4")
	})
}
