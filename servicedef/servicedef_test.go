package servicedef

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequestWireShape(t *testing.T) {
	req := RunRequest{
		AppName:    "vscode-lm-proxy",
		UserID:     "u",
		SessionID:  "s",
		NewMessage: UserParts(Part{Text: "Describe"}, ImagePart([]byte{1, 2, 3}, "image/gif")),
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"app_name": "vscode-lm-proxy",
		"user_id": "u",
		"session_id": "s",
		"new_message": {
			"role": "user",
			"parts": [{"text": "Describe"}, {"data": {"data": "AQID", "mime_type": "image/gif"}}]
		}
	}`, string(data))
}

func TestEventText(t *testing.T) {
	var events []Event
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"1","invocation_id":"i","author":"agent","content":{"parts":[{"text":"thinking"}]}},
		{"id":"2","invocation_id":"i","author":"agent"},
		{"id":"3","invocation_id":"i","author":"agent","content":{"parts":[{"text":"4"}],"role":"model"}}
	]`), &events))
	assert.Equal(t, "thinking", events[0].Text())
	assert.Equal(t, "", events[1].Text())
	assert.Equal(t, "4", ReplyText(events))
	assert.Equal(t, "", ReplyText(nil))
}

func TestLatestAssistantText(t *testing.T) {
	ascending := MessageList{Data: []Message{
		{Role: RoleUser, Content: []MessageContent{TextContent("q1")}, CreatedAt: 1},
		{Role: RoleAssistant, Content: []MessageContent{TextContent("a1")}, CreatedAt: 2},
		{Role: RoleUser, Content: []MessageContent{TextContent("q2")}, CreatedAt: 3},
		{Role: RoleAssistant, Content: []MessageContent{TextContent("a2")}, CreatedAt: 4},
	}}
	text, ok := ascending.LatestAssistantText()
	assert.True(t, ok)
	assert.Equal(t, "a2", text)

	descending := MessageList{Data: []Message{ascending.Data[3], ascending.Data[2], ascending.Data[1], ascending.Data[0]}}
	text, _ = descending.LatestAssistantText()
	assert.Equal(t, "a2", text)

	_, ok = MessageList{Data: ascending.Data[:1]}.LatestAssistantText()
	assert.False(t, ok)
}

func TestLatestAssistantTextWithinOneSecond(t *testing.T) {
	user := func(text string) Message {
		return Message{Role: RoleUser, Content: []MessageContent{TextContent(text)}, CreatedAt: 100}
	}
	assistant := func(text, runID string) Message {
		return Message{Role: RoleAssistant, Content: []MessageContent{TextContent(text)}, CreatedAt: 100, RunID: runID}
	}

	newestFirst := MessageList{Data: []Message{
		assistant("30", "run_2"), user("Multiply that by 2"), assistant("15", "run_1"), user("What is 10 + 5?"),
	}}
	text, ok := newestFirst.LatestAssistantText()
	assert.True(t, ok)
	assert.Equal(t, "30", text)

	oldestFirst := MessageList{Data: []Message{
		user("What is 10 + 5?"), assistant("15", "run_1"), user("Multiply that by 2"), assistant("30", "run_2"),
	}}
	text, _ = oldestFirst.LatestAssistantText()
	assert.Equal(t, "30", text)
}

func TestReplyToRun(t *testing.T) {
	list := MessageList{Data: []Message{
		{Role: RoleAssistant, Content: []MessageContent{TextContent("30")}, CreatedAt: 100, RunID: "run_2"},
		{Role: RoleUser, Content: []MessageContent{TextContent("Multiply that by 2")}, CreatedAt: 100},
		{Role: RoleAssistant, Content: []MessageContent{TextContent("15")}, CreatedAt: 100, RunID: "run_1"},
		{Role: RoleUser, Content: []MessageContent{TextContent("What is 10 + 5?")}, CreatedAt: 100},
	}}

	text, ok := list.ReplyToRun("run_1")
	assert.True(t, ok)
	assert.Equal(t, "15", text)

	text, ok = list.ReplyToRun("run_unknown")
	assert.True(t, ok)
	assert.Equal(t, "30", text)

	_, ok = MessageList{Data: list.Data[3:]}.ReplyToRun("run_1")
	assert.False(t, ok)
}

func TestImageHelpers(t *testing.T) {
	assert.Equal(t, "image/jpeg", ImageMIMEType("cat.JPG"))
	assert.Equal(t, "image/webp", ImageMIMEType("/tmp/x.webp"))
	assert.Equal(t, "image/png", ImageMIMEType("diagram.bmp"))
	assert.Equal(t, "data:image/png;base64,AQID", DataURI([]byte{1, 2, 3}, "image/png"))

	path := filepath.Join(t.TempDir(), "pic.gif")
	require.NoError(t, os.WriteFile(path, []byte("GIF89a"), 0o600))

	part, err := ImagePartFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image/gif", part.Data.MimeType)

	content, err := ImageURLContentFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ContentTypeImageURL, content.Type)
	assert.Equal(t, "data:image/gif;base64,R0lGODlh", content.ImageURL.URL)

	_, err = ImagePartFromFile(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/apps/test-app/users/py-user/sessions", SessionsPath("test-app", "py-user"))
	assert.Equal(t, "/apps/test-app/users/py-user/sessions/a%2Fb", SessionPath("test-app", "py-user", "a/b"))
	assert.Equal(t, "/v1/threads/t1/messages", ThreadMessagesPath("t1"))
	assert.Equal(t, "/v1/threads/t1/runs", ThreadRunsPath("t1"))
}
