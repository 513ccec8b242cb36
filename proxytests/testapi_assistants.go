package proxytests

import (
	"net/http"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/stretchr/testify/require"
)

// Thread is an Assistants thread created by a test. It is deleted when the test ends unless
// the test deletes it first.
type Thread struct {
	ID       string
	Status   int
	resource *framework.Resource
}

func (th *Thread) Delete(t *T) int {
	return th.resource.Delete(t.Context()).Status
}

func (t *T) trackThread(id string, status int) *Thread {
	r := framework.NewResource(t.client, servicedef.ThreadPath(id), servicedef.RouteThread, "thread")
	t.closeOnExit(r)
	return &Thread{ID: id, Status: status, resource: r}
}

// CreateThread creates a thread, optionally with initial messages.
func (t *T) CreateThread(messages ...servicedef.CreateMessageRequest) *Thread {
	body := servicedef.ThreadParams{Messages: messages}
	if body.Messages == nil {
		body.Messages = []servicedef.CreateMessageRequest{}
	}
	result := t.client.Post(t.Context(), servicedef.PathThreads, body)
	require.True(t, result.OK(), "thread creation failed: %s", result.ErrorMessage())
	var thread servicedef.Thread
	require.NoError(t, result.Decode(&thread))
	require.NotEmpty(t, thread.ID, "created thread has no id")
	return t.trackThread(thread.ID, result.Status)
}

// GetThread returns the HTTP status of a GET for the thread.
func (t *T) GetThread(threadID string) int {
	return t.client.Do(t.Context(), client.Request{
		Method:       http.MethodGet,
		Path:         servicedef.ThreadPath(threadID),
		Route:        servicedef.RouteThread,
		ExpectStatus: []int{http.StatusNotFound},
	}).Status
}

// AddMessage adds a user message. The content is either a string or a []servicedef.MessageContent.
func (t *T) AddMessage(threadID string, content interface{}) servicedef.Message {
	result := t.client.Do(t.Context(), client.Request{
		Method: http.MethodPost,
		Path:   servicedef.ThreadMessagesPath(threadID),
		Route:  servicedef.RouteThreadMessages,
		Body:   servicedef.CreateMessageRequest{Role: servicedef.RoleUser, Content: content},
	})
	require.True(t, result.OK(), "adding message failed: %s", result.ErrorMessage())
	var message servicedef.Message
	require.NoError(t, result.Decode(&message))
	return message
}

// CreateRun runs the configured assistant on the thread.
func (t *T) CreateRun(threadID string) servicedef.Run {
	result := t.client.Do(t.Context(), client.Request{
		Method: http.MethodPost,
		Path:   servicedef.ThreadRunsPath(threadID),
		Route:  servicedef.RouteThreadRuns,
		Body:   servicedef.CreateRunRequest{AssistantID: t.config.Assistants.AssistantID},
	})
	require.True(t, result.OK(), "run failed: %s", result.ErrorMessage())
	var run servicedef.Run
	require.NoError(t, result.Decode(&run))
	return run
}

func (t *T) ListMessages(threadID string) servicedef.MessageList {
	result := t.client.Do(t.Context(), client.Request{
		Method: http.MethodGet,
		Path:   servicedef.ThreadMessagesPath(threadID),
		Route:  servicedef.RouteThreadMessages,
	})
	require.True(t, result.OK(), "listing messages failed: %s", result.ErrorMessage())
	var messages servicedef.MessageList
	require.NoError(t, result.Decode(&messages))
	return messages
}

// RequireAssistantReply returns the newest assistant message in the thread, failing the test
// if there is none.
func (t *T) RequireAssistantReply(threadID string) string {
	reply, ok := t.ListMessages(threadID).LatestAssistantText()
	require.True(t, ok, "thread %s has no assistant reply", threadID)
	return reply
}

// AskThread adds a message, runs the assistant and returns the reply written by that run.
func (t *T) AskThread(threadID, text string) string {
	t.AddMessage(threadID, text)
	run := t.CreateRun(threadID)
	require.Equal(t, servicedef.RunStatusCompleted, run.Status, "run did not complete")
	reply, ok := t.ListMessages(threadID).ReplyToRun(run.ID)
	require.True(t, ok, "thread %s has no assistant reply", threadID)
	t.Debug("[%s] %q -> %q", threadID, text, reply)
	return reply
}

// CreateThreadAndRun creates a thread holding one user message and runs the assistant on it
// in a single call. The new thread is deleted when the test ends.
func (t *T) CreateThreadAndRun(content interface{}) servicedef.Run {
	result := t.client.Post(t.Context(), servicedef.PathThreadsRuns, servicedef.CreateThreadAndRunRequest{
		AssistantID: t.config.Assistants.AssistantID,
		Thread: servicedef.ThreadParams{
			Messages: []servicedef.CreateMessageRequest{{Role: servicedef.RoleUser, Content: content}},
		},
	})
	require.True(t, result.OK(), "create-and-run failed: %s", result.ErrorMessage())
	var run servicedef.Run
	require.NoError(t, result.Decode(&run))
	require.NotEmpty(t, run.ThreadID, "run has no thread_id")
	t.trackThread(run.ThreadID, result.Status)
	return run
}
