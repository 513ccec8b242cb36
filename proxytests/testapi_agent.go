package proxytests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/framework"
	"github.com/lmproxy/proxy-contract-tests/servicedef"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewSessionID returns a session id that no other test will use. Session ids are chosen by
// the caller; the proxy creates a session the first time it sees one.
func NewSessionID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func (t *T) runRequest(sessionID string, content servicedef.Content) servicedef.RunRequest {
	return servicedef.RunRequest{
		AppName:    t.config.Agent.AppName,
		UserID:     t.config.Agent.UserID,
		SessionID:  sessionID,
		NewMessage: content,
	}
}

// askAgent sends one message through POST /run and returns the agent's final reply text. It
// does not touch any test state, so it can be called from several goroutines.
func askAgent(ctx context.Context, c *client.Client, req servicedef.RunRequest) (string, error) {
	result := c.Do(ctx, client.Request{Method: http.MethodPost, Path: servicedef.PathRun, Body: req})
	if !result.OK() {
		return "", errors.New(result.ErrorMessage())
	}
	var events []servicedef.Event
	if err := result.Decode(&events); err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", fmt.Errorf("session %s: proxy returned no events", req.SessionID)
	}
	reply := servicedef.ReplyText(events)
	if reply == "" {
		return "", fmt.Errorf("session %s: no event carried any text", req.SessionID)
	}
	return reply, nil
}

// RunAgent sends content to the agent and returns the decoded events. The test fails
// immediately unless the call succeeds with at least one event.
func (t *T) RunAgent(sessionID string, content servicedef.Content) []servicedef.Event {
	result := t.client.Post(t.Context(), servicedef.PathRun, t.runRequest(sessionID, content))
	require.True(t, result.OK(), "POST %s failed: %s", servicedef.PathRun, result.ErrorMessage())
	var events []servicedef.Event
	require.NoError(t, result.Decode(&events))
	require.NotEmpty(t, events, "proxy returned no events")
	return events
}

// Ask sends a text message to the agent and returns its reply, failing the test if there is
// no reply.
func (t *T) Ask(sessionID, text string) string {
	reply, err := askAgent(t.Context(), t.client, t.runRequest(sessionID, servicedef.UserText(text)))
	require.NoError(t, err)
	t.Debug("[%s] %q -> %q", sessionID, text, reply)
	return reply
}

// StreamedReply is what the proxy sent on a /run_sse stream.
type StreamedReply struct {
	Events     []servicedef.Event
	Terminated bool
}

// LastText is the text of the last chunk that had any.
func (s StreamedReply) LastText() string {
	return servicedef.ReplyText(s.Events)
}

// StreamAgent sends a text message through POST /run_sse and reads the whole stream.
func (t *T) StreamAgent(sessionID, text string) StreamedReply {
	req := t.runRequest(sessionID, servicedef.UserText(text))
	req.Streaming = true
	stream, result := t.client.Stream(t.Context(), client.Request{
		Method: http.MethodPost,
		Path:   servicedef.PathRunSSE,
		Body:   req,
	})
	require.NotNil(t, stream, "POST %s failed: %s", servicedef.PathRunSSE, result.ErrorMessage())

	var reply StreamedReply
	for event := range stream.Events() {
		var e servicedef.Event
		require.True(t, event.IsJSON(), "stream chunk was not JSON: %s", event.Data)
		require.NoError(t, json.Unmarshal([]byte(event.Data), &e), "malformed stream chunk")
		reply.Events = append(reply.Events, e)
	}
	require.NoError(t, stream.Err())
	reply.Terminated = stream.Terminated()
	return reply
}

// AgentSession is a session created through the session API. It is deleted when the test
// ends unless the test deletes it first.
type AgentSession struct {
	ID       string
	Status   int
	resource *framework.Resource
}

// Delete deletes the session and returns the HTTP status.
func (s *AgentSession) Delete(ctx context.Context) int {
	return s.resource.Delete(ctx).Status
}

// CreateSession creates a session for the session-test app through the session API.
func (t *T) CreateSession() *AgentSession {
	app, user := t.config.Agent.SessionAppName, t.config.Agent.UserID
	result := t.client.Do(t.Context(), client.Request{
		Method: http.MethodPost,
		Path:   servicedef.SessionsPath(app, user),
		Route:  servicedef.RouteSessions,
	})
	require.True(t, result.OK(), "session creation failed: %s", result.ErrorMessage())
	var session servicedef.Session
	require.NoError(t, result.Decode(&session))
	require.NotEmpty(t, session.ID, "created session has no id")

	r := framework.NewResource(t.client, servicedef.SessionPath(app, user, session.ID),
		servicedef.RouteSession, "session")
	t.closeOnExit(r)
	return &AgentSession{ID: session.ID, Status: result.Status, resource: r}
}

// ListSessions returns the sessions of the session-test app.
func (t *T) ListSessions() []servicedef.Session {
	app, user := t.config.Agent.SessionAppName, t.config.Agent.UserID
	result := t.client.Do(t.Context(), client.Request{
		Method: http.MethodGet,
		Path:   servicedef.SessionsPath(app, user),
		Route:  servicedef.RouteSessions,
	})
	require.True(t, result.OK(), "listing sessions failed: %s", result.ErrorMessage())
	var sessions []servicedef.Session
	require.NoError(t, result.Decode(&sessions))
	return sessions
}

// GetSession returns the HTTP status of a GET for one session.
func (t *T) GetSession(id string) int {
	app, user := t.config.Agent.SessionAppName, t.config.Agent.UserID
	return t.client.Do(t.Context(), client.Request{
		Method:       http.MethodGet,
		Path:         servicedef.SessionPath(app, user, id),
		Route:        servicedef.RouteSession,
		ExpectStatus: []int{http.StatusNotFound},
	}).Status
}
