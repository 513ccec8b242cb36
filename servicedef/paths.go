package servicedef

import (
	"fmt"
	"net/url"
)

const (
	PathHealth        = "/health"
	PathListApps      = "/list-apps"
	PathRun           = "/run"
	PathRunSSE        = "/run_sse"
	PathAssistants    = "/v1/assistants"
	PathThreads       = "/v1/threads"
	PathThreadsRuns   = "/v1/threads/runs"
	PathChatBase      = "/v1"
	PathChatCompletes = "/v1/chat/completions"
)

// Route labels group parameterized paths for metrics.
const (
	RouteSessions       = "/apps/{app}/users/{user}/sessions"
	RouteSession        = "/apps/{app}/users/{user}/sessions/{session}"
	RouteThread         = "/v1/threads/{thread}"
	RouteThreadMessages = "/v1/threads/{thread}/messages"
	RouteThreadRuns     = "/v1/threads/{thread}/runs"
)

func SessionsPath(appName, userID string) string {
	return fmt.Sprintf("/apps/%s/users/%s/sessions", url.PathEscape(appName), url.PathEscape(userID))
}

func SessionPath(appName, userID, sessionID string) string {
	return SessionsPath(appName, userID) + "/" + url.PathEscape(sessionID)
}

func ThreadPath(threadID string) string {
	return PathThreads + "/" + url.PathEscape(threadID)
}

func ThreadMessagesPath(threadID string) string {
	return ThreadPath(threadID) + "/messages"
}

func ThreadRunsPath(threadID string) string {
	return ThreadPath(threadID) + "/runs"
}
