// Package mockproxy is an in-memory stand-in for the LLM proxy. It serves the agent-run,
// session, Assistants and chat-completions endpoints with scripted, deterministic replies,
// so that the contract suites and examples can be exercised without a real model behind them.
package mockproxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lmproxy/proxy-contract-tests/servicedef"
)

const (
	defaultAssistantID = "asst_default"
	defaultModel       = "gpt-4"
	maxRequestBody     = 32 << 20

	startupPollInterval = 10 * time.Millisecond
	startupDeadline     = time.Second
)

// Apps is what GET /list-apps reports.
var Apps = []string{"vscode-lm-proxy", "math-agent", "streaming-test", "test-app"}

type Server struct {
	store      *store
	responder  Responder
	logger     *slog.Logger
	chunkDelay time.Duration
	handler    http.Handler
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithChunkDelay pauses between streamed chunks, to make streaming visible to a human.
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) { s.chunkDelay = d }
}

func New(options ...Option) *Server {
	s := &Server{
		store:  newStore(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range options {
		o(s)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+servicedef.PathHealth, s.handleHealth)
	mux.HandleFunc("GET "+servicedef.PathListApps, s.handleListApps)
	mux.HandleFunc("POST "+servicedef.PathRun, s.handleRun)
	mux.HandleFunc("POST "+servicedef.PathRunSSE, s.handleRunSSE)

	mux.HandleFunc("GET "+servicedef.RouteSessions, s.handleListSessions)
	mux.HandleFunc("POST "+servicedef.RouteSessions, s.handleCreateSession)
	mux.HandleFunc("POST "+servicedef.RouteSession, s.handleCreateSession)
	mux.HandleFunc("GET "+servicedef.RouteSession, s.handleGetSession)
	mux.HandleFunc("DELETE "+servicedef.RouteSession, s.handleDeleteSession)

	mux.HandleFunc("GET "+servicedef.PathAssistants, s.handleListAssistants)
	mux.HandleFunc("POST "+servicedef.PathThreads, s.handleCreateThread)
	mux.HandleFunc("POST "+servicedef.PathThreadsRuns, s.handleCreateThreadAndRun)
	mux.HandleFunc("GET "+servicedef.RouteThread, s.handleGetThread)
	mux.HandleFunc("DELETE "+servicedef.RouteThread, s.handleDeleteThread)
	mux.HandleFunc("POST "+servicedef.RouteThreadMessages, s.handleCreateMessage)
	mux.HandleFunc("GET "+servicedef.RouteThreadMessages, s.handleListMessages)
	mux.HandleFunc("POST "+servicedef.RouteThreadRuns, s.handleCreateRun)

	mux.HandleFunc("POST "+servicedef.PathChatCompletes, s.handleChatCompletion)

	s.handler = recoverPanics(s.logger, logRequests(s.logger, mux))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	s.handler.ServeHTTP(w, req)
}

// Running is a mock proxy listening on a real socket.
type Running struct {
	URL    string
	server *http.Server
}

// Close shuts the listener down, waiting for in-flight requests until ctx is done.
func (r *Running) Close(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

// Start listens on addr and returns once the server answers its own health check.
func (s *Server) Start(addr string) (*Running, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	server := &http.Server{Handler: s, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("mock proxy stopped", "error", err)
		}
	}()
	running := &Running{URL: "http://" + listener.Addr().String(), server: server}

	deadline := time.NewTimer(startupDeadline)
	defer deadline.Stop()
	ticker := time.NewTicker(startupPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-deadline.C:
			_ = server.Close()
			return nil, fmt.Errorf("could not detect own listener at %s", running.URL)
		case <-ticker.C:
			resp, err := http.Get(running.URL + servicedef.PathHealth)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					s.logger.Info("mock proxy listening", "url", running.URL)
					return running, nil
				}
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListApps(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, Apps)
}

func readJSON(req *http.Request, target interface{}) error {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxRequestBody))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, target)
}

func writeJSON(w http.ResponseWriter, status int, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeDetail writes an error the way the agent-run endpoints report them.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeAPIError writes an error in the OpenAI error format used by the /v1 endpoints.
func writeAPIError(w http.ResponseWriter, status int, errType, message string) {
	body, _ := json.Marshal(map[string]interface{}{
		"error": map[string]string{"message": message, "type": errType},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
