package mockproxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lmproxy/proxy-contract-tests/client"
	"github.com/lmproxy/proxy-contract-tests/servicedef"
)

var streamTokenPattern = regexp.MustCompile(`\S+\s*`)

func (s *Server) decodeRunRequest(w http.ResponseWriter, req *http.Request) (servicedef.RunRequest, Input, bool) {
	var body servicedef.RunRequest
	if err := readJSON(req, &body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body: "+err.Error())
		return body, Input{}, false
	}
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"app_name", body.AppName}, {"user_id", body.UserID}, {"session_id", body.SessionID},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		writeDetail(w, http.StatusUnprocessableEntity, "missing required fields: "+strings.Join(missing, ", "))
		return body, Input{}, false
	}
	in := Input{Text: body.NewMessage.Text()}
	for _, p := range body.NewMessage.Parts {
		if p.Data != nil {
			in.Images = append(in.Images, p.Data.MimeType)
		}
	}
	return body, in, true
}

func (s *Server) handleRun(w http.ResponseWriter, req *http.Request) {
	body, in, ok := s.decodeRunRequest(w, req)
	if !ok {
		return
	}
	events := s.store.converse(body.AppName, body.UserID, body.SessionID, in, s.responder.Reply)
	writeJSON(w, http.StatusOK, events)
}

// handleRunSSE streams the reply as partial events carrying the text so far, then the
// complete event, then the [DONE] sentinel.
func (s *Server) handleRunSSE(w http.ResponseWriter, req *http.Request) {
	body, in, ok := s.decodeRunRequest(w, req)
	if !ok {
		return
	}
	events := s.store.converse(body.AppName, body.UserID, body.SessionID, in, s.responder.Reply)
	final := events[len(events)-1]

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	var sofar strings.Builder
	for _, token := range streamTokenPattern.FindAllString(final.Text(), -1) {
		sofar.WriteString(token)
		partial := final
		partial.Partial = true
		partial.Content = &servicedef.Content{
			Role:  servicedef.RoleModel,
			Parts: []servicedef.Part{{Text: sofar.String()}},
		}
		if !s.writeEvent(w, partial) {
			return
		}
		if s.chunkDelay > 0 {
			select {
			case <-req.Context().Done():
				return
			case <-time.After(s.chunkDelay):
			}
		}
	}
	if !s.writeEvent(w, final) {
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", client.DoneSentinel)
	flush(w)
}

func (s *Server) writeEvent(w http.ResponseWriter, event servicedef.Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode event", "error", err)
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return false
	}
	flush(w)
	return true
}

func flush(w http.ResponseWriter) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, req *http.Request) {
	var state map[string]interface{}
	if err := readJSON(req, &state); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "malformed request body: "+err.Error())
		return
	}
	if inner, ok := state["state"].(map[string]interface{}); ok {
		state = inner
	}
	sess, created := s.store.createSession(req.PathValue("app"), req.PathValue("user"), req.PathValue("session"), state)
	if !created {
		writeDetail(w, http.StatusConflict, fmt.Sprintf("Session %s already exists", req.PathValue("session")))
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, s.store.listSessions(req.PathValue("app"), req.PathValue("user")))
}

func (s *Server) handleGetSession(w http.ResponseWriter, req *http.Request) {
	sess, ok := s.store.getSession(req.PathValue("app"), req.PathValue("user"), req.PathValue("session"))
	if !ok {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, req *http.Request) {
	if !s.store.deleteSession(req.PathValue("app"), req.PathValue("user"), req.PathValue("session")) {
		writeDetail(w, http.StatusNotFound, "Session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
