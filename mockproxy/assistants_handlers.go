package mockproxy

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/lmproxy/proxy-contract-tests/servicedef"
)

func (s *Server) handleListAssistants(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, servicedef.AssistantList{
		Object: "list",
		Data: []servicedef.Assistant{
			{ID: defaultAssistantID, Object: "assistant", Name: "Default Assistant", Model: defaultModel},
		},
	})
}

func (s *Server) handleCreateThread(w http.ResponseWriter, req *http.Request) {
	var body servicedef.ThreadParams
	if err := readJSON(req, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "malformed request body: "+err.Error())
		return
	}
	messages, err := toMessages(body.Messages)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, s.store.createThread(messages))
}

func (s *Server) handleGetThread(w http.ResponseWriter, req *http.Request) {
	thread, ok := s.store.getThread(req.PathValue("thread"))
	if !ok {
		threadNotFound(w, req)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("thread")
	if !s.store.deleteThread(id) {
		threadNotFound(w, req)
		return
	}
	writeJSON(w, http.StatusOK, servicedef.DeletionStatus{ID: id, Object: "thread.deleted", Deleted: true})
}

func (s *Server) handleCreateMessage(w http.ResponseWriter, req *http.Request) {
	var body servicedef.CreateMessageRequest
	if err := readJSON(req, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "malformed request body: "+err.Error())
		return
	}
	messages, err := toMessages([]servicedef.CreateMessageRequest{body})
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	message, ok := s.store.addMessage(req.PathValue("thread"), messages[0])
	if !ok {
		threadNotFound(w, req)
		return
	}
	writeJSON(w, http.StatusOK, message)
}

// handleListMessages returns messages oldest first, or newest first with order=desc.
func (s *Server) handleListMessages(w http.ResponseWriter, req *http.Request) {
	messages, ok := s.store.listMessages(req.PathValue("thread"))
	if !ok {
		threadNotFound(w, req)
		return
	}
	if req.URL.Query().Get("order") == "desc" {
		slices.Reverse(messages)
	}
	if messages == nil {
		messages = []servicedef.Message{}
	}
	writeJSON(w, http.StatusOK, servicedef.MessageList{Object: "list", Data: messages})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, req *http.Request) {
	var body servicedef.CreateRunRequest
	if err := readJSON(req, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "malformed request body: "+err.Error())
		return
	}
	if body.AssistantID == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "assistant_id is required")
		return
	}
	run, ok := s.store.runThread(req.PathValue("thread"), body.AssistantID, s.responder.Reply)
	if !ok {
		threadNotFound(w, req)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleCreateThreadAndRun(w http.ResponseWriter, req *http.Request) {
	var body servicedef.CreateThreadAndRunRequest
	if err := readJSON(req, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "malformed request body: "+err.Error())
		return
	}
	if body.AssistantID == "" {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "assistant_id is required")
		return
	}
	messages, err := toMessages(body.Thread.Messages)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
		return
	}
	thread := s.store.createThread(messages)
	run, _ := s.store.runThread(thread.ID, body.AssistantID, s.responder.Reply)
	writeJSON(w, http.StatusOK, run)
}

func threadNotFound(w http.ResponseWriter, req *http.Request) {
	writeAPIError(w, http.StatusNotFound, "invalid_request_error",
		fmt.Sprintf("No thread found with id '%s'.", req.PathValue("thread")))
}

func toMessages(requests []servicedef.CreateMessageRequest) ([]servicedef.Message, error) {
	var ret []servicedef.Message
	for i, r := range requests {
		role := r.Role
		if role == "" {
			role = servicedef.RoleUser
		}
		if role != servicedef.RoleUser && role != servicedef.RoleAssistant {
			return nil, fmt.Errorf("message %d: invalid role %q", i, role)
		}
		content, err := parseMessageContent(r.Content)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		ret = append(ret, servicedef.Message{Role: role, Content: content})
	}
	return ret, nil
}

// parseMessageContent accepts either a plain string or an array of content objects, whose
// text may itself be a plain string or a {"value": ...} object.
func parseMessageContent(raw interface{}) ([]servicedef.MessageContent, error) {
	switch v := raw.(type) {
	case string:
		return []servicedef.MessageContent{servicedef.TextContent(v)}, nil
	case []interface{}:
		var ret []servicedef.MessageContent
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("content items must be objects")
			}
			switch obj["type"] {
			case servicedef.ContentTypeText:
				switch text := obj["text"].(type) {
				case string:
					ret = append(ret, servicedef.TextContent(text))
				case map[string]interface{}:
					value, _ := text["value"].(string)
					ret = append(ret, servicedef.TextContent(value))
				default:
					return nil, fmt.Errorf("text content has no text")
				}
			case servicedef.ContentTypeImageURL:
				image, _ := obj["image_url"].(map[string]interface{})
				url, _ := image["url"].(string)
				if url == "" {
					return nil, fmt.Errorf("image_url content has no url")
				}
				ret = append(ret, servicedef.ImageURLContent(url))
			default:
				return nil, fmt.Errorf("unsupported content type %v", obj["type"])
			}
		}
		return ret, nil
	default:
		return nil, fmt.Errorf("content must be a string or an array")
	}
}

// imageTypeOfURL reports the MIME type of a data URI, or guesses it from a URL's extension.
func imageTypeOfURL(url string) string {
	if rest, ok := strings.CutPrefix(url, "data:"); ok {
		if i := strings.IndexAny(rest, ";,"); i > 0 {
			return rest[:i]
		}
	}
	return servicedef.ImageMIMEType(url)
}
