package mockproxy

import (
	"net/http"
	"strings"
	"time"

	"github.com/lmproxy/proxy-contract-tests/servicedef"
)

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatReply struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatChoice struct {
	Index        int       `json:"index"`
	Message      chatReply `json:"message"`
	FinishReason string    `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletion struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

// handleChatCompletion answers the last user message, treating earlier user/assistant pairs
// in the request as the conversation history. System messages are ignored.
func (s *Server) handleChatCompletion(w http.ResponseWriter, req *http.Request) {
	var body chatCompletionRequest
	if err := readJSON(req, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "malformed request body: "+err.Error())
		return
	}
	var history []Turn
	var in Input
	var pending []string
	for _, m := range body.Messages {
		content, err := parseMessageContent(m.Content)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, "invalid_request_error", err.Error())
			return
		}
		text := servicedef.Message{Content: content}.Text()
		switch m.Role {
		case "user":
			pending = append(pending, text)
			in = Input{Text: text}
			for _, c := range content {
				if c.ImageURL != nil {
					in.Images = append(in.Images, imageTypeOfURL(c.ImageURL.URL))
				}
			}
		case "assistant":
			history = append(history, Turn{User: joinLines(pending), Reply: text})
			pending = nil
		}
	}
	if len(pending) == 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid_request_error", "messages must end with a user message")
		return
	}
	model := body.Model
	if model == "" {
		model = defaultModel
	}
	text := s.responder.Reply(history, in)
	promptTokens := len(strings.Fields(in.Text))
	completionTokens := len(strings.Fields(text))
	writeJSON(w, http.StatusOK, chatCompletion{
		ID:      newID("chatcmpl-"),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []chatChoice{{
			Index:        0,
			Message:      chatReply{Role: servicedef.RoleAssistant, Content: text},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}
