package servicedef

import "strings"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Blob is inline binary data, base64-encoded.
type Blob struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// Part is one piece of message content: either text or inline data.
type Part struct {
	Text string `json:"text,omitempty"`
	Data *Blob  `json:"data,omitempty"`
}

type Content struct {
	Parts []Part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

// UserText builds a user message consisting of a single text part.
func UserText(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// UserParts builds a user message from arbitrary parts.
func UserParts(parts ...Part) Content {
	return Content{Role: RoleUser, Parts: parts}
}

// Text returns the concatenated text of all text parts.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// RunRequest is the body of POST /run and POST /run_sse.
type RunRequest struct {
	AppName    string  `json:"app_name"`
	UserID     string  `json:"user_id"`
	SessionID  string  `json:"session_id"`
	NewMessage Content `json:"new_message"`
	Streaming  bool    `json:"streaming,omitempty"`
}

// Event is one element of a /run response, or one /run_sse chunk.
type Event struct {
	ID           string   `json:"id"`
	InvocationID string   `json:"invocation_id"`
	Author       string   `json:"author"`
	Content      *Content `json:"content,omitempty"`
	Partial      bool     `json:"partial,omitempty"`
}

// Text returns the text of the event's first content part, or "" if there is none.
func (e Event) Text() string {
	if e.Content == nil || len(e.Content.Parts) == 0 {
		return ""
	}
	return e.Content.Parts[0].Text
}

// ReplyText returns the text of the last event that carries any, which is the agent's final answer.
func ReplyText(events []Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Content != nil {
			if text := events[i].Content.Text(); text != "" {
				return text
			}
		}
	}
	return ""
}

type Session struct {
	ID             string                 `json:"id"`
	AppName        string                 `json:"appName"`
	UserID         string                 `json:"userId"`
	State          map[string]interface{} `json:"state,omitempty"`
	Events         []Event                `json:"events,omitempty"`
	LastUpdateTime float64                `json:"lastUpdateTime,omitempty"`
}
