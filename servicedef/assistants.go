package servicedef

import "strings"

const (
	RoleAssistant = "assistant"

	ContentTypeText     = "text"
	ContentTypeImageURL = "image_url"

	RunStatusCompleted = "completed"
)

type Assistant struct {
	ID     string `json:"id"`
	Object string `json:"object,omitempty"`
	Name   string `json:"name,omitempty"`
	Model  string `json:"model,omitempty"`
}

type AssistantList struct {
	Object string      `json:"object,omitempty"`
	Data   []Assistant `json:"data"`
}

type Thread struct {
	ID        string `json:"id"`
	Object    string `json:"object,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type TextValue struct {
	Value string `json:"value"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// MessageContent is one element of a message's content array.
type MessageContent struct {
	Type     string     `json:"type"`
	Text     *TextValue `json:"text,omitempty"`
	ImageURL *ImageURL  `json:"image_url,omitempty"`
}

func TextContent(text string) MessageContent {
	return MessageContent{Type: ContentTypeText, Text: &TextValue{Value: text}}
}

func ImageURLContent(url string) MessageContent {
	return MessageContent{Type: ContentTypeImageURL, ImageURL: &ImageURL{URL: url}}
}

// CreateMessageRequest is the body of POST /v1/threads/{id}/messages. Content is either a
// plain string or a []MessageContent.
type CreateMessageRequest struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type Message struct {
	ID        string           `json:"id"`
	Object    string           `json:"object,omitempty"`
	ThreadID  string           `json:"thread_id,omitempty"`
	Role      string           `json:"role"`
	Content   []MessageContent `json:"content"`
	CreatedAt int64            `json:"created_at,omitempty"`
	RunID     string           `json:"run_id,omitempty"`
}

// Text returns the concatenated text of the message's text content.
func (m Message) Text() string {
	var sb strings.Builder
	for _, c := range m.Content {
		if c.Text != nil {
			sb.WriteString(c.Text.Value)
		}
	}
	return sb.String()
}

type MessageList struct {
	Object string    `json:"object,omitempty"`
	Data   []Message `json:"data"`
}

// LatestAssistantText returns the text of the newest assistant message. Lists may be in
// either chronological order; created_at decides, and when every message has the same
// created_at (it has one-second resolution) the list's direction is inferred from its ends,
// since a thread always starts with a user message.
func (l MessageList) LatestAssistantText() (string, bool) {
	n := len(l.Data)
	newestFirst := l.newestFirst()
	for i := 0; i < n; i++ {
		m := l.Data[n-1-i]
		if newestFirst {
			m = l.Data[i]
		}
		if m.Role == RoleAssistant {
			return m.Text(), true
		}
	}
	return "", false
}

// ReplyToRun returns the text of the assistant messages produced by the given run, oldest
// first. If no message carries that run_id it falls back to LatestAssistantText.
func (l MessageList) ReplyToRun(runID string) (string, bool) {
	var parts []string
	n := len(l.Data)
	newestFirst := l.newestFirst()
	for i := 0; i < n; i++ {
		m := l.Data[i]
		if newestFirst {
			m = l.Data[n-1-i]
		}
		if runID != "" && m.Role == RoleAssistant && m.RunID == runID {
			parts = append(parts, m.Text())
		}
	}
	if len(parts) == 0 {
		return l.LatestAssistantText()
	}
	return strings.Join(parts, "\n"), true
}

func (l MessageList) newestFirst() bool {
	for i := 1; i < len(l.Data); i++ {
		switch prev, cur := l.Data[i-1].CreatedAt, l.Data[i].CreatedAt; {
		case cur > prev:
			return false
		case cur < prev:
			return true
		}
	}
	n := len(l.Data)
	return n > 1 && l.Data[0].Role == RoleAssistant && l.Data[n-1].Role == RoleUser
}

type CreateRunRequest struct {
	AssistantID string `json:"assistant_id"`
}

type Run struct {
	ID          string `json:"id"`
	Object      string `json:"object,omitempty"`
	ThreadID    string `json:"thread_id"`
	AssistantID string `json:"assistant_id,omitempty"`
	Status      string `json:"status"`
}

type ThreadParams struct {
	Messages []CreateMessageRequest `json:"messages"`
}

// CreateThreadAndRunRequest is the body of POST /v1/threads/runs.
type CreateThreadAndRunRequest struct {
	AssistantID string       `json:"assistant_id"`
	Thread      ThreadParams `json:"thread"`
}

type DeletionStatus struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	Deleted bool   `json:"deleted"`
}
