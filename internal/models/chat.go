package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentType tags how a turn's text must be rendered.
type ContentType string

const (
	ContentPlain    ContentType = "plain"
	ContentHTML     ContentType = "html"
	ContentMarkdown ContentType = "markdown"
)

// ParseContentType falls back to markdown for unknown values.
func ParseContentType(s string) ContentType {
	switch ContentType(s) {
	case ContentPlain, ContentHTML, ContentMarkdown:
		return ContentType(s)
	default:
		return ContentMarkdown
	}
}

// ChatTurn represents a single message in a conversation. Turns are never
// edited after they are appended.
type ChatTurn struct {
	ID          string      `json:"id"`
	Role        Role        `json:"role"`
	Text        string      `json:"text"`
	ContentType ContentType `json:"content_type"`
	Products    []Product   `json:"products,omitempty"`
	Closing     string      `json:"closing,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AssistantReply is a normalized webhook response.
type AssistantReply struct {
	Answer      string      `json:"answer"`
	ContentType ContentType `json:"content_type"`
	Products    []Product   `json:"products"`
	Closing     string      `json:"closing,omitempty"`
}

// ChatRequest is the payload sent to the message endpoint.
type ChatRequest struct {
	Question string `json:"question"`
}

type ConversationState string

const (
	StateIdle          ConversationState = "idle"
	StateAwaitingReply ConversationState = "awaiting_reply"
)

// ConversationSnapshot is a point-in-time copy of a conversation store.
type ConversationSnapshot struct {
	ID             string            `json:"id"`
	SessionID      string            `json:"session_id"`
	State          ConversationState `json:"state"`
	Turns          []ChatTurn        `json:"turns"`
	Error          string            `json:"error,omitempty"`
	LoadingMessage string            `json:"loading_message,omitempty"`
}

type EventType string

const (
	EventTurnAppended EventType = "turn_appended"
	EventStateChanged EventType = "state_changed"
	EventError        EventType = "error"
)

// ConversationEvent is pushed to the session's WebSocket connections.
type ConversationEvent struct {
	Type           EventType         `json:"type"`
	ConversationID string            `json:"conversation_id"`
	State          ConversationState `json:"state"`
	Turn           *ChatTurn         `json:"turn,omitempty"`
	Error          string            `json:"error,omitempty"`
}
