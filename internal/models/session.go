package models

import "time"

// SessionMeta identifies the browser session a request belongs to.
// CurrentURL is empty when there is no page context.
type SessionMeta struct {
	SessionID  string `json:"session_id"`
	CurrentURL string `json:"current_url,omitempty"`
}

// RequestEnvelope is the JSON body posted to the assistant webhook.
type RequestEnvelope struct {
	RequestID  string    `json:"requestId"`
	Question   string    `json:"question"`
	SessionID  string    `json:"sessionId"`
	CurrentURL *string   `json:"currentUrl"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// Handoff carries a question from the landing page to the answer page.
type Handoff struct {
	Question   string `json:"question"`
	Dispatch   bool   `json:"is_loading"`
	SessionID  string `json:"session_id,omitempty"`
	CurrentURL string `json:"current_url,omitempty"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
