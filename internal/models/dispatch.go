package models

import "time"

// DispatchRecord is one audited request/response cycle with the assistant webhook.
type DispatchRecord struct {
	RequestID    string        `json:"request_id"`
	SessionID    string        `json:"session_id"`
	Question     string        `json:"question"`
	Outcome      string        `json:"outcome"` // "ok" or a dispatch error kind
	HTTPStatus   int           `json:"http_status"`
	ProductCount int           `json:"product_count"`
	Duration     time.Duration `json:"duration"`
	CreatedAt    time.Time     `json:"created_at"`
}
