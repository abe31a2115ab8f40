package models

import (
	"encoding/json"
	"time"
)

// Dead-letter statuses
const (
	DeadLetterPending   = "pending"
	DeadLetterRetrying  = "retrying"
	DeadLetterExhausted = "exhausted"
)

// DeadLetterEntry records one failed webhook/poll processing attempt awaiting
// scheduled retry. Entries flip to exhausted once retry_count exceeds the
// configured max and then require manual intervention.
type DeadLetterEntry struct {
	ID           int             `json:"id"`
	EventType    string          `json:"event_type"`
	Payload      json.RawMessage `json:"payload"`
	ErrorMessage string          `json:"error_message"`
	RetryCount   int             `json:"retry_count"`
	NextRetryAt  time.Time       `json:"next_retry_at"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
