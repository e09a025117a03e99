package domain

import "time"

// Status is the lifecycle state of a conversation.
type Status string

const (
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// Snapshot is the persisted form of a conversation.
// The graph itself is not stored; it is rebuilt from Document on resume.
type Snapshot struct {
	ConversationID string    `json:"conversation_id"`
	Document       string    `json:"document"`
	Player         Identity  `json:"player"`
	PageID         string    `json:"page_id"`
	PageIndex      int       `json:"page_index"`
	Status         Status    `json:"status"`
	OpenedAt       time.Time `json:"opened_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
