package models

import (
	"time"
)

// LLMStatus is the lifecycle stage of the assistant reply for a chat turn
type LLMStatus string

const (
	LLMStatusPending   LLMStatus = "PENDING"
	LLMStatusSuccess   LLMStatus = "COMPLETED_SUCCESS"
	LLMStatusExhausted LLMStatus = "FAILED_RETRIES_EXHAUSTED"
)

// IsTerminal reports whether the turn will receive no further writes
func (s LLMStatus) IsTerminal() bool {
	return s == LLMStatusSuccess || s == LLMStatusExhausted
}

// ChatTurn is one user message paired with its eventual assistant reply.
// A turn is created PENDING with an empty reply and is mutated exactly once,
// by the LLM worker, to a terminal status. DocumentID and DocumentFilename
// snapshot which document context applied at submit time.
type ChatTurn struct {
	ID               string     `json:"id"`
	OwnerID          string     `json:"owner_id"`
	DocumentID       string     `json:"document_id"`
	DocumentFilename string     `json:"document_filename"`
	Message          string     `json:"message"`
	Reply            string     `json:"reply,omitempty"` // Empty until COMPLETED_SUCCESS
	Status           LLMStatus  `json:"status"`
	Attempts         int        `json:"attempts"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}
