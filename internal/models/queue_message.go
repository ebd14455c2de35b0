package models

import (
	"encoding/json"
	"errors"
)

// ErrNoMessage is returned when the queue is empty
var ErrNoMessage = errors.New("no messages in queue")

// Job types routed by the worker pool
const (
	JobTypeParse = "pdf_parse"
	JobTypeLLM   = "llm_generate"
)

// QueueMessage is the structure stored in the queue.
// Keep it simple - just enough to route the job.
type QueueMessage struct {
	JobID   string          `json:"job_id"`
	Type    string          `json:"type"`    // Job type for handler routing
	Payload json.RawMessage `json:"payload"` // Job-specific data (passed through)
}

// ParseJobPayload references the document a parse job operates on
type ParseJobPayload struct {
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
}

// LLMJobPayload references the turn and document an LLM job operates on
type LLMJobPayload struct {
	TurnID     string `json:"turn_id"`
	DocumentID string `json:"document_id"`
	OwnerID    string `json:"owner_id"`
}

// NewParseMessage builds a queue message for a parse job
func NewParseMessage(jobID, documentID, ownerID string) (QueueMessage, error) {
	payload, err := json.Marshal(ParseJobPayload{DocumentID: documentID, OwnerID: ownerID})
	if err != nil {
		return QueueMessage{}, err
	}
	return QueueMessage{JobID: jobID, Type: JobTypeParse, Payload: payload}, nil
}

// NewLLMMessage builds a queue message for an LLM generation job
func NewLLMMessage(jobID, turnID, documentID, ownerID string) (QueueMessage, error) {
	payload, err := json.Marshal(LLMJobPayload{TurnID: turnID, DocumentID: documentID, OwnerID: ownerID})
	if err != nil {
		return QueueMessage{}, err
	}
	return QueueMessage{JobID: jobID, Type: JobTypeLLM, Payload: payload}, nil
}
