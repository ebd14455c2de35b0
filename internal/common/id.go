package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewTurnID generates a unique chat turn ID with the "turn_" prefix
func NewTurnID() string {
	return "turn_" + uuid.New().String()
}

// NewUserID generates a unique user ID with the "usr_" prefix
func NewUserID() string {
	return "usr_" + uuid.New().String()
}

// NewJobID generates a unique queue job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewSessionToken generates an opaque bearer token for a login session
func NewSessionToken() string {
	return uuid.New().String() + uuid.New().String()
}
