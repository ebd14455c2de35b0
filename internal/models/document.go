package models

import (
	"time"
)

// ParseStatus is the lifecycle stage of text extraction for a document
type ParseStatus string

const (
	ParseStatusUnparsed ParseStatus = "UNPARSED"
	ParseStatusParsing  ParseStatus = "PARSING"
	ParseStatusSuccess  ParseStatus = "PARSED_SUCCESS"
	ParseStatusFailure  ParseStatus = "PARSED_FAILURE"
)

// IsTerminal reports whether no further automated transition occurs
func (s ParseStatus) IsTerminal() bool {
	return s == ParseStatusSuccess || s == ParseStatusFailure
}

// Document represents an uploaded PDF and its extraction state.
// ParseError is non-empty if and only if ParseStatus is PARSED_FAILURE.
// At most one document per owner has Selected=true; the selection is also
// recorded in a per-owner Selection row updated in the same transaction.
type Document struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"owner_id"`
	Filename    string      `json:"filename"`
	UploadedAt  time.Time   `json:"uploaded_at"`
	ParseStatus ParseStatus `json:"parse_status"`
	ParseError  string      `json:"parse_error,omitempty"`
	Selected    bool        `json:"selected"`
	RawKey      string      `json:"-"` // File-store key of the uploaded bytes
	TextKey     string      `json:"-"` // File-store key of extracted text, set on PARSED_SUCCESS
	UpdatedAt   time.Time   `json:"updated_at"`
}

// MarkParsing moves the document into the in-flight state.
// Callers must have verified the UNPARSED precondition under the same transaction.
func (d *Document) MarkParsing() {
	d.ParseStatus = ParseStatusParsing
	d.ParseError = ""
	d.UpdatedAt = time.Now().UTC()
}

// MarkParseSuccess records a successful extraction
func (d *Document) MarkParseSuccess(textKey string) {
	d.ParseStatus = ParseStatusSuccess
	d.TextKey = textKey
	d.ParseError = ""
	d.UpdatedAt = time.Now().UTC()
}

// MarkParseFailure records a terminal extraction failure with a human-readable message
func (d *Document) MarkParseFailure(errorMessage string) {
	d.ParseStatus = ParseStatusFailure
	d.ParseError = errorMessage
	d.TextKey = ""
	d.UpdatedAt = time.Now().UTC()
}

// Selection is the one-entry owner -> selected document index.
// It is keyed by OwnerID and kept consistent with the Selected flag
// on the document inside a single transaction.
type Selection struct {
	OwnerID    string
	DocumentID string
	UpdatedAt  time.Time
}
