package models

import (
	"errors"
	"fmt"
)

// ErrorKind is a typed error classification. User-visible responses carry
// the stable Code, never the internal error identity; the HTTP boundary maps
// kinds to status codes with a static table.
type ErrorKind string

const (
	KindValidation         ErrorKind = "validation"
	KindNotFound           ErrorKind = "not_found"
	KindForbidden          ErrorKind = "forbidden"
	KindConflict           ErrorKind = "conflict"
	KindNoDocumentSelected ErrorKind = "no_document_selected"
	KindDocumentNotParsed  ErrorKind = "document_not_parsed"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindTransient          ErrorKind = "transient"
	KindInternal           ErrorKind = "internal"
)

// DomainError carries an error kind and a stable user-facing code
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a DomainError with the given kind, code, and message
func NewDomainError(kind ErrorKind, code, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapTransient wraps an infrastructure error as retryable
func WrapTransient(code string, err error) *DomainError {
	return &DomainError{Kind: KindTransient, Code: code, Message: "transient infrastructure failure", Err: err}
}

// KindOf returns the error kind for err, or KindInternal for untyped errors
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code for err, or INTERNAL_ERROR for untyped errors
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	return "INTERNAL_ERROR"
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether a worker should leave the job for redelivery.
// Only transient infrastructure failures qualify; everything else is handled
// terminally by the worker itself.
func IsRetryable(err error) bool {
	return IsKind(err, KindTransient)
}
