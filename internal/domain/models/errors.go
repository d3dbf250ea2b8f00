package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the transport can map them to responses.
type ErrorKind string

const (
	KindInvalidArgument        ErrorKind = "InvalidArgument"
	KindUnknownRoute           ErrorKind = "UnknownRoute"
	KindOriginNotAllowed       ErrorKind = "OriginNotAllowed"
	KindUnsupportedContentType ErrorKind = "UnsupportedContentType"
	KindStoreUnavailable       ErrorKind = "StoreUnavailable"
	KindStoreError             ErrorKind = "StoreError"
	KindConfigurationFailure   ErrorKind = "ConfigurationFailure"
	KindInternal               ErrorKind = "Internal"
)

// Error is a classified failure. Message is safe to return to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error.
func NewError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// InvalidArgumentf creates an InvalidArgument error.
func InvalidArgumentf(format string, a ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, a...)}
}

// KindOf extracts the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
