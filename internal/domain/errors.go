package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a relay failure.
type ErrorKind string

const (
	KindInvalidInput         ErrorKind = "InvalidInput"
	KindMethodNotAllowed     ErrorKind = "MethodNotAllowed"
	KindUnsupportedMedia     ErrorKind = "UnsupportedMedia"
	KindUpstreamFailure      ErrorKind = "UpstreamFailure"
	KindConfigurationMissing ErrorKind = "ConfigurationMissing"
	KindRateLimited          ErrorKind = "RateLimited"
)

// HTTPStatus maps the kind to the status code returned to callers.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindUnsupportedMedia:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstreamFailure, KindConfigurationMissing:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Diagnostic carries provider details for operators.
// Raw is only ever logged, never returned to callers.
type Diagnostic struct {
	StatusCode int    `json:"status,omitempty"`
	Type       string `json:"type,omitempty"`
	Code       string `json:"code,omitempty"`
	Raw        string `json:"-"`
}

// Error is the structured failure returned by prompt building and completion.
type Error struct {
	Kind       ErrorKind
	Message    string
	Diagnostic *Diagnostic
	Err        error
}

// NewError creates an error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Diagnostic: nil,
		Err:        nil,
	}
}

// InvalidInput reports a caller-correctable input problem.
func InvalidInput(format string, args ...any) *Error {
	return NewError(KindInvalidInput, format, args...)
}

// UnsupportedMedia reports an upload whose media type is not accepted.
func UnsupportedMedia(format string, args ...any) *Error {
	return NewError(KindUnsupportedMedia, format, args...)
}

// UpstreamFailure wraps a provider failure.
func UpstreamFailure(err error, diag *Diagnostic, message string) *Error {
	return &Error{
		Kind:       KindUpstreamFailure,
		Message:    message,
		Diagnostic: diag,
		Err:        err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a domain error from err. Errors that carry no kind are
// reported as upstream failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr
	}

	return UpstreamFailure(err, nil, err.Error())
}

// KindOf returns the error kind carried by err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
