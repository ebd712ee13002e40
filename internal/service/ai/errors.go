package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a gateway failure so callers can log and degrade differently.
type Kind string

const (
	// KindUnavailable means the backend kept answering "service unavailable"
	// until the retry budget ran out.
	KindUnavailable Kind = "unavailable"
	// KindClient covers permanent request errors such as bad request, auth or rate limits.
	KindClient Kind = "client"
	// KindUnknown is any other transport or protocol failure.
	KindUnknown Kind = "unknown"
	// KindEmpty means the call succeeded but carried no usable text.
	KindEmpty Kind = "empty"
)

// ErrNoCandidates is returned by backends when a response holds no text part.
var ErrNoCandidates = errors.New("response contained no text candidates")

// StatusError carries the HTTP status a backend received.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Message)
}

// Error is the classified failure produced by Gateway.Complete.
type Error struct {
	Kind       Kind
	Attempts   int
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ai %s error after %d attempt(s) (status %d): %v", e.Kind, e.Attempts, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ai %s error after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, or KindUnknown when err is not a gateway error.
func KindOf(err error) Kind {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindUnknown
}

// statusOf returns the HTTP status attached to err, or 0.
func statusOf(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 0
}

// retryable reports whether err belongs to the "temporarily unavailable" class.
func retryable(err error) bool {
	return statusOf(err) == http.StatusServiceUnavailable
}

func classify(err error, attempts int) *Error {
	code := statusOf(err)
	kind := KindUnknown
	switch {
	case errors.Is(err, ErrNoCandidates):
		kind = KindEmpty
	case code == http.StatusServiceUnavailable:
		kind = KindUnavailable
	case code >= 400 && code < 500:
		kind = KindClient
	}
	return &Error{Kind: kind, Attempts: attempts, StatusCode: code, Err: err}
}

// DegradedReply turns a gateway failure into text that can still be shown to
// the child and stored in the conversation log.
func DegradedReply(err error) string {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return "I got a little lost while thinking. Can you tell me that again?"
	}

	switch gwErr.Kind {
	case KindUnavailable:
		return "So many friends are talking to me right now! Can you tell me again in a moment?"
	case KindClient:
		return fmt.Sprintf("I couldn't hear you clearly just now (code %d). Can you say it once more?", gwErr.StatusCode)
	case KindEmpty:
		return "Hmm, my words got stuck on the way. Can you say that one more time?"
	default:
		return "I got a little lost while thinking. Can you tell me that again?"
	}
}
