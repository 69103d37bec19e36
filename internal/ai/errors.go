package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrMissingCredential is returned when a hosted runtime has no API key.
var ErrMissingCredential = errors.New("api key is missing")

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	s := fmt.Sprintf("api error: status=%d", e.StatusCode)
	if e.Code != "" {
		s += " code=" + e.Code
	}
	if e.RequestID != "" {
		s += " request_id=" + e.RequestID
	}
	if e.Message != "" {
		s += " message=" + e.Message
	}
	return s
}

// FailureKind groups provider failures by what the user can do about them.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureAuth
	FailureRateLimit
	FailureModel
	FailureRequest
	FailureQuota
	FailureUpstream
)

var failureLabels = map[FailureKind]string{
	FailureUnknown:   "provider failure",
	FailureAuth:      "authentication failed",
	FailureRateLimit: "rate limited",
	FailureModel:     "model not available",
	FailureRequest:   "request rejected",
	FailureQuota:     "quota exhausted",
	FailureUpstream:  "provider unavailable",
}

func (k FailureKind) String() string { return failureLabels[k] }

// ProviderError is an APIError the narrator has classified.
type ProviderError struct {
	*APIError
	Kind FailureKind
	// RetryAfter is set for FailureRateLimit when the provider sent one.
	RetryAfter time.Duration
}

func (e *ProviderError) Error() string {
	if e.Kind == FailureRateLimit && e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry in %ds): %v", e.Kind, int(e.RetryAfter.Seconds()), e.APIError)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.APIError)
}

func (e *ProviderError) Unwrap() error { return e.APIError }

// KindOf reports the failure kind of err, or FailureUnknown.
func KindOf(err error) FailureKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return FailureUnknown
}

// UnreachableError means no HTTP response came back at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e.Host != "" {
		return fmt.Sprintf("endpoint unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("endpoint unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }
