package translate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"
)

// ProviderError is returned by backends when a request does not produce a
// usable translation.
type ProviderError struct {
	// Provider is the provider ID.
	Provider string
	// Status is the HTTP status code, 0 when no response was received.
	Status int
	// Retryable marks failures that may succeed on a later attempt.
	Retryable bool
	// RetryAfter is the delay requested by the server, if any.
	RetryAfter time.Duration
	Err        error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "transient"
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the request may be retried.
func (e *ProviderError) Transient() bool { return e.Retryable }

// RetryAfterHint returns the server-requested delay before the next attempt.
func (e *ProviderError) RetryAfterHint() time.Duration { return e.RetryAfter }

// ErrEmptyResponse is wrapped when a provider answers with no text.
var ErrEmptyResponse = errors.New("empty translation in response")

// IsTransientStatus reports HTTP statuses worth retrying: 408, 429 and 5xx.
func IsTransientStatus(status int) bool {
	return status == http.StatusRequestTimeout ||
		status == http.StatusTooManyRequests ||
		status >= 500
}

// statusError classifies a non-200 reply.
func statusError(provider string, status int, body []byte, retryAfter time.Duration) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Status:     status,
		Retryable:  IsTransientStatus(status),
		RetryAfter: retryAfter,
		Err:        fmt.Errorf("API returned status %d: %s", status, truncate(string(body), 500)),
	}
}

// transportError classifies a failure to get any reply. Deadline expiry is
// transient; caller cancellation is passed through unwrapped.
func transportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &ProviderError{Provider: provider, Retryable: true, Err: err}
}

func decodeError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Status: http.StatusOK, Err: err}
}

func emptyError(provider string) *ProviderError {
	return &ProviderError{Provider: provider, Status: http.StatusOK, Retryable: true, Err: ErrEmptyResponse}
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
