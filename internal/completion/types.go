// Package completion turns a prompt into generated text through a hosted
// completion API.
package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Completer is the interface the dispatcher talks to.
type Completer interface {
	// Complete sends prompt and returns the whitespace-trimmed text of the
	// first choice.
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a plain function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrMalformedResponse is wrapped when the API answers without any choice.
var ErrMalformedResponse = errors.New("response has no choices")

// UpstreamError is returned for every failed completion call: network
// failure, timeout, authentication failure, API error or malformed response.
type UpstreamError struct {
	Op     string // "completions" or "chat"
	Status int    // HTTP status, 0 when no response was received
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("completion %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("completion %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsAuth reports whether the API rejected the credentials.
func (e *UpstreamError) IsAuth() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Timeout reports whether the call ran past its deadline.
func (e *UpstreamError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}
