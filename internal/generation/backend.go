// Package generation turns transcripts into styled notes, summaries and
// action lists using a text-generation backend.
package generation

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when the backend answers without any text.
var ErrEmptyResponse = errors.New("generation backend returned no text")

type Request struct {
	SystemInstruction string
	Prompt            string
	MaxTokens         int
	Temperature       float32
}

// Backend is a single text-generation call.
type Backend interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// StatusError carries the HTTP status a backend answered with.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string { return fmt.Sprintf("status %d: %v", e.Code, e.Err) }
func (e *StatusError) Unwrap() error { return e.Err }

// retryable reports whether a failed call may succeed if repeated.
// Client errors are final except for timeouts and rate limiting.
func retryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return true
	}
	switch {
	case se.Code == 408, se.Code == 429:
		return true
	case se.Code >= 400 && se.Code < 500:
		return false
	default:
		return true
	}
}
