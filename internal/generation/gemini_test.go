package generation

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/genai"
)

func TestGeminiErrorCarriesStatus(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      int
		retryable bool
	}{
		{"rate limited", genai.APIError{Code: 429, Message: "quota"}, 429, true},
		{"bad request", genai.APIError{Code: 400, Message: "invalid model"}, 400, false},
		{"wrapped server error", fmt.Errorf("generate: %w", genai.APIError{Code: 503}), 503, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geminiError(tt.err)
			var se *StatusError
			if !errors.As(got, &se) || se.Code != tt.code {
				t.Fatalf("geminiError(%v) = %v", tt.err, got)
			}
			if retryable(got) != tt.retryable {
				t.Fatalf("retryable = %v, want %v", !tt.retryable, tt.retryable)
			}
		})
	}

	plain := errors.New("connection reset")
	if got := geminiError(plain); got != plain {
		t.Fatalf("plain error rewritten: %v", got)
	}
}
