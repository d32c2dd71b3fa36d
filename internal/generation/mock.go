package generation

import (
	"context"
	"strings"
)

// MockBackend answers deterministically without calling any service.
// Enabled with USE_MOCK_LLM=true for offline demos.
type MockBackend struct{}

func (MockBackend) Generate(_ context.Context, req Request) (string, error) {
	switch {
	case strings.HasPrefix(req.SystemInstruction, restyleInstruction):
		return "Mock styled note: " + firstLine(req.Prompt), nil
	case strings.HasPrefix(req.SystemInstruction, summarizeInstruction):
		return "Mock summary of the recording.", nil
	case strings.HasPrefix(req.SystemInstruction, actionsInstruction):
		return "- Review the mock transcript", nil
	default:
		return "Mock response.", nil
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
