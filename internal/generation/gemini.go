package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var _ Backend = (*GeminiBackend)(nil)

// GeminiBackend implements Backend using the Google Gemini API.
type GeminiBackend struct {
	Client *genai.Client

	// Model should not start with "models/"
	Model string
}

func NewGeminiBackend(ctx context.Context, apiKey, model string) (*GeminiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiBackend{Client: client, Model: model}, nil
}

func (g *GeminiBackend) Generate(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Temperature:     genai.Ptr(req.Temperature),
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(req.SystemInstruction)}}
	}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText(req.Prompt)},
	}}

	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		return "", geminiError(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	t := resp.Candidates[0]
	var sb strings.Builder
	for _, p := range t.Content.Parts {
		if p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w (finish reason %s)", ErrEmptyResponse, t.FinishReason)
	}
	return sb.String(), nil
}

// geminiError exposes the HTTP status of a genai API error so the retry
// policy can tell client errors from transient ones.
func geminiError(err error) error {
	var ae genai.APIError
	if errors.As(err, &ae) && ae.Code > 0 {
		return &StatusError{Code: ae.Code, Err: err}
	}
	return err
}
