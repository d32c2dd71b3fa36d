package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"talknote-go/internal/failure"
	"talknote-go/internal/logger"
	"talknote-go/internal/metrics"
	"talknote-go/internal/retry"
	"talknote-go/internal/types"
)

// Operation names, also used as the failure op and metric label.
const (
	OpRestyle        = "restyle"
	OpSummarize      = "summarize"
	OpExtractActions = "extract_actions"
)

const (
	restyleMaxTokens   = 1500
	summarizeMaxTokens = 300
	actionsMaxTokens   = 500
)

type Config struct {
	// Temperature for restyling. Summaries and action lists always use a
	// lower fixed temperature.
	Temperature float32
	Retry       retry.Policy
}

// Client runs the three generation operations. Each call is independent
// and safe for concurrent use.
type Client struct {
	backend Backend
	cfg     Config
	log     *logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(backend Backend, cfg Config, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, errors.New("generation backend cannot be nil")
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	c := &Client{backend: backend, cfg: cfg, log: logger.New()}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Component("generation")
	return c, nil
}

// Restyle rewrites transcript according to style and returns the generated
// text verbatim.
func (c *Client) Restyle(ctx context.Context, transcript string, style types.StyleDescriptor) (string, error) {
	if strings.TrimSpace(style.Name) == "" {
		return "", failure.Newf(failure.Validation, OpRestyle, "style name is required")
	}
	return c.run(ctx, OpRestyle, transcript, Request{
		SystemInstruction: restyleInstruction + restyleRules,
		Prompt:            restylePrompt(transcript, style),
		MaxTokens:         restyleMaxTokens,
		Temperature:       c.cfg.Temperature,
	})
}

func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	return c.run(ctx, OpSummarize, transcript, Request{
		SystemInstruction: summarizeInstruction + summarizeRules,
		Prompt:            summarizePrompt(transcript),
		MaxTokens:         summarizeMaxTokens,
		Temperature:       0.5,
	})
}

// ExtractActions returns a bullet list, or NoActionItems.
func (c *Client) ExtractActions(ctx context.Context, transcript string) (string, error) {
	out, err := c.run(ctx, OpExtractActions, transcript, Request{
		SystemInstruction: actionsInstruction + actionsRules,
		Prompt:            actionsPrompt(transcript),
		MaxTokens:         actionsMaxTokens,
		Temperature:       0.5,
	})
	if err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimRight(strings.TrimSpace(out), "."), strings.TrimRight(NoActionItems, ".")) {
		return NoActionItems, nil
	}
	return out, nil
}

func (c *Client) run(ctx context.Context, op, transcript string, req Request) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", failure.Newf(failure.Validation, op, "transcript is empty")
	}
	log := c.log.WithFields(logrus.Fields{"op": op, "transcript_length": len(transcript)})
	start := time.Now()

	var out string
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		text, err := c.backend.Generate(ctx, req)
		if err != nil {
			if !retryable(err) {
				return retry.Permanent(err)
			}
			return err
		}
		out = strings.TrimSpace(text)
		if out == "" {
			return ErrEmptyResponse
		}
		return nil
	}, func(err error, next time.Duration) {
		log.WithField("error", err.Error()).WithField("retry_in", next.String()).Warn("generation call failed, retrying")
	})
	if err != nil {
		c.metrics.RecordGenerationFailure(op)
		log.WithField("error", err.Error()).Error("generation failed")
		return "", failure.New(failure.UpstreamGeneration, op, err)
	}
	log.WithFields(logrus.Fields{
		"output_length": len(out),
		"duration_ms":   time.Since(start).Milliseconds(),
	}).Debug("generation completed")
	return out, nil
}
