package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"talknote-go/internal/encoding"
	"talknote-go/internal/logger"
	"talknote-go/internal/metrics"
)

type Mode string

const (
	ModeSync        Mode = "sync"
	ModeLongRunning Mode = "long_running"
)

var (
	ErrEmptyAudio      = errors.New("audio content is empty")
	ErrNoSpeech        = errors.New("no speech detected in audio")
	ErrTimeout         = errors.New("long-running recognition timed out")
	ErrOperationFailed = errors.New("long-running recognition failed")
)

// Config contains transcription client configuration
type Config struct {
	Language                 string
	Model                    string
	PollInterval             time.Duration
	Ceiling                  time.Duration
	SizeThresholdMB          float64
	DurationThresholdMinutes float64
	BitrateFactors           BitrateFactors
}

func (c *Config) applyDefaults() {
	if c.Language == "" {
		c.Language = "en-US"
	}
	if c.Model == "" {
		c.Model = "latest_long"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.Ceiling <= 0 {
		c.Ceiling = 30 * time.Minute
	}
	if c.SizeThresholdMB <= 0 {
		c.SizeThresholdMB = 1
	}
	if c.DurationThresholdMinutes <= 0 {
		c.DurationThresholdMinutes = 1
	}
	if len(c.BitrateFactors) == 0 {
		c.BitrateFactors = DefaultBitrateFactors()
	}
}

// Overrides replace detected or configured recognition settings for one request.
type Overrides struct {
	Encoding        encoding.Tag
	LanguageCode    string
	Model           string
	SampleRateHertz int32
	Mode            Mode
}

type Request struct {
	Audio    []byte
	Locator  string // file name or URL, used for encoding detection
	Language string // locale hint, e.g. "en-GB"

	Overrides *Overrides

	// OnProgress, when set, receives strictly increasing progress percentages
	// of a long-running job.
	OnProgress func(percent int, elapsed time.Duration)
}

// Result is produced once per transcription request. Success is false for
// every failure, including an audio file with no detectable speech.
type Result struct {
	Transcript            string       `json:"transcript"`
	Confidence            *float64     `json:"confidence,omitempty"`
	Success               bool         `json:"success"`
	Error                 string       `json:"error,omitempty"`
	ProcessingTimeSeconds float64      `json:"processing_time_seconds,omitempty"`
	WordCount             int          `json:"word_count"`
	ResultCount           int          `json:"result_count"`
	Mode                  Mode         `json:"mode"`
	Encoding              encoding.Tag `json:"encoding"`
	EstimatedMinutes      float64      `json:"estimated_minutes"`

	Err error `json:"-"`
}

func (r *Result) fail(err error) {
	r.Success = false
	r.Err = err
	r.Error = err.Error()
}

// Client wraps a speech backend and chooses between synchronous and
// long-running recognition.
type Client struct {
	cfg     Config
	backend Backend
	clock   Clock
	log     *logger.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a transcription client over backend.
func NewClient(backend Backend, cfg Config, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, errors.New("transcription backend cannot be nil")
	}
	cfg.applyDefaults()
	if cfg.Ceiling < cfg.PollInterval {
		return nil, fmt.Errorf("ceiling %s is shorter than poll interval %s", cfg.Ceiling, cfg.PollInterval)
	}
	c := &Client{
		cfg:     cfg,
		backend: backend,
		clock:   systemClock{},
		log:     logger.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Component("transcription")
	return c, nil
}

// Plan reports the encoding, estimated duration and mode a request would use.
func (c *Client) Plan(req Request) (RecognitionConfig, float64, Mode) {
	rc := c.recognitionConfig(req)
	sizeMB := MegaBytes(len(req.Audio))
	est := c.cfg.BitrateFactors.EstimateMinutes(sizeMB, rc.Encoding)
	mode := SelectMode(sizeMB, est, c.cfg.SizeThresholdMB, c.cfg.DurationThresholdMinutes)
	if req.Overrides != nil && req.Overrides.Mode != "" {
		mode = req.Overrides.Mode
	}
	return rc, est, mode
}

// Transcribe never returns a Go error: every failure, from a rejected
// request to a timed out job, comes back as a Result with Success false and
// Err set.
func (c *Client) Transcribe(ctx context.Context, req Request) Result {
	start := c.clock.Now()
	rc, est, mode := c.Plan(req)
	res := Result{Mode: mode, Encoding: rc.Encoding, EstimatedMinutes: est}

	if len(req.Audio) == 0 {
		res.fail(ErrEmptyAudio)
		return res
	}

	log := c.log.WithFields(logrus.Fields{
		"locator":           req.Locator,
		"encoding":          rc.Encoding,
		"size_mb":           fmt.Sprintf("%.2f", MegaBytes(len(req.Audio))),
		"estimated_minutes": fmt.Sprintf("%.1f", est),
		"mode":              mode,
	})
	log.Info("starting transcription")
	c.metrics.RecordTranscription(string(mode))

	var (
		segments []Segment
		err      error
	)
	switch mode {
	case ModeLongRunning:
		rc.EnableWordTimeOffsets = false
		rc.MaxAlternatives = 1
		segments, err = c.longRunning(ctx, req, rc, log)
	default:
		segments, err = c.backend.Recognize(ctx, req.Audio, rc)
		if err != nil {
			err = fmt.Errorf("recognize: %w", err)
		}
	}
	res.ProcessingTimeSeconds = c.clock.Now().Sub(start).Seconds()

	if err != nil {
		log.WithField("error", err.Error()).Warn("transcription failed")
		res.fail(err)
		return res
	}
	if len(segments) == 0 {
		log.Warn("no speech results returned")
		res.fail(ErrNoSpeech)
		return res
	}

	res.Success = true
	res.Transcript = joinSegments(segments)
	res.ResultCount = len(segments)
	res.WordCount = len(strings.Fields(res.Transcript))
	if conf := segments[0].Confidence; conf > 0 {
		v := float64(conf)
		res.Confidence = &v
	}
	log.WithFields(logrus.Fields{
		"result_count":      res.ResultCount,
		"transcript_length": len(res.Transcript),
		"processing_s":      fmt.Sprintf("%.1f", res.ProcessingTimeSeconds),
	}).Info("transcription completed")
	return res
}

func (c *Client) recognitionConfig(req Request) RecognitionConfig {
	rc := RecognitionConfig{
		Encoding:                   encoding.Detect(req.Locator, headerOf(req.Audio)),
		LanguageCode:               c.cfg.Language,
		Model:                      c.cfg.Model,
		EnableAutomaticPunctuation: true,
	}
	if req.Language != "" {
		rc.LanguageCode = req.Language
	}
	if o := req.Overrides; o != nil {
		if o.Encoding != "" {
			rc.Encoding = o.Encoding
		}
		if o.LanguageCode != "" {
			rc.LanguageCode = o.LanguageCode
		}
		if o.Model != "" {
			rc.Model = o.Model
		}
		if o.SampleRateHertz > 0 {
			rc.SampleRateHertz = o.SampleRateHertz
		}
	}
	return rc
}

func headerOf(audio []byte) []byte {
	if len(audio) > encoding.HeaderSize {
		return audio[:encoding.HeaderSize]
	}
	return audio
}

func joinSegments(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Transcript)
	}
	return strings.Join(parts, "\n")
}
