package transcription

import (
	"context"

	"talknote-go/internal/encoding"
)

// Segment is the best alternative of one recognition result.
type Segment struct {
	Transcript string
	Confidence float32
}

// RecognitionConfig is the backend-neutral recognition request configuration.
type RecognitionConfig struct {
	Encoding                   encoding.Tag
	LanguageCode               string
	Model                      string
	SampleRateHertz            int32
	EnableAutomaticPunctuation bool
	EnableWordTimeOffsets      bool
	MaxAlternatives            int32
}

// Backend is a speech recognition service.
type Backend interface {
	Recognize(ctx context.Context, audio []byte, cfg RecognitionConfig) ([]Segment, error)
	SubmitLongRunning(ctx context.Context, audio []byte, cfg RecognitionConfig) (Operation, error)
}

// Operation is a handle to a submitted long-running recognition job.
type Operation interface {
	Name() string
	// Poll fetches the current job status once. A non-nil error means the
	// status could not be fetched; a failed job is reported through
	// OperationStatus.Err with Done set.
	Poll(ctx context.Context) (OperationStatus, error)
	// Wait blocks until the job finishes or ctx is done.
	Wait(ctx context.Context) ([]Segment, error)
}

type OperationStatus struct {
	Done            bool
	Err             error
	HasProgress     bool
	ProgressPercent int
	Segments        []Segment
}
