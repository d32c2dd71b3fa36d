package transcription

import (
	"context"
	"fmt"
	"strconv"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"talknote-go/internal/encoding"
)

var _ Backend = (*GoogleBackend)(nil)

// GoogleBackend implements Backend with Google Cloud Speech-to-Text v1.
type GoogleBackend struct {
	client *speech.Client
}

// NewGoogleBackend dials the speech API. An empty credentialsFile uses
// application default credentials.
func NewGoogleBackend(ctx context.Context, credentialsFile string) (*GoogleBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleBackend{client: client}, nil
}

func (g *GoogleBackend) Close() error {
	return g.client.Close()
}

func (g *GoogleBackend) Recognize(ctx context.Context, audio []byte, cfg RecognitionConfig) ([]Segment, error) {
	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: toSpeechConfig(cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return nil, speechError(err)
	}
	return segmentsOf(resp.GetResults()), nil
}

func (g *GoogleBackend) SubmitLongRunning(ctx context.Context, audio []byte, cfg RecognitionConfig) (Operation, error) {
	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: toSpeechConfig(cfg),
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return nil, speechError(err)
	}
	return &googleOperation{op: op}, nil
}

type googleOperation struct {
	op *speech.LongRunningRecognizeOperation
}

func (o *googleOperation) Name() string { return o.op.Name() }

func (o *googleOperation) Poll(ctx context.Context) (OperationStatus, error) {
	resp, err := o.op.Poll(ctx)
	if err != nil {
		// A finished operation carrying an error is a job failure; anything
		// else is a failure to fetch the status.
		if o.op.Done() {
			return OperationStatus{Done: true, Err: speechError(err)}, nil
		}
		return OperationStatus{}, speechError(err)
	}
	if o.op.Done() {
		return OperationStatus{Done: true, Segments: segmentsOf(resp.GetResults())}, nil
	}
	st := OperationStatus{}
	if md, err := o.op.Metadata(); err == nil && md != nil {
		st.HasProgress = true
		st.ProgressPercent = int(md.GetProgressPercent())
	}
	return st, nil
}

func (o *googleOperation) Wait(ctx context.Context) ([]Segment, error) {
	resp, err := o.op.Wait(ctx)
	if err != nil {
		return nil, speechError(err)
	}
	return segmentsOf(resp.GetResults()), nil
}

// speechError prefixes an API error with its status code and reason.
// Other errors are returned unchanged.
func speechError(err error) error {
	ae, ok := apierror.FromError(err)
	if !ok {
		return err
	}
	var code string
	if st := ae.GRPCStatus(); st != nil {
		code = st.Code().String()
	} else if c := ae.HTTPCode(); c > 0 {
		code = strconv.Itoa(c)
	}
	if r := ae.Reason(); r != "" {
		code += " " + r
	}
	if code == "" {
		return err
	}
	return fmt.Errorf("speech api %s: %w", code, ae)
}

func toSpeechConfig(cfg RecognitionConfig) *speechpb.RecognitionConfig {
	return &speechpb.RecognitionConfig{
		Encoding:                   toSpeechEncoding(cfg.Encoding),
		SampleRateHertz:            cfg.SampleRateHertz,
		LanguageCode:               cfg.LanguageCode,
		Model:                      cfg.Model,
		EnableAutomaticPunctuation: cfg.EnableAutomaticPunctuation,
		EnableWordTimeOffsets:      cfg.EnableWordTimeOffsets,
		MaxAlternatives:            cfg.MaxAlternatives,
	}
}

func toSpeechEncoding(tag encoding.Tag) speechpb.RecognitionConfig_AudioEncoding {
	switch tag {
	case encoding.Linear16:
		return speechpb.RecognitionConfig_LINEAR16
	case encoding.MP3:
		return speechpb.RecognitionConfig_MP3
	case encoding.OggOpus:
		return speechpb.RecognitionConfig_OGG_OPUS
	case encoding.WebmOpus:
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}

func segmentsOf(results []*speechpb.SpeechRecognitionResult) []Segment {
	out := make([]Segment, 0, len(results))
	for _, r := range results {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		out = append(out, Segment{Transcript: alts[0].GetTranscript(), Confidence: alts[0].GetConfidence()})
	}
	return out
}
