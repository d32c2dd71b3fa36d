// Package pipeline turns an uploaded recording into a styled note:
// upload, transcription, generation and persistence, in that order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"talknote-go/internal/failure"
	"talknote-go/internal/generation"
	"talknote-go/internal/logger"
	"talknote-go/internal/metrics"
	"talknote-go/internal/storage"
	"talknote-go/internal/transcription"
	"talknote-go/internal/types"
)

type Stage string

const (
	StageUploading    Stage = "uploading"
	StageTranscribing Stage = "transcribing"
	StageGenerating   Stage = "generating"
	StagePersisting   Stage = "persisting"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

type Options struct {
	// Language is the default locale hint for transcription.
	Language string

	// PersistPartial writes a run that fails after transcription as an
	// incomplete note instead of dropping it.
	PersistPartial bool

	// CleanupOnFailure deletes the uploaded recording when a run fails
	// before anything referencing it is stored.
	CleanupOnFailure bool
}

// Result describes one run. On failure Stage is StageFailed, FailedAt names
// the stage that failed and Note holds every artifact computed before it.
type Result struct {
	RunID          string           `json:"run_id"`
	Note           types.NoteRecord `json:"note"`
	Stage          Stage            `json:"stage"`
	FailedAt       Stage            `json:"failed_at,omitempty"`
	Confidence     *float64         `json:"confidence,omitempty"`
	WordCount      int              `json:"word_count"`
	ProcessingTime time.Duration    `json:"processing_time"`
	Warnings       []string         `json:"warnings,omitempty"`
}

func (r *Result) Succeeded() bool { return r != nil && r.Stage == StageDone }

// Pipeline orchestrates the collaborators in Deps. It keeps no per-run
// state, so one Pipeline serves concurrent runs.
type Pipeline struct {
	deps    Deps
	opts    Options
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Pipeline)

func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(deps Deps, opts Options, options ...Option) (*Pipeline, error) {
	switch {
	case deps.Objects == nil:
		return nil, errors.New("pipeline: object store is required")
	case deps.Transcriber == nil:
		return nil, errors.New("pipeline: transcriber is required")
	case deps.Generator == nil:
		return nil, errors.New("pipeline: generator is required")
	case deps.Styles == nil:
		return nil, errors.New("pipeline: style registry is required")
	case deps.Notes == nil:
		return nil, errors.New("pipeline: note store is required")
	}
	p := &Pipeline{deps: deps, opts: opts, log: logger.New(), now: time.Now}
	for _, o := range options {
		o(p)
	}
	p.log = p.log.Component("pipeline")
	return p, nil
}

// run tracks the stage timing and outcome of one pipeline invocation.
type run struct {
	p          *Pipeline
	res        *Result
	log        *logrus.Entry
	start      time.Time
	stage      Stage
	stageStart time.Time
}

func (p *Pipeline) newRun(fields logrus.Fields) *run {
	id := uuid.NewString()
	now := p.now()
	return &run{
		p:     p,
		res:   &Result{RunID: id},
		log:   p.log.WithField("run_id", id).WithFields(fields),
		start: now,
	}
}

func (r *run) enter(stage Stage) {
	now := r.p.now()
	if r.stage != "" {
		r.p.metrics.ObserveStage(string(r.stage), now.Sub(r.stageStart))
	}
	r.stage, r.stageStart = stage, now
	r.res.Stage = stage
	r.log.WithField("stage", stage).Debug("entering stage")
}

func (r *run) warn(msg string) {
	r.res.Warnings = append(r.res.Warnings, msg)
	r.log.Warn(msg)
}

func (r *run) fail(err error) (*Result, error) {
	if r.res.Note.Status == types.NoteStatusComplete {
		r.res.Note.Status = types.NoteStatusIncomplete
	}
	r.res.FailedAt = r.stage
	r.res.Stage = StageFailed
	r.res.ProcessingTime = r.p.now().Sub(r.start)
	r.p.metrics.RecordRun("failed", string(r.stage))
	r.log.WithFields(logrus.Fields{
		"stage":       r.stage,
		"error":       err.Error(),
		"duration_ms": r.res.ProcessingTime.Milliseconds(),
	}).Error("pipeline run failed")
	return r.res, err
}

func (r *run) done() (*Result, error) {
	r.enter(StageDone)
	r.res.ProcessingTime = r.p.now().Sub(r.start)
	r.p.metrics.RecordRun("done", string(StageDone))
	r.log.WithFields(logrus.Fields{
		"note_id":     r.res.Note.ID,
		"duration_ms": r.res.ProcessingTime.Milliseconds(),
	}).Info("pipeline run completed")
	return r.res, nil
}

// ProcessAudioNote runs Uploading, Transcribing, Generating and Persisting
// for one recording. The returned Result is never nil; on failure it is
// returned together with a failure.Error naming the cause.
func (p *Pipeline) ProcessAudioNote(ctx context.Context, asset types.AudioAsset, styleID string) (*Result, error) {
	r := p.newRun(logrus.Fields{"source": asset.Source, "style": styleID})
	r.enter(StageUploading)
	if len(asset.Content) == 0 {
		return r.fail(failure.Newf(failure.Validation, "process audio note", "audio content is empty"))
	}
	if strings.TrimSpace(styleID) == "" {
		return r.fail(failure.Newf(failure.Validation, "process audio note", "style identifier is required"))
	}

	obj, err := p.deps.Objects.Upload(ctx, storage.Upload{
		Name:        path.Base(asset.Source),
		ContentType: asset.ContentType,
		Body:        asset.Content,
	})
	if err != nil {
		return r.fail(err)
	}
	r.res.Note.AudioURL = obj.URL
	r.res.Note.AudioPublicID = obj.PublicID
	r.log.WithField("public_id", obj.PublicID).Info("audio uploaded")

	locator := asset.Source
	if locator == "" {
		locator = obj.PublicID
	}
	cleanup := func() {
		// A saved incomplete note still points at the recording.
		if !p.opts.CleanupOnFailure || r.res.Note.ID != "" {
			return
		}
		// The run context may be the reason we are failing.
		ctx := context.WithoutCancel(ctx)
		if err := p.deps.Objects.Delete(ctx, obj.PublicID); err != nil {
			r.warn(fmt.Sprintf("cleanup of %s failed: %v", obj.PublicID, err))
		}
	}

	if err := p.transcribe(ctx, r, asset.Content, locator); err != nil {
		cleanup()
		return r.fail(err)
	}

	if err := p.generate(ctx, r, styleID); err != nil {
		p.persistPartial(ctx, r)
		cleanup()
		return r.fail(err)
	}

	r.enter(StagePersisting)
	n := r.res.Note
	n.Status = types.NoteStatusComplete
	saved, err := p.deps.Notes.Create(ctx, n)
	if err != nil {
		// Generated text stays on the result so the caller can save it later.
		return r.fail(asPersistence("create note", err))
	}
	r.res.Note = saved
	return r.done()
}

// ReprocessNote transcribes and restyles a stored note again from its
// uploaded recording and updates it in place.
func (p *Pipeline) ReprocessNote(ctx context.Context, noteID string) (*Result, error) {
	r := p.newRun(logrus.Fields{"note_id": noteID})
	r.enter(StageUploading)

	note, err := p.deps.Notes.FindByID(ctx, noteID)
	if err != nil {
		return r.fail(err)
	}
	r.res.Note = note
	if note.AudioPublicID == "" {
		return r.fail(failure.Newf(failure.Validation, "reprocess note", "note %s has no recording", noteID))
	}
	styleIdent := note.StyleID
	if styleIdent == "" {
		styleIdent = note.StyleName
	}
	if styleIdent == "" {
		return r.fail(failure.Newf(failure.Validation, "reprocess note", "note %s has no style", noteID))
	}
	audio, err := p.deps.Objects.Fetch(ctx, note.AudioPublicID)
	if err != nil {
		return r.fail(err)
	}

	if err := p.transcribe(ctx, r, audio, note.AudioPublicID); err != nil {
		return r.fail(err)
	}
	if err := p.generate(ctx, r, styleIdent); err != nil {
		return r.fail(err)
	}

	r.enter(StagePersisting)
	n := r.res.Note
	n.Status = types.NoteStatusComplete
	saved, err := p.deps.Notes.Update(ctx, n)
	if err != nil {
		return r.fail(asPersistence("update note", err))
	}
	r.res.Note = saved
	return r.done()
}

// TranscribeOnly transcribes a recording without uploading or storing it.
func (p *Pipeline) TranscribeOnly(ctx context.Context, asset types.AudioAsset, language string) (transcription.Result, error) {
	if len(asset.Content) == 0 {
		return transcription.Result{}, failure.Newf(failure.Validation, "transcribe", "audio content is empty")
	}
	if language == "" {
		language = p.opts.Language
	}
	res := p.deps.Transcriber.Transcribe(ctx, transcription.Request{
		Audio:    asset.Content,
		Locator:  asset.Source,
		Language: language,
	})
	if !res.Success {
		return res, transcriptionFailure(res)
	}
	return res, nil
}

// Styled is the generated content for a transcript.
type Styled struct {
	StyledContent string   `json:"styled_content"`
	Summary       string   `json:"summary"`
	ActionItems   string   `json:"action_items"`
	StyleName     string   `json:"style_name"`
	Warnings      []string `json:"warnings,omitempty"`
}

// StyleTranscript runs generation for an existing transcript.
func (p *Pipeline) StyleTranscript(ctx context.Context, transcript, styleIdent string) (*Styled, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, failure.Newf(failure.Validation, "style transcript", "transcript is empty")
	}
	r := p.newRun(logrus.Fields{"style": styleIdent})
	r.res.Note.RawTranscript = transcript
	if err := p.generate(ctx, r, styleIdent); err != nil {
		_, err = r.fail(err)
		return nil, err
	}
	r.done()
	n := r.res.Note
	return &Styled{
		StyledContent: n.StyledContent,
		Summary:       n.Summary,
		ActionItems:   n.ActionItems,
		StyleName:     n.StyleName,
		Warnings:      r.res.Warnings,
	}, nil
}

func (p *Pipeline) transcribe(ctx context.Context, r *run, audio []byte, locator string) error {
	r.enter(StageTranscribing)
	res := p.deps.Transcriber.Transcribe(ctx, transcription.Request{
		Audio:    audio,
		Locator:  locator,
		Language: p.opts.Language,
		OnProgress: func(percent int, elapsed time.Duration) {
			r.log.WithFields(logrus.Fields{
				"progress_percent": percent,
				"elapsed_s":        int(elapsed.Seconds()),
			}).Info("transcription progress")
		},
	})
	if !res.Success {
		return transcriptionFailure(res)
	}
	r.res.Note.RawTranscript = res.Transcript
	r.res.Confidence = res.Confidence
	r.res.WordCount = res.WordCount
	r.log.WithFields(logrus.Fields{
		"mode":       res.Mode,
		"word_count": res.WordCount,
	}).Info("transcription completed")
	return nil
}

// generate resolves the style, then restyles, summarizes and extracts
// actions concurrently. A failed restyle or summary cancels the other
// calls; a failed action list only adds a warning.
func (p *Pipeline) generate(ctx context.Context, r *run, styleIdent string) error {
	r.enter(StageGenerating)
	style, err := p.deps.Styles.FindByNameOrID(ctx, styleIdent)
	if err != nil {
		if failure.Is(err, failure.NotFound) {
			return failure.New(failure.Validation, "resolve style", err)
		}
		return err
	}
	r.res.Note.StyleID = style.ID
	r.res.Note.StyleName = style.Name

	transcript := r.res.Note.RawTranscript
	var (
		styled, summary, actions string
		actionsErr               error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		styled, err = p.deps.Generator.Restyle(gctx, transcript, style)
		return asGeneration(generation.OpRestyle, nonEmpty(styled, err))
	})
	g.Go(func() error {
		var err error
		summary, err = p.deps.Generator.Summarize(gctx, transcript)
		return asGeneration(generation.OpSummarize, nonEmpty(summary, err))
	})
	g.Go(func() error {
		actions, actionsErr = p.deps.Generator.ExtractActions(gctx, transcript)
		return nil
	})
	err = g.Wait()

	// Keep whatever finished, even on failure.
	r.res.Note.StyledContent = styled
	r.res.Note.Summary = summary
	if err != nil {
		return err
	}
	if actionsErr != nil {
		r.warn(fmt.Sprintf("action items unavailable: %v", actionsErr))
		actions = ""
	}
	r.res.Note.ActionItems = actions
	r.res.Note.Title = DeriveTitle(styled)
	r.res.Note.TextNote = types.ComposeTextNote(styled, summary, actions)
	return nil
}

// persistPartial stores an incomplete note when the policy asks for it.
func (p *Pipeline) persistPartial(ctx context.Context, r *run) {
	if !p.opts.PersistPartial || r.res.Note.RawTranscript == "" {
		return
	}
	n := r.res.Note
	n.Status = types.NoteStatusIncomplete
	if n.Title == "" {
		n.Title = DeriveTitle(n.RawTranscript)
	}
	saved, err := p.deps.Notes.Create(context.WithoutCancel(ctx), n)
	if err != nil {
		r.warn(fmt.Sprintf("saving incomplete note failed: %v", err))
		return
	}
	r.res.Note = saved
	r.log.WithField("note_id", saved.ID).Info("incomplete note saved")
}

func transcriptionFailure(res transcription.Result) error {
	err := res.Err
	if err == nil {
		err = errors.New(res.Error)
	}
	return failure.New(failure.UpstreamTranscription, "transcribe", err)
}

func asPersistence(op string, err error) error {
	if _, ok := failure.KindOf(err); ok {
		return err
	}
	return failure.New(failure.Persistence, op, err)
}

// nonEmpty turns a blank successful output into ErrEmptyResponse.
func nonEmpty(out string, err error) error {
	if err == nil && strings.TrimSpace(out) == "" {
		return generation.ErrEmptyResponse
	}
	return err
}

func asGeneration(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := failure.KindOf(err); ok {
		return err
	}
	return failure.New(failure.UpstreamGeneration, op, err)
}
