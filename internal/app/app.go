// Package app builds the service's collaborators from configuration and
// owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"talknote-go/internal/config"
	"talknote-go/internal/encoding"
	"talknote-go/internal/generation"
	"talknote-go/internal/logger"
	"talknote-go/internal/metrics"
	"talknote-go/internal/pipeline"
	"talknote-go/internal/retry"
	"talknote-go/internal/storage"
	"talknote-go/internal/store"
	"talknote-go/internal/transcription"
)

// App holds everything a command or server needs.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	DB       *store.DB
	Notes    *store.NoteStore
	Styles   *store.StyleRegistry
	Objects  storage.ObjectStore
	Pipeline *pipeline.Pipeline

	closers []io.Closer
}

// New wires the application. Close must be called to release the store and
// any upstream clients.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if log == nil {
		log = logger.New()
	}
	a := &App{Config: cfg, Log: log, Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewMetrics(a.Registry)

	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	db, err := store.Open(store.Options{Dir: filepath.Join(cfg.Server.DataDir, "db"), Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db)
	a.Notes = store.NewNoteStore(db)
	a.Styles = store.NewStyleRegistry(db)

	objects, err := a.objectStore(ctx)
	if err != nil {
		return nil, err
	}
	a.Objects = storage.NewRetrying(objects, a.retryPolicy(), log)

	transcriber, err := a.transcriber(ctx)
	if err != nil {
		return nil, err
	}
	generator, err := a.generator(ctx)
	if err != nil {
		return nil, err
	}

	a.Pipeline, err = pipeline.New(pipeline.Deps{
		Objects:     a.Objects,
		Transcriber: transcriber,
		Generator:   generator,
		Styles:      a.Styles,
		Notes:       a.Notes,
	}, pipeline.Options{
		Language:         cfg.Transcription.Language,
		PersistPartial:   cfg.Pipeline.PersistPartial,
		CleanupOnFailure: cfg.Pipeline.CleanupOnFailure,
	}, pipeline.WithLogger(log), pipeline.WithMetrics(a.Metrics))
	if err != nil {
		return nil, err
	}

	log.WithField("storage", cfg.Storage.Backend).
		WithField("provider", a.providerName()).
		WithField("mock_transcribe", cfg.Transcription.Mock).
		Info("application wired")
	ok = true
	return a, nil
}

func (a *App) retryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxRetries = a.Config.Retry.MaxRetries
	p.MaxElapsed = a.Config.Retry.MaxElapsed
	return p
}

func (a *App) objectStore(ctx context.Context) (storage.ObjectStore, error) {
	sc := a.Config.Storage
	switch sc.Backend {
	case config.StorageS3:
		client, err := storage.NewS3Client(ctx, sc.Region, sc.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return storage.NewS3(client, sc.Bucket, sc.Prefix, sc.PublicBaseURL), nil
	case config.StorageLocal:
		local, err := storage.NewLocal(sc.LocalDir)
		if err != nil {
			return nil, fmt.Errorf("local storage: %w", err)
		}
		return local, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
}

func (a *App) transcriber(ctx context.Context) (*transcription.Client, error) {
	tc := a.Config.Transcription
	var backend transcription.Backend
	if tc.Mock {
		a.Log.Warn("USE_MOCK_TRANSCRIBE is set, speech recognition is mocked")
		backend = transcription.MockBackend{}
	} else {
		g, err := transcription.NewGoogleBackend(ctx, tc.CredentialsFile)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g)
		backend = g
	}
	return transcription.NewClient(backend, transcription.Config{
		Language:                 tc.Language,
		Model:                    tc.Model,
		PollInterval:             tc.PollInterval,
		Ceiling:                  tc.Ceiling,
		SizeThresholdMB:          tc.SizeThresholdMB,
		DurationThresholdMinutes: tc.DurationThresholdMinutes,
		BitrateFactors:           BitrateFactors(tc.BitrateFactors),
	}, transcription.WithLogger(a.Log), transcription.WithMetrics(a.Metrics))
}

func (a *App) generator(ctx context.Context) (*generation.Client, error) {
	gc := a.Config.Generation
	var backend generation.Backend
	switch {
	case gc.Mock:
		a.Log.Warn("USE_MOCK_LLM is set, text generation is mocked")
		backend = generation.MockBackend{}
	case gc.Provider == config.ProviderOpenAI:
		b, err := generation.NewOpenAIBackend(gc.OpenAIAPIKey, gc.OpenAIBaseURL, gc.OpenAIModel)
		if err != nil {
			return nil, err
		}
		backend = b
	default:
		b, err := generation.NewGeminiBackend(ctx, gc.GeminiAPIKey, gc.GeminiModel)
		if err != nil {
			return nil, err
		}
		backend = b
	}
	return generation.NewClient(backend, generation.Config{
		Temperature: gc.Temperature,
		Retry:       a.retryPolicy(),
	}, generation.WithLogger(a.Log), generation.WithMetrics(a.Metrics))
}

func (a *App) providerName() string {
	if a.Config.Generation.Mock {
		return "mock"
	}
	return a.Config.Generation.Provider
}

// BitrateFactors overlays configured factors, keyed by encoding tag, on the
// defaults.
func BitrateFactors(overrides map[string]float64) transcription.BitrateFactors {
	f := transcription.DefaultBitrateFactors()
	for tag, v := range overrides {
		f[encoding.Tag(strings.ToUpper(strings.TrimSpace(tag)))] = v
	}
	return f
}

// Close releases resources in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
