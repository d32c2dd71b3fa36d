// Package config loads service settings from the environment, with an
// optional YAML file for tunables that do not fit in a single variable.
//
// Precedence is defaults, then the YAML file named by CONFIG_FILE, then
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	StorageS3    = "s3"
	StorageLocal = "local"
)

// Generation providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config is the full service configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Generation    GenerationConfig    `yaml:"generation"`
	Retry         RetryConfig         `yaml:"retry"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`
}

type StorageConfig struct {
	Backend       string `yaml:"backend"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
	Endpoint      string `yaml:"endpoint"`
	PublicBaseURL string `yaml:"public_base_url"`
	LocalDir      string `yaml:"local_dir"`
}

type TranscriptionConfig struct {
	Language                 string             `yaml:"language"`
	Model                    string             `yaml:"model"`
	CredentialsFile          string             `yaml:"credentials_file"`
	PollInterval             time.Duration      `yaml:"poll_interval"`
	Ceiling                  time.Duration      `yaml:"long_running_ceiling"`
	SizeThresholdMB          float64            `yaml:"size_threshold_mb"`
	DurationThresholdMinutes float64            `yaml:"duration_threshold_min"`
	BitrateFactors           map[string]float64 `yaml:"bitrate_factors"`
	Mock                     bool               `yaml:"mock"`
}

type GenerationConfig struct {
	Provider      string  `yaml:"provider"`
	GeminiAPIKey  string  `yaml:"gemini_api_key"`
	GeminiModel   string  `yaml:"gemini_model"`
	OpenAIAPIKey  string  `yaml:"openai_api_key"`
	OpenAIModel   string  `yaml:"openai_model"`
	OpenAIBaseURL string  `yaml:"openai_base_url"`
	Temperature   float32 `yaml:"temperature"`
	Mock          bool    `yaml:"mock"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

type PipelineConfig struct {
	PersistPartial   bool `yaml:"persist_partial"`
	CleanupOnFailure bool `yaml:"cleanup_on_failure"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080", DataDir: "data"},
		Storage: StorageConfig{
			Backend:  StorageLocal,
			Prefix:   "talknotes",
			Region:   "us-east-1",
			LocalDir: "data/objects",
		},
		Transcription: TranscriptionConfig{
			Language:                 "en-US",
			Model:                    "latest_long",
			PollInterval:             10 * time.Second,
			Ceiling:                  30 * time.Minute,
			SizeThresholdMB:          1,
			DurationThresholdMinutes: 1,
		},
		Generation: GenerationConfig{
			Provider:    ProviderGemini,
			GeminiModel: "gemini-2.0-flash",
			OpenAIModel: "gpt-4o-mini",
			Temperature: 0.7,
		},
		Retry:    RetryConfig{MaxRetries: 2, MaxElapsed: 20 * time.Second},
		Pipeline: PipelineConfig{CleanupOnFailure: true},
	}
}

// Load reads the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.LookupEnv)
}

// LoadFrom builds a Config from defaults, the optional CONFIG_FILE overlay and
// the variables returned by lookup.
func LoadFrom(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.overlay(path); err != nil {
			return nil, err
		}
	}

	e := env{lookup: lookup}
	e.str("PORT", &cfg.Server.Port)
	e.str("DATA_DIR", &cfg.Server.DataDir)

	e.str("STORAGE_BACKEND", &cfg.Storage.Backend)
	e.str("S3_BUCKET", &cfg.Storage.Bucket)
	e.str("S3_PREFIX", &cfg.Storage.Prefix)
	e.str("S3_REGION", &cfg.Storage.Region)
	e.str("S3_ENDPOINT", &cfg.Storage.Endpoint)
	e.str("S3_PUBLIC_BASE_URL", &cfg.Storage.PublicBaseURL)
	e.str("LOCAL_STORAGE_DIR", &cfg.Storage.LocalDir)

	e.str("SPEECH_LANGUAGE", &cfg.Transcription.Language)
	e.str("SPEECH_MODEL", &cfg.Transcription.Model)
	e.str("GOOGLE_APPLICATION_CREDENTIALS", &cfg.Transcription.CredentialsFile)
	e.duration("POLL_INTERVAL", &cfg.Transcription.PollInterval)
	e.duration("LONG_RUNNING_CEILING", &cfg.Transcription.Ceiling)
	e.float("SIZE_THRESHOLD_MB", &cfg.Transcription.SizeThresholdMB)
	e.float("DURATION_THRESHOLD_MIN", &cfg.Transcription.DurationThresholdMinutes)
	e.boolean("USE_MOCK_TRANSCRIBE", &cfg.Transcription.Mock)

	e.str("GENERATION_PROVIDER", &cfg.Generation.Provider)
	e.str("GEMINI_API_KEY", &cfg.Generation.GeminiAPIKey)
	e.str("GEMINI_MODEL", &cfg.Generation.GeminiModel)
	e.str("OPENAI_API_KEY", &cfg.Generation.OpenAIAPIKey)
	e.str("OPENAI_MODEL", &cfg.Generation.OpenAIModel)
	e.str("OPENAI_BASE_URL", &cfg.Generation.OpenAIBaseURL)
	e.float32("TEMPERATURE", &cfg.Generation.Temperature)
	e.boolean("USE_MOCK_LLM", &cfg.Generation.Mock)

	e.integer("RETRY_MAX", &cfg.Retry.MaxRetries)
	e.duration("RETRY_MAX_ELAPSED", &cfg.Retry.MaxElapsed)

	e.boolean("PERSIST_PARTIAL", &cfg.Pipeline.PersistPartial)
	e.boolean("CLEANUP_ON_FAILURE", &cfg.Pipeline.CleanupOnFailure)

	if len(e.errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(e.errs, "; "))
	}

	cfg.Storage.Backend = strings.ToLower(cfg.Storage.Backend)
	cfg.Generation.Provider = strings.ToLower(cfg.Generation.Provider)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}
	if err := c.Generation.Validate(); err != nil {
		return fmt.Errorf("generation config: %w", err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	return nil
}

func (s *ServerConfig) Validate() error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", s.Port)
	}
	if s.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	return nil
}

func (s *StorageConfig) Validate() error {
	switch s.Backend {
	case StorageS3:
		if s.Bucket == "" {
			return fmt.Errorf("bucket is required for the s3 backend")
		}
	case StorageLocal:
		if s.LocalDir == "" {
			return fmt.Errorf("local_dir is required for the local backend")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", StorageS3, StorageLocal, s.Backend)
	}
	return nil
}

func (t *TranscriptionConfig) Validate() error {
	if t.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if t.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", t.PollInterval)
	}
	if t.Ceiling < t.PollInterval {
		return fmt.Errorf("long_running_ceiling (%s) must be at least poll_interval (%s)", t.Ceiling, t.PollInterval)
	}
	if t.SizeThresholdMB <= 0 {
		return fmt.Errorf("size_threshold_mb must be positive, got %g", t.SizeThresholdMB)
	}
	if t.DurationThresholdMinutes <= 0 {
		return fmt.Errorf("duration_threshold_min must be positive, got %g", t.DurationThresholdMinutes)
	}
	for tag, f := range t.BitrateFactors {
		if f <= 0 {
			return fmt.Errorf("bitrate factor for %s must be positive, got %g", tag, f)
		}
	}
	return nil
}

func (g *GenerationConfig) Validate() error {
	if g.Temperature < 0 || g.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %g", g.Temperature)
	}
	if g.Mock {
		return nil
	}
	switch g.Provider {
	case ProviderGemini:
		if g.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	case ProviderOpenAI:
		if g.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("provider must be %q or %q, got %q", ProviderGemini, ProviderOpenAI, g.Provider)
	}
	return nil
}

func (r *RetryConfig) Validate() error {
	if r.MaxRetries < 0 || r.MaxRetries > 10 {
		return fmt.Errorf("max_retries must be between 0 and 10, got %d", r.MaxRetries)
	}
	if r.MaxElapsed <= 0 {
		return fmt.Errorf("max_elapsed must be positive, got %s", r.MaxElapsed)
	}
	return nil
}

// env applies set, non-empty variables and collects parse errors.
type env struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *env) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Sprintf("%s=%q: %v", key, v, err))
}

func (e *env) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *env) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *env) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *env) float(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *env) float32(key string, dst *float32) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = float32(f)
	}
}

// duration accepts Go durations ("10s") or a bare number of seconds.
func (e *env) duration(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(n) * time.Second
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}
