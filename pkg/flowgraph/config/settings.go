package config

import (
	"fmt"
	"os"
	"time"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Settings is the typed configuration of the interviewer binary.
type Settings struct {
	Model  ModelSettings
	Retry  RetrySettings
	Store  StoreSettings
	Digest DigestSettings
	Engine EngineSettings
	Log    LogSettings
}

// ModelSettings selects and tunes the language model.
type ModelSettings struct {
	ID          string
	MaxTokens   int
	Temperature float64
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string
	// RequestsPerSecond limits outgoing calls; zero disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// RetrySettings configures the retrying invoker.
type RetrySettings struct {
	Attempts       int
	InitialBackoff time.Duration
}

// StoreSettings selects the session store backend.
type StoreSettings struct {
	Backend     string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
	RedisTTL    time.Duration
}

// DigestSettings configures the question digest cache.
type DigestSettings struct {
	Backend  string
	MaxChars int
	TTL      time.Duration
}

// EngineSettings bounds graph execution.
type EngineSettings struct {
	MaxIterations int
}

// LogSettings configures the slog handler.
type LogSettings struct {
	Level  string
	Format string
}

// DefaultSettings returns the built-in defaults.
func DefaultSettings() Settings {
	return Settings{
		Model: ModelSettings{
			ID:        "claude-sonnet-4-5",
			MaxTokens: 4096,
			APIKeyEnv: "ANTHROPIC_API_KEY",
			Burst:     1,
		},
		Retry: RetrySettings{
			Attempts:       6,
			InitialBackoff: time.Second,
		},
		Store: StoreSettings{
			Backend:     BackendSQLite,
			SQLitePath:  "./interviews.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "interviewflow:thread:",
		},
		Digest: DigestSettings{
			Backend:  BackendMemory,
			MaxChars: 4000,
			TTL:      24 * time.Hour,
		},
		Engine: EngineSettings{
			MaxIterations: 64,
		},
		Log: LogSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// SettingsFrom overlays cfg on the defaults.
//
//	model:   {id, max_tokens, temperature, api_key_env, requests_per_second, burst}
//	retry:   {attempts, initial_backoff}
//	store:   {backend, sqlite_path, redis: {addr, prefix, ttl}}
//	digest:  {backend, max_chars, ttl}
//	engine:  {max_iterations}
//	log:     {level, format}
func SettingsFrom(cfg Config) Settings {
	s := DefaultSettings()

	m := cfg.Section("model")
	s.Model.ID = m.String("id", s.Model.ID)
	s.Model.MaxTokens = m.Int("max_tokens", s.Model.MaxTokens)
	s.Model.Temperature = m.Float("temperature", s.Model.Temperature)
	s.Model.APIKeyEnv = m.String("api_key_env", s.Model.APIKeyEnv)
	s.Model.RequestsPerSecond = m.Float("requests_per_second", s.Model.RequestsPerSecond)
	s.Model.Burst = m.Int("burst", s.Model.Burst)

	r := cfg.Section("retry")
	s.Retry.Attempts = r.Int("attempts", s.Retry.Attempts)
	s.Retry.InitialBackoff = r.Duration("initial_backoff", s.Retry.InitialBackoff)

	st := cfg.Section("store")
	s.Store.Backend = st.String("backend", s.Store.Backend)
	s.Store.SQLitePath = st.String("sqlite_path", s.Store.SQLitePath)
	rd := st.Section("redis")
	s.Store.RedisAddr = rd.String("addr", s.Store.RedisAddr)
	s.Store.RedisPrefix = rd.String("prefix", s.Store.RedisPrefix)
	s.Store.RedisTTL = rd.Duration("ttl", s.Store.RedisTTL)

	d := cfg.Section("digest")
	s.Digest.Backend = d.String("backend", s.Digest.Backend)
	s.Digest.MaxChars = d.Int("max_chars", s.Digest.MaxChars)
	s.Digest.TTL = d.Duration("ttl", s.Digest.TTL)

	s.Engine.MaxIterations = cfg.Section("engine").Int("max_iterations", s.Engine.MaxIterations)

	l := cfg.Section("log")
	s.Log.Level = l.String("level", s.Log.Level)
	s.Log.Format = l.String("format", s.Log.Format)

	return s
}

// Validate reports the first invalid setting.
func (s Settings) Validate() error {
	switch {
	case s.Model.ID == "":
		return fmt.Errorf("model.id is required")
	case s.Model.MaxTokens <= 0:
		return fmt.Errorf("model.max_tokens must be positive, got %d", s.Model.MaxTokens)
	case s.Model.RequestsPerSecond < 0:
		return fmt.Errorf("model.requests_per_second must not be negative")
	case s.Retry.Attempts < 1:
		return fmt.Errorf("retry.attempts must be at least 1, got %d", s.Retry.Attempts)
	case s.Retry.InitialBackoff < 0:
		return fmt.Errorf("retry.initial_backoff must not be negative")
	case s.Engine.MaxIterations < 1:
		return fmt.Errorf("engine.max_iterations must be at least 1")
	}

	switch s.Store.Backend {
	case BackendMemory, BackendRedis:
	case BackendSQLite:
		if s.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q", s.Store.Backend)
	}

	switch s.Digest.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown digest.backend %q", s.Digest.Backend)
	}

	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", s.Log.Format)
	}
	return nil
}

// APIKey reads the model API key from the configured environment variable.
func (s Settings) APIKey() string {
	if s.Model.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(s.Model.APIKeyEnv)
}

// LoadSettings loads .env files, then the optional config file at path,
// and validates the result. Environment references in the file are
// resolved after the .env files are applied.
func LoadSettings(path string) (Settings, error) {
	if err := LoadDotEnv(); err != nil {
		return Settings{}, err
	}

	cfg := New(nil)
	if path != "" {
		var err error
		cfg, err = FromFile(path)
		if err != nil {
			return Settings{}, err
		}
	}

	s := SettingsFrom(cfg)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
