// Package config loads the assist service configuration.
//
// Sources, lowest to highest precedence:
//   - built-in defaults (Default)
//   - a YAML file named by ASSIST_CONFIG_FILE
//   - environment variables, after a local .env file is merged in
//
// Environment variables:
//
//	HF_API_TOKEN        — Hugging Face bearer token (required for inference)
//	HF_API_BASE_URL     — model endpoint base (default: https://api-inference.huggingface.co/models)
//	HF_SUMMARY_MODELS   — comma-separated summary models, in priority order
//	HF_EXPLAIN_MODELS   — comma-separated explanation models, in priority order
//	HF_PROBE_MODEL      — model used by the connectivity probe (default: first summary model)
//	SUMMARY_CHUNK_CHARS — max characters per summary chunk (default: 4500)
//	SUMMARY_MAX_LENGTH  — default summary max_length parameter (default: 300)
//	SUMMARY_MIN_LENGTH  — default summary min_length parameter (default: 80)
//	SUMMARY_TIMEOUT     — per-chunk request timeout (default: 60s)
//	EXPLAIN_TIMEOUT     — explanation request timeout (default: 40s)
//	PROBE_TIMEOUT       — connectivity probe timeout (default: 10s)
//	INTER_CHUNK_DELAY   — pause between successful chunk calls (default: 400ms)
//	MAX_RETRIES         — transport retries beyond the first attempt (default: 3)
//	RETRY_BASE_DELAY    — first backoff delay (default: 500ms)
//	RETRY_MAX_DELAY     — backoff cap (default: 8s)
//	CLEANER_VARIANT     — "basic" or "extended" (default: extended)
//	GRPC_PORT           — gRPC server port (default: 50051)
//	HTTP_PORT           — HTTP API and metrics port (default: 8080)
//	REDIS_ADDR          — summary store address; empty disables the store
//	REDIS_PASSWORD      — Redis password (default: "")
//	REDIS_DB            — Redis database (default: 0)
//	SUMMARY_STORE_TTL   — stored summary lifetime (default: 168h)
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the hosted Hugging Face inference endpoint.
const DefaultBaseURL = "https://api-inference.huggingface.co/models"

const (
	envKeyToken      = "HF_API_TOKEN"
	envKeyBaseURL    = "HF_API_BASE_URL"
	envKeySummary    = "HF_SUMMARY_MODELS"
	envKeyExplain    = "HF_EXPLAIN_MODELS"
	envKeyProbe      = "HF_PROBE_MODEL"
	envKeyConfigFile = "ASSIST_CONFIG_FILE"
	envKeyChunkChars = "SUMMARY_CHUNK_CHARS"
	envKeySummaryMax = "SUMMARY_MAX_LENGTH"
	envKeySummaryMin = "SUMMARY_MIN_LENGTH"
	envKeySummaryTO  = "SUMMARY_TIMEOUT"
	envKeyExplainTO  = "EXPLAIN_TIMEOUT"
	envKeyProbeTO    = "PROBE_TIMEOUT"
	envKeyChunkDelay = "INTER_CHUNK_DELAY"
	envKeyMaxRetries = "MAX_RETRIES"
	envKeyRetryBase  = "RETRY_BASE_DELAY"
	envKeyRetryMax   = "RETRY_MAX_DELAY"
	envKeyCleaner    = "CLEANER_VARIANT"
	envKeyGRPCPort   = "GRPC_PORT"
	envKeyHTTPPort   = "HTTP_PORT"
	envKeyRedisAddr  = "REDIS_ADDR"
	envKeyRedisPass  = "REDIS_PASSWORD"
	envKeyRedisDB    = "REDIS_DB"
	envKeyStoreTTL   = "SUMMARY_STORE_TTL"
)

// ErrMissing is wrapped by every *Error.
var ErrMissing = errors.New("required configuration missing")

// Error reports a required setting that is not configured.
type Error struct {
	Key string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s is not set", e.Key)
}

func (e *Error) Unwrap() error { return ErrMissing }

// Config holds runtime configuration for the assist service.
type Config struct {
	APIToken      string   `yaml:"api_token"`
	BaseURL       string   `yaml:"base_url"`
	SummaryModels []string `yaml:"summary_models"`
	ExplainModels []string `yaml:"explain_models"`
	ProbeModel    string   `yaml:"probe_model"`

	SummaryChunkChars int `yaml:"summary_chunk_chars"`
	SummaryMaxLength  int `yaml:"summary_max_length"`
	SummaryMinLength  int `yaml:"summary_min_length"`
	ExplainMaxLength  int `yaml:"explain_max_length"`
	ExplainMinLength  int `yaml:"explain_min_length"`

	SummaryTimeout  time.Duration `yaml:"summary_timeout"`
	ExplainTimeout  time.Duration `yaml:"explain_timeout"`
	ProbeTimeout    time.Duration `yaml:"probe_timeout"`
	InterChunkDelay time.Duration `yaml:"inter_chunk_delay"`

	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`

	CleanerVariant string `yaml:"cleaner_variant"`

	GRPCPort string `yaml:"grpc_port"`
	HTTPPort string `yaml:"http_port"`

	RedisAddr       string        `yaml:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password"`
	RedisDB         int           `yaml:"redis_db"`
	SummaryStoreTTL time.Duration `yaml:"summary_store_ttl"`
}

// Default returns the built-in configuration. It has no API token.
func Default() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		SummaryModels:     []string{"facebook/bart-large-cnn", "sshleifer/distilbart-cnn-12-6", "google/pegasus-xsum"},
		ExplainModels:     []string{"google/flan-t5-large", "facebook/bart-large-cnn"},
		SummaryChunkChars: 4500,
		SummaryMaxLength:  300,
		SummaryMinLength:  80,
		ExplainMaxLength:  180,
		ExplainMinLength:  60,
		SummaryTimeout:    60 * time.Second,
		ExplainTimeout:    40 * time.Second,
		ProbeTimeout:      10 * time.Second,
		InterChunkDelay:   400 * time.Millisecond,
		MaxRetries:        3,
		RetryBaseDelay:    500 * time.Millisecond,
		RetryMaxDelay:     8 * time.Second,
		CleanerVariant:    "extended",
		GRPCPort:          "50051",
		HTTPPort:          "8080",
		SummaryStoreTTL:   7 * 24 * time.Hour,
	}
}

// Load merges .env, the optional YAML file and the environment over Default.
// A missing API token is not a load error; it is reported when inference is attempted.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(envKeyConfigFile); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	return FromEnv(cfg, os.Getenv), nil
}

// LoadFile decodes the YAML file at path over cfg. Keys absent from the file
// keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// FromEnv applies environment overrides from getenv onto base.
func FromEnv(base Config, getenv func(string) string) Config {
	e := envReader(getenv)
	cfg := base

	cfg.APIToken = e.str(envKeyToken, cfg.APIToken)
	cfg.BaseURL = strings.TrimRight(e.str(envKeyBaseURL, cfg.BaseURL), "/")
	cfg.SummaryModels = e.list(envKeySummary, cfg.SummaryModels)
	cfg.ExplainModels = e.list(envKeyExplain, cfg.ExplainModels)
	cfg.ProbeModel = e.str(envKeyProbe, cfg.ProbeModel)

	cfg.SummaryChunkChars = e.int(envKeyChunkChars, cfg.SummaryChunkChars)
	cfg.SummaryMaxLength = e.int(envKeySummaryMax, cfg.SummaryMaxLength)
	cfg.SummaryMinLength = e.int(envKeySummaryMin, cfg.SummaryMinLength)

	cfg.SummaryTimeout = e.duration(envKeySummaryTO, cfg.SummaryTimeout)
	cfg.ExplainTimeout = e.duration(envKeyExplainTO, cfg.ExplainTimeout)
	cfg.ProbeTimeout = e.duration(envKeyProbeTO, cfg.ProbeTimeout)
	cfg.InterChunkDelay = e.duration(envKeyChunkDelay, cfg.InterChunkDelay)

	cfg.MaxRetries = e.int(envKeyMaxRetries, cfg.MaxRetries)
	cfg.RetryBaseDelay = e.duration(envKeyRetryBase, cfg.RetryBaseDelay)
	cfg.RetryMaxDelay = e.duration(envKeyRetryMax, cfg.RetryMaxDelay)

	cfg.CleanerVariant = e.str(envKeyCleaner, cfg.CleanerVariant)
	cfg.GRPCPort = e.str(envKeyGRPCPort, cfg.GRPCPort)
	cfg.HTTPPort = e.str(envKeyHTTPPort, cfg.HTTPPort)

	cfg.RedisAddr = e.str(envKeyRedisAddr, cfg.RedisAddr)
	cfg.RedisPassword = e.str(envKeyRedisPass, cfg.RedisPassword)
	cfg.RedisDB = e.int(envKeyRedisDB, cfg.RedisDB)
	cfg.SummaryStoreTTL = e.duration(envKeyStoreTTL, cfg.SummaryStoreTTL)

	return cfg
}

// Probe returns the model used by the connectivity probe.
func (c Config) Probe() string {
	if c.ProbeModel != "" {
		return c.ProbeModel
	}
	if len(c.SummaryModels) > 0 {
		return c.SummaryModels[0]
	}
	return ""
}

// RequireInference reports the first missing setting needed to reach the API.
func (c Config) RequireInference() error {
	if c.APIToken == "" {
		return &Error{Key: envKeyToken}
	}
	if c.BaseURL == "" {
		return &Error{Key: envKeyBaseURL}
	}
	return nil
}

// RequireSummary is RequireInference plus a non-empty summary model list.
func (c Config) RequireSummary() error {
	if err := c.RequireInference(); err != nil {
		return err
	}
	if len(c.SummaryModels) == 0 {
		return &Error{Key: envKeySummary}
	}
	return nil
}

// RequireExplain is RequireInference plus a non-empty explanation model list.
func (c Config) RequireExplain() error {
	if err := c.RequireInference(); err != nil {
		return err
	}
	if len(c.ExplainModels) == 0 {
		return &Error{Key: envKeyExplain}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type envReader func(string) string

func (e envReader) str(key, defaultVal string) string {
	if v := e(key); v != "" {
		return v
	}
	return defaultVal
}

func (e envReader) int(key string, defaultVal int) int {
	if v := e(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func (e envReader) duration(key string, defaultVal time.Duration) time.Duration {
	if v := e(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func (e envReader) list(key string, defaultVal []string) []string {
	if keys := splitList(e(key)); len(keys) > 0 {
		return keys
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
