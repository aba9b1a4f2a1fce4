package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func mapEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_DefaultsWhenUnset(t *testing.T) {
	t.Parallel()

	cfg := FromEnv(Default(), mapEnv(nil))
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.SummaryChunkChars != 4500 {
		t.Errorf("SummaryChunkChars = %d, want 4500", cfg.SummaryChunkChars)
	}
	if cfg.SummaryTimeout != 60*time.Second || cfg.ExplainTimeout != 40*time.Second || cfg.ProbeTimeout != 10*time.Second {
		t.Errorf("unexpected timeouts: %v %v %v", cfg.SummaryTimeout, cfg.ExplainTimeout, cfg.ProbeTimeout)
	}
	if cfg.MaxRetries != 3 || cfg.RetryBaseDelay != 500*time.Millisecond {
		t.Errorf("unexpected retry settings: %d %v", cfg.MaxRetries, cfg.RetryBaseDelay)
	}
	if cfg.APIToken != "" {
		t.Errorf("expected no token by default, got %q", cfg.APIToken)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Parallel()

	cfg := FromEnv(Default(), mapEnv(map[string]string{
		"HF_API_TOKEN":        "hf_x",
		"HF_API_BASE_URL":     "http://localhost:9000/models/",
		"HF_SUMMARY_MODELS":   " a/one , ,b/two ",
		"SUMMARY_CHUNK_CHARS": "8000",
		"INTER_CHUNK_DELAY":   "0s",
		"MAX_RETRIES":         "not-a-number",
		"CLEANER_VARIANT":     "basic",
	}))

	if cfg.APIToken != "hf_x" {
		t.Errorf("APIToken = %q", cfg.APIToken)
	}
	if cfg.BaseURL != "http://localhost:9000/models" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.BaseURL)
	}
	if want := []string{"a/one", "b/two"}; !reflect.DeepEqual(cfg.SummaryModels, want) {
		t.Errorf("SummaryModels = %q, want %q", cfg.SummaryModels, want)
	}
	if cfg.SummaryChunkChars != 8000 {
		t.Errorf("SummaryChunkChars = %d", cfg.SummaryChunkChars)
	}
	if cfg.InterChunkDelay != 0 {
		t.Errorf("InterChunkDelay = %v, want 0", cfg.InterChunkDelay)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want default on parse error", cfg.MaxRetries)
	}
	if cfg.CleanerVariant != "basic" {
		t.Errorf("CleanerVariant = %q", cfg.CleanerVariant)
	}
}

func TestLoadFile_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "assist.yaml")
	body := []byte("summary_models:\n  - x/primary\n  - x/backup\nsummary_timeout: 15s\nprobe_model: x/probe\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg := Default()
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if want := []string{"x/primary", "x/backup"}; !reflect.DeepEqual(cfg.SummaryModels, want) {
		t.Errorf("SummaryModels = %q", cfg.SummaryModels)
	}
	if cfg.SummaryTimeout != 15*time.Second {
		t.Errorf("SummaryTimeout = %v", cfg.SummaryTimeout)
	}
	if cfg.Probe() != "x/probe" {
		t.Errorf("Probe() = %q", cfg.Probe())
	}
	if cfg.ExplainTimeout != 40*time.Second {
		t.Errorf("ExplainTimeout = %v, want default kept", cfg.ExplainTimeout)
	}
}

func TestLoadFile_MissingFile(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), &cfg); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestRequireSummary(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := cfg.RequireSummary()
	var cerr *Error
	if !errors.As(err, &cerr) || cerr.Key != "HF_API_TOKEN" {
		t.Fatalf("expected HF_API_TOKEN error, got %v", err)
	}
	if !errors.Is(err, ErrMissing) {
		t.Error("expected error to wrap ErrMissing")
	}

	cfg.APIToken = "tok"
	cfg.SummaryModels = nil
	if err := cfg.RequireSummary(); !errors.As(err, &cerr) || cerr.Key != "HF_SUMMARY_MODELS" {
		t.Errorf("expected HF_SUMMARY_MODELS error, got %v", err)
	}

	cfg.ExplainModels = nil
	if err := cfg.RequireExplain(); !errors.As(err, &cerr) || cerr.Key != "HF_EXPLAIN_MODELS" {
		t.Errorf("expected HF_EXPLAIN_MODELS error, got %v", err)
	}

	cfg.BaseURL = ""
	if err := cfg.RequireInference(); !errors.As(err, &cerr) || cerr.Key != "HF_API_BASE_URL" {
		t.Errorf("expected HF_API_BASE_URL error, got %v", err)
	}
}

func TestProbe_FallsBackToFirstSummaryModel(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Probe() != cfg.SummaryModels[0] {
		t.Errorf("Probe() = %q, want %q", cfg.Probe(), cfg.SummaryModels[0])
	}
	cfg.SummaryModels = nil
	if cfg.Probe() != "" {
		t.Errorf("Probe() = %q, want empty", cfg.Probe())
	}
}
