package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: gemini
  max_tokens: 8192
  temperature: 0.1
  gemini:
    model: gemini-2.0-flash-exp
embedding:
  provider: gemini
  model: text-embedding-004
matcher:
  confidence_threshold: 0.75
  top_k: 5
extractor:
  chunk_chars: 1500
  max_document_chars: 50000
search:
  api_key: exa-test-key
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"MODEL_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE",
		"GEMINI_MODEL", "EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"CONFIDENCE_THRESHOLD", "MATCH_TOP_K",
		"EXTRACT_CHUNK_CHARS", "EXTRACT_MAX_DOCUMENT_CHARS",
		"EXA_API_KEY", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_PROVIDER":             "gemini",
		"MODEL_MAX_TOKENS":           "8192",
		"MODEL_TEMPERATURE":          "0.1",
		"GEMINI_MODEL":               "gemini-2.0-flash-exp",
		"EMBEDDING_PROVIDER":         "gemini",
		"EMBEDDING_MODEL":            "text-embedding-004",
		"CONFIDENCE_THRESHOLD":       "0.75",
		"MATCH_TOP_K":                "5",
		"EXTRACT_CHUNK_CHARS":        "1500",
		"EXTRACT_MAX_DOCUMENT_CHARS": "50000",
		"EXA_API_KEY":                "exa-test-key",
		"LOG_LEVEL":                  "debug",
		"LOG_FORMAT":                 "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvWins(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: openai
matcher:
  confidence_threshold: 0.9
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MODEL_PROVIDER", "ollama")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.5")

	log := slog.Default()
	if _, err := Load(cfgPath, log); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "ollama" {
		t.Errorf("MODEL_PROVIDER: env var should win over YAML, got %q", got)
	}
	if got := os.Getenv("CONFIDENCE_THRESHOLD"); got != "0.5" {
		t.Errorf("CONFIDENCE_THRESHOLD: env var should win over YAML, got %q", got)
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("model: [not: valid"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	if _, err := Load(cfgPath, log); err == nil {
		t.Error("expected error for malformed YAML, got nil")
	}
}
