package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("NATS_ANALYZE_SUBJECT", "")
	t.Setenv("NATS_BULK_SUBJECT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("API_TOKENS", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSAnalyzeSubject != "documents.analyze" {
		t.Fatalf("expected default analyze subject, got %q", cfg.NATSAnalyzeSubject)
	}
	if cfg.NATSBulkSubject != "remediation.bulk" {
		t.Fatalf("expected default bulk subject, got %q", cfg.NATSBulkSubject)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("expected default upload limit 50MiB, got %d", cfg.MaxUploadBytes)
	}
	if len(cfg.APITokens) != 0 {
		t.Fatalf("expected no tokens by default, got %v", cfg.APITokens)
	}
}

func TestLoadParsesTokenPairs(t *testing.T) {
	t.Setenv("API_TOKENS", "secret-1:alice, secret-2:bob,malformed,:noowner")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.APITokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", cfg.APITokens)
	}
	if cfg.APITokens["secret-1"] != "alice" {
		t.Fatalf("expected secret-1 to map to alice, got %q", cfg.APITokens["secret-1"])
	}
	if cfg.APITokens["secret-2"] != "bob" {
		t.Fatalf("expected secret-2 to map to bob, got %q", cfg.APITokens["secret-2"])
	}
}

func TestLoadAppliesFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	overlay := "api_port: \"9999\"\nrate_limit_rps: 5\napi_tokens:\n  file-token: carol\n"
	if err := os.WriteFile(path, []byte(overlay), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("API_PORT", "8081")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "9999" {
		t.Fatalf("expected file overlay to win, got %q", cfg.APIPort)
	}
	if cfg.RateLimitRPS != 5 {
		t.Fatalf("expected rate limit 5, got %d", cfg.RateLimitRPS)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unset overlay field must keep env value, got %q", cfg.LogLevel)
	}
	if cfg.APITokens["file-token"] != "carol" {
		t.Fatalf("expected file tokens to apply, got %v", cfg.APITokens)
	}
}

func TestLoadRejectsBrokenOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: [unclosed"), 0o600); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for broken overlay")
	}
}
