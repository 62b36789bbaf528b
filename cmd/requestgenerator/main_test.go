package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fr0stylo/txcommit/internal/app/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "generator.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaultsToBatchedRequests(t *testing.T) {
	cfg, err := loadConfig(writeConfig(t, "base_url: http://localhost:8090/\nprovider_id: \"7\"\nstream_keys: [a, b]\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8090" {
		t.Fatalf("expected trimmed base url, got %q", cfg.BaseURL)
	}
	if domain.TxType(cfg.PayloadType) != domain.TxBatchAnnouncement {
		t.Fatalf("expected batch announcement default, got %q", cfg.PayloadType)
	}

	first := buildRequest(cfg, 0)
	second := buildRequest(cfg, 1)
	if first.StreamKey != "a" || second.StreamKey != "b" {
		t.Fatalf("expected streams to rotate, got %q then %q", first.StreamKey, second.StreamKey)
	}
	if err := first.Validate(); err != nil {
		t.Fatalf("generated request invalid: %v", err)
	}
}

func TestLoadConfigRejectsBatchedWithoutStreams(t *testing.T) {
	if _, err := loadConfig(writeConfig(t, "base_url: http://x\nprovider_id: \"1\"\n")); err == nil {
		t.Fatalf("expected stream_keys error")
	}
	if _, err := loadConfig(writeConfig(t, "base_url: http://x\nprovider_id: \"1\"\npayload_type: nope\n")); err == nil {
		t.Fatalf("expected payload type error")
	}
}
