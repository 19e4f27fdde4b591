package twin

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  base_url: "https://twin.example.com"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.SocketURL != "wss://twin.example.com/api/voice/ws" {
		t.Fatalf("socket url = %q", cfg.Server.SocketURL)
	}
	if cfg.Server.StatusPath != "/api/voice/status" {
		t.Fatalf("status path = %q", cfg.Server.StatusPath)
	}
	if cfg.Audio.ChunkIntervalMS != 500 {
		t.Fatalf("chunk interval = %d, want 500", cfg.Audio.ChunkIntervalMS)
	}
	if cfg.Server.StatusTTLMS != 30000 {
		t.Fatalf("status ttl = %d, want 30000", cfg.Server.StatusTTLMS)
	}
	if cfg.Audio.Source.Provider != "none" || cfg.Audio.Sink.Provider != "discard" {
		t.Fatalf("device defaults = %q/%q", cfg.Audio.Source.Provider, cfg.Audio.Sink.Provider)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("TWIN_HOST", "twin.internal:9000")
	t.Setenv("TWIN_WAV", "/tmp/sample.wav")
	path := writeConfigFile(t, `
server:
  base_url: "http://${TWIN_HOST}"
audio:
  source:
    provider: wav_file
    settings:
      path: "${TWIN_WAV}"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.BaseURL != "http://twin.internal:9000" {
		t.Fatalf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.SocketURL != "ws://twin.internal:9000/api/voice/ws" {
		t.Fatalf("socket url = %q", cfg.Server.SocketURL)
	}
	if got := cfg.Audio.Source.Settings["path"]; got != "/tmp/sample.wav" {
		t.Fatalf("source path = %v", got)
	}
}

func TestLoadConfigRequiresBaseURL(t *testing.T) {
	path := writeConfigFile(t, `
log_level: debug
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for missing server.base_url")
	}
}

func TestValidateKeepsExplicitSocketURL(t *testing.T) {
	cfg := Config{Server: ServerConfig{
		BaseURL:   "https://twin.example.com",
		SocketURL: "wss://edge.example.com/voice",
	}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Server.SocketURL != "wss://edge.example.com/voice" {
		t.Fatalf("socket url overwritten: %q", cfg.Server.SocketURL)
	}
}
