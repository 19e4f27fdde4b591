package configutil

import (
	"strings"
	"testing"
)

func TestDecodeSettingsMatchesKeysLoosely(t *testing.T) {
	var out struct {
		Path    string `mapstructure:"path"`
		ChunkMS int    `mapstructure:"chunk_ms"`
	}
	in := map[string]any{"Path": "/tmp/a.wav", "chunk-ms": "250"}
	if err := DecodeSettings(in, &out); err != nil {
		t.Fatalf("DecodeSettings: %v", err)
	}
	if out.Path != "/tmp/a.wav" {
		t.Fatalf("path = %q", out.Path)
	}
	if out.ChunkMS != 250 {
		t.Fatalf("chunk_ms = %d, want weakly-typed 250", out.ChunkMS)
	}
}

func TestValidateSettingsReportsMissingAndUnknown(t *testing.T) {
	schema := Schema{Required: []string{"path"}, Optional: []string{"chunk_ms"}}

	if err := ValidateSettings(map[string]any{"path": "/tmp/a.wav"}, schema); err != nil {
		t.Fatalf("valid settings rejected: %v", err)
	}

	err := ValidateSettings(map[string]any{"path": "", "bogus": 1}, schema)
	if err == nil {
		t.Fatal("expected error for empty required and unknown key")
	}
	if !strings.Contains(err.Error(), "missing: path") {
		t.Fatalf("error %q missing required report", err)
	}
	if !strings.Contains(err.Error(), "unknown: bogus") {
		t.Fatalf("error %q missing unknown report", err)
	}
}

func TestValidateSettingsAllowUnknown(t *testing.T) {
	schema := Schema{Required: []string{"dir"}, AllowUnknown: true}
	if err := ValidateSettings(map[string]any{"dir": "/tmp", "extra": true}, schema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
