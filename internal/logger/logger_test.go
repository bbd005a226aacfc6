package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // Defaults to info
		{"", slog.LevelInfo},        // Defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := parseLevel(tt.level); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.expected)
			}
		})
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json")
	log.Info("page skipped", "page", "index.html")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["page"] != "index.html" {
		t.Errorf("expected page attribute, got %v", record["page"])
	}
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "text")
	log.Info("hidden")
	log.Warn("shown", "role", "index")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "role=index") {
		t.Errorf("expected text handler output, got %q", out)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
	if log.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("discard logger should not enable debug")
	}
}
