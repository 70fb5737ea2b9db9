package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

var (
	_ Logger = (*slog.Logger)(nil)
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = NoOpLogger{}
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"debug":   LogLevelDebug,
		"":        LogLevelInfo,
		"INFO":    LogLevelInfo,
		"warning": LogLevelWarn,
		" error ": LogLevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewSlogLogger_JSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(LogLevelWarn, "json", &buf)

	log.Info("hidden")
	log.Warn("restored from backup", "profile_id", "slot1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if rec["msg"] != "restored from backup" || rec["profile_id"] != "slot1" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestNewSlogLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewSlogLogger(LogLevelDebug, "text", &buf)
	log.Debug("listing profiles", "count", 2)

	if !strings.Contains(buf.String(), "count=2") {
		t.Errorf("expected text attrs, got %q", buf.String())
	}
}

func TestLogLevelString(t *testing.T) {
	if LogLevelError.String() != "ERROR" || LogLevel(42).String() != "UNKNOWN" {
		t.Error("unexpected level names")
	}
}
