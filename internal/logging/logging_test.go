package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap"
)

func TestNewWithWriterJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("info", "json", &buf)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	logger.Info("session registered", zap.String("session", "s1"))
	_ = logger.Sync()

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "session registered" {
		t.Errorf("message key = %v, want 'session registered'", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level key = %v, want 'info'", entry["level"])
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("timestamp key missing")
	}
	if entry["session"] != "s1" {
		t.Errorf("session field = %v, want s1", entry["session"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithWriter("warn", "json", &buf)
	if err != nil {
		t.Fatalf("NewWithWriter error: %v", err)
	}

	logger.Info("should be filtered")
	_ = logger.Sync()
	if buf.Len() != 0 {
		t.Errorf("info line leaked past warn level: %q", buf.String())
	}

	logger.Warn("should appear")
	_ = logger.Sync()
	if buf.Len() == 0 {
		t.Error("warn line missing")
	}
}

func TestBadInputs(t *testing.T) {
	if _, err := New("nonsense", "json"); err == nil {
		t.Error("bad level should error")
	}
	if _, err := New("info", "xml"); err == nil {
		t.Error("bad format should error")
	}
}
