package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewFileLoggerDisabled(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir(), false)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if fl.Enabled {
		t.Fatalf("logger enabled without debug")
	}
	// writes must be safe no-ops
	fl.Logger.Info("ignored")
	if err := fl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewFileLoggerWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir, true)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !fl.Enabled {
		t.Fatalf("logger not enabled")
	}
	fl.Logger.Info("engine.test_event", "queue_size", 3)
	if err := fl.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	wantPath := filepath.Join(dir, "logs", "engine.log")
	if fl.Path != wantPath {
		t.Fatalf("path = %q", fl.Path)
	}
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line not json: %q", line)
	}
	if entry["msg"] != "engine.test_event" || entry["queue_size"] != float64(3) {
		t.Fatalf("entry = %v", entry)
	}
}
