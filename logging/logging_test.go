package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLoggerHonoursVerbosity(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warning, &buf, nil)
	l.Debug("should be dropped")
	l.Info("should also be dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below Warning verbosity, got %q", buf.String())
	}
	l.Warning("this should appear", "key", "value")
	if buf.Len() == 0 {
		t.Fatalf("expected output at Warning verbosity")
	}
}

func TestLoggerSuppressesPrefixedMessages(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, &buf, []string{"noisy:"})
	l.Debug("noisy: per-iteration detail")
	if buf.Len() != 0 {
		t.Fatalf("expected suppressed message to produce no output, got %q", buf.String())
	}
	l.Debug("solve started")
	if buf.Len() == 0 {
		t.Fatalf("expected non-suppressed message to produce output")
	}
}

func TestLoggerEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, &buf, nil)
	l.Info("iteration complete", "iteration", 3, "cost", 0.5)

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, line)
	}
	if entry["msg"] != "iteration complete" {
		t.Errorf("msg = %v, want %q", entry["msg"], "iteration complete")
	}
	if entry["iteration"] != float64(3) {
		t.Errorf("iteration = %v, want 3", entry["iteration"])
	}
}

func TestSetLevelRaisesThreshold(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, &buf, nil)
	l.SetLevel(Error)
	l.Warning("should be dropped now")
	if buf.Len() != 0 {
		t.Fatalf("expected no output after raising level to Error, got %q", buf.String())
	}
}
