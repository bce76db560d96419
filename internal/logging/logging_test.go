package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("container load skipped", "name", "analysis.bin")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %q", buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "container load skipped" || rec["name"] != "analysis.bin" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "TEXT", Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	logger.Debug("loaded", "pathways", 3)
	if !strings.Contains(buf.String(), "pathways=3") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(Config{Format: "xml"}, nil); err == nil {
		t.Fatalf("expected format error")
	}
	if _, err := New(Config{Level: "loud"}, nil); err == nil {
		t.Fatalf("expected level error")
	}
}

func TestNoop(t *testing.T) {
	l := OrNoop(nil)
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x")
	if _, ok := l.(noopLogger); !ok {
		t.Fatalf("expected noop logger")
	}
	var buf bytes.Buffer
	real, _ := New(DefaultConfig(), &buf)
	if OrNoop(real) != Logger(real) {
		t.Fatalf("expected passthrough")
	}
}
