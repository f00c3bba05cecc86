// Structured logging tests
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	logger := New("test")
	logger.SetWriter(buf)
	logger.SetLevel(DEBUG)
	logger.SetColorize(false)
	return logger
}

func TestLoggerBasic(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("parsed %d lines", 42)

	output := buf.String()
	if !strings.Contains(output, "[INFO ]") {
		t.Errorf("expected INFO level, got: %s", output)
	}
	if !strings.Contains(output, "test:") {
		t.Errorf("expected prefix 'test:', got: %s", output)
	}
	if !strings.Contains(output, "parsed 42 lines") {
		t.Errorf("expected formatted message, got: %s", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetLevel(WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected DEBUG and INFO to be filtered, got: %s", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected WARN to pass, got: %s", buf.String())
	}

	buf.Reset()
	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected ERROR to pass, got: %s", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithFields(Fields{"line": 12, "tool": "ScrewDriver"}).Info("block injected")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v, output: %s", err, buf.String())
	}
	if entry.Level != "INFO" {
		t.Errorf("expected level INFO, got: %s", entry.Level)
	}
	if entry.Logger != "test" {
		t.Errorf("expected logger 'test', got: %s", entry.Logger)
	}
	if entry.Message != "block injected" {
		t.Errorf("unexpected message: %s", entry.Message)
	}
	if entry.Fields["tool"] != "ScrewDriver" {
		t.Errorf("expected tool field, got: %v", entry.Fields)
	}
	// JSON numbers decode as float64
	if entry.Fields["line"] != float64(12) {
		t.Errorf("expected line=12, got: %v", entry.Fields["line"])
	}
}

func TestLoggerWithFieldsText(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithField("b", 2).WithField("a", 1).Warn("sorted")

	output := buf.String()
	if !strings.Contains(output, "{a=1, b=2}") {
		t.Errorf("expected sorted fields, got: %s", output)
	}
}

func TestEntryFormatted(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.WithField("file", "part.gcode").Infof("wrote %d lines", 12)
	logger.WithField("tool", "vacuum_pnp").Warnf("no insertion point by %s", "point")

	output := buf.String()
	for _, want := range []string{
		"[INFO ]", "wrote 12 lines", "{file=part.gcode}",
		"[WARN ]", "no insertion point by point", "{tool=vacuum_pnp}",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.SetFormat(FormatJSON)

	logger.WithError(errors.New("marker missing")).Error("inject failed")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if entry.Fields["error"] != "marker missing" {
		t.Errorf("expected error field, got: %v", entry.Fields)
	}
}

func TestLoggerWithPrefixSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	child := logger.WithPrefix("splice")
	logger.SetLevel(ERROR)
	child.Info("filtered")
	if buf.Len() != 0 {
		t.Errorf("child should follow parent level, got: %s", buf.String())
	}

	child.Error("child message")
	if !strings.Contains(buf.String(), "splice:") {
		t.Errorf("expected prefix 'splice:', got: %s", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Error("nothing")
	if logger.GetLevel() <= ERROR {
		t.Errorf("discard logger should filter every level, got %v", logger.GetLevel())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"WARNING", WARN},
		{"error", ERROR},
		{"invalid", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("JSON") != FormatJSON {
		t.Error("expected JSON format")
	}
	if ParseFormat("yaml") != FormatText {
		t.Error("expected unknown format to fall back to text")
	}
}

func TestConfigureFromEnv(t *testing.T) {
	t.Setenv("GCODE_INJECT_LOG_LEVEL", "error")
	t.Setenv("GCODE_INJECT_LOG_FORMAT", "json")

	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	ConfigureFromEnv(logger)

	if logger.GetLevel() != ERROR {
		t.Errorf("expected ERROR level from env, got %v", logger.GetLevel())
	}
	logger.Error("json please")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON output, got: %s", buf.String())
	}
}
