// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
		{Level(-1), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	tests := []struct {
		level Level
		want  slog.Level
	}{
		{LevelDebug, slog.LevelDebug},
		{LevelInfo, slog.LevelInfo},
		{LevelWarn, slog.LevelWarn},
		{LevelError, slog.LevelError},
		{Level(99), slog.LevelInfo}, // Unknown defaults to Info
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := tt.level.toSlogLevel(); got != tt.want {
				t.Errorf("Level.toSlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestNew_DefaultConfig(t *testing.T) {
	logger := New(Config{})
	defer logger.Close()

	if logger.slog == nil {
		t.Fatal("New() returned logger with nil slog")
	}
	if logger.file != nil {
		t.Error("file logging should be disabled by default")
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.config.Service != "driftgate" {
		t.Errorf("Default() service = %q, want %q", logger.config.Service, "driftgate")
	}
	if logger.config.Level != LevelInfo {
		t.Errorf("Default() level = %v, want %v", logger.config.Level, LevelInfo)
	}
}

func TestNew_FileLogging(t *testing.T) {
	logDir := t.TempDir()

	logger := New(Config{
		Level:   LevelDebug,
		LogDir:  logDir,
		Service: "pipeline",
		Quiet:   true,
	})

	logger.Info("quality gate passed", "model", "insurance_model", "rows", 500)
	logger.Warn("batch is stale", "age_days", 12)

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	wantFile := "pipeline_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(logDir, wantFile))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "quality gate passed") {
		t.Error("log file missing Info message")
	}
	if !strings.Contains(content, "batch is stale") {
		t.Error("log file missing Warn message")
	}
	if !strings.Contains(content, `"service":"pipeline"`) {
		t.Error("log file entries missing service attribute")
	}
}

func TestNew_FileLogging_DefaultService(t *testing.T) {
	logDir := t.TempDir()

	logger := New(Config{LogDir: logDir, Quiet: true})
	logger.Info("hello")
	logger.Close()

	files, err := os.ReadDir(logDir)
	if err != nil {
		t.Fatalf("reading log dir: %v", err)
	}
	found := false
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "driftgate_") {
			found = true
		}
	}
	if !found {
		t.Error("expected log file named driftgate_<date>.log when Service is empty")
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	logDir := t.TempDir()

	logger := New(Config{
		Level:   LevelWarn,
		LogDir:  logDir,
		Service: "serving",
		Quiet:   true,
	})

	logger.Debug("verbose detail")
	logger.Info("model loaded")
	logger.Warn("falling back to staging model")
	logger.Error("prediction failed")
	logger.Close()

	wantFile := "serving_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(logDir, wantFile))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "verbose detail") || strings.Contains(content, "model loaded") {
		t.Error("messages below LevelWarn should be filtered out")
	}
	if !strings.Contains(content, "falling back to staging model") {
		t.Error("Warn message missing")
	}
	if !strings.Contains(content, "prediction failed") {
		t.Error("Error message missing")
	}
}

func TestLogger_With(t *testing.T) {
	logger := New(Config{Quiet: true})
	defer logger.Close()

	runLogger := logger.With("run_id", "abc123")
	runLogger.Info("training complete")

	// Parent logger must be unaffected
	if logger.slog == runLogger.slog {
		t.Error("With() should return a new logger, not modify the parent")
	}
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Quiet: true})
	defer logger.Close()

	if logger.Slog() == nil {
		t.Error("Slog() returned nil")
	}
}

// =============================================================================
// Exporter Tests
// =============================================================================

// waitForEntries polls the exporter until n entries arrive or the
// deadline passes. Export runs on a goroutine, so tests must wait.
func waitForEntries(t *testing.T, e *BufferedExporter, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(e.Entries()) >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d exported entries, got %d", n, len(e.Entries()))
}

func TestLogger_Export(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Service:  "cli",
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("model promoted", "model", "insurance_model", "version", 3)

	waitForEntries(t, exporter, 1)
	entry := exporter.Entries()[0]

	if entry.Message != "model promoted" {
		t.Errorf("entry.Message = %q, want %q", entry.Message, "model promoted")
	}
	if entry.Level != LevelInfo {
		t.Errorf("entry.Level = %v, want %v", entry.Level, LevelInfo)
	}
	if entry.Service != "cli" {
		t.Errorf("entry.Service = %q, want %q", entry.Service, "cli")
	}
	if entry.Attrs["model"] != "insurance_model" {
		t.Errorf("entry.Attrs[model] = %v, want insurance_model", entry.Attrs["model"])
	}
	if entry.Attrs["version"] != 3 {
		t.Errorf("entry.Attrs[version] = %v, want 3", entry.Attrs["version"])
	}
}

func TestLogger_ExportRespectsLevel(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelWarn,
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	logger.Info("below threshold")
	logger.Warn("at threshold")

	waitForEntries(t, exporter, 1)
	time.Sleep(20 * time.Millisecond) // Give a stray Info export time to appear

	entries := exporter.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d exported entries, want 1", len(entries))
	}
	if entries[0].Message != "at threshold" {
		t.Errorf("exported message = %q, want %q", entries[0].Message, "at threshold")
	}
}

func TestBufferedExporter_EntriesReturnsCopy(t *testing.T) {
	exporter := NewBufferedExporter()
	_ = exporter.Export(context.Background(), LogEntry{Message: "first"})

	entries := exporter.Entries()
	entries[0].Message = "mutated"

	if exporter.Entries()[0].Message != "first" {
		t.Error("Entries() should return a copy, not the internal slice")
	}
}

func TestWriterExporter(t *testing.T) {
	var buf bytes.Buffer
	exporter := NewWriterExporter(&buf)

	entry := LogEntry{
		Timestamp: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Level:     LevelError,
		Message:   "registry unavailable",
		Attrs:     map[string]any{"attempts": 3},
	}
	if err := exporter.Export(context.Background(), entry); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "ERROR") {
		t.Error("output missing level")
	}
	if !strings.Contains(out, "registry unavailable") {
		t.Error("output missing message")
	}
}

func TestNopExporter(t *testing.T) {
	exporter := &NopExporter{}
	if err := exporter.Export(context.Background(), LogEntry{}); err != nil {
		t.Errorf("Export() error = %v", err)
	}
	if err := exporter.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

// failingExporter always errors, to verify export failures do not
// disrupt logging.
type failingExporter struct{}

func (e *failingExporter) Export(ctx context.Context, entry LogEntry) error {
	return errors.New("export failed")
}
func (e *failingExporter) Flush(ctx context.Context) error { return nil }
func (e *failingExporter) Close() error                    { return nil }

func TestLogger_ExportFailureIsSilent(t *testing.T) {
	logger := New(Config{
		Quiet:    true,
		Exporter: &failingExporter{},
	})
	defer logger.Close()

	// Must not panic or block
	logger.Info("still logs fine")
	time.Sleep(20 * time.Millisecond)
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"tilde expansion", "~/.driftgate/logs", filepath.Join(home, ".driftgate/logs")},
		{"absolute unchanged", "/var/log/driftgate", "/var/log/driftgate"},
		{"relative unchanged", "logs", "logs"},
		{"empty unchanged", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expandPath(tt.in); got != tt.want {
				t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestArgsToMap(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want map[string]any
	}{
		{"pairs", []any{"model", "insurance_model", "version", 2}, map[string]any{"model": "insurance_model", "version": 2}},
		{"empty", nil, map[string]any{}},
		{"odd trailing key dropped", []any{"key", "value", "dangling"}, map[string]any{"key": "value"}},
		{"non-string key skipped", []any{42, "value", "ok", true}, map[string]any{"ok": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsToMap(tt.args)
			if len(got) != len(tt.want) {
				t.Fatalf("argsToMap() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("argsToMap()[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestLogger_ConcurrentUse(t *testing.T) {
	exporter := NewBufferedExporter()
	logger := New(Config{
		Level:    LevelInfo,
		Quiet:    true,
		Exporter: exporter,
	})
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				logger.Info("concurrent write", "goroutine", id, "iter", j)
			}
		}(i)
	}
	wg.Wait()

	waitForEntries(t, exporter, 200)
}
