package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"trackstrip/internal/config"
	"trackstrip/internal/logging"
)

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := logging.New(logging.Options{Level: "info", Format: "console", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer closer.Close()

	component := logging.NewComponentLogger(logger, "stripper")
	component.Info("tracks removed", logging.String(logging.FieldFile, "/media/a b.mkv"), logging.Strings("audio_ids", []string{"2", "3"}))

	line := buf.String()
	for _, want := range []string{"INFO ", "stripper: tracks removed", `file="/media/a b.mkv"`, "audio_ids=2,3"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be rendered as a prefix, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no color codes for a buffer, got %q", line)
	}
}

func TestConsoleLoggerOmitsSourceForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("message without caller")
	if strings.Contains(buf.String(), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", buf.String())
	}
}

func TestConsoleLoggerIncludesSourceForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "debug", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Level: "warn", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestJSONConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, _, err := logging.New(logging.Options{Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("careful", logging.Int("count", 3), logging.Duration("elapsed", 1500*time.Millisecond))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" || record["msg"] != "careful" {
		t.Fatalf("unexpected record %v", record)
	}
	if record["elapsed"] != "1.5s" {
		t.Fatalf("expected readable duration, got %v", record["elapsed"])
	}
	ts, ok := record["ts"].(string)
	if !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if _, err := time.Parse(time.RFC3339Nano, ts); err != nil || !strings.Contains(ts, ".") {
		t.Fatalf("expected millisecond RFC 3339 timestamp, got %q (%v)", ts, err)
	}
}

func TestFileOutputReceivesJSONWithRunID(t *testing.T) {
	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "trackstrip.log")
	logger, closer, err := logging.New(logging.Options{Console: &console, FilePath: path, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := logging.WithRunID(context.Background(), "run-123")
	logging.WithContext(ctx, logger).Info("run started")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"run_id":"run-123"`) {
		t.Fatalf("expected run id in file log, got %q", data)
	}
	if !strings.Contains(console.String(), "run started") {
		t.Fatalf("expected console output, got %q", console.String())
	}
	if strings.Contains(console.String(), "run-123") {
		t.Fatalf("info console lines should not carry the run id, got %q", console.String())
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()
	var console bytes.Buffer

	logger, closer, err := logging.NewFromConfig(&cfg, &console)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(cfg.LogFilePath()); err != nil {
		t.Fatalf("expected log file at %s: %v", cfg.LogFilePath(), err)
	}
	if _, _, err := logging.NewFromConfig(nil, &console); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, _, _ := logging.New(logging.Options{Console: &buf})

	logging.WarnWithContext(logger, "space low", "space_low", logging.String(logging.FieldImpact, "file skipped"))
	out := buf.String()
	for _, want := range []string{"event_type=space_low", "error_hint=", `impact="file skipped"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	logging.ErrorWithContext(logger, "filter failed", "filter_failed", logging.Error(errors.New("boom")))
	if !strings.Contains(buf.String(), "event_type=filter_failed") || !strings.Contains(buf.String(), "error=boom") {
		t.Fatalf("unexpected error output %q", buf.String())
	}

	logging.WarnWithContext(nil, "ignored", "none")
}

func TestRunIDContext(t *testing.T) {
	if _, ok := logging.RunIDFromContext(context.Background()); ok {
		t.Fatal("expected no run id on empty context")
	}
	id := logging.NewRunID()
	if len(id) != 36 {
		t.Fatalf("expected uuid string, got %q", id)
	}
	ctx := logging.WithRunID(context.Background(), id)
	got, ok := logging.RunIDFromContext(ctx)
	if !ok || got != id {
		t.Fatalf("RunIDFromContext = %q, %v", got, ok)
	}
	if logging.WithRunID(ctx, " ") != ctx {
		t.Fatal("blank id should leave context unchanged")
	}
}

func TestNopLogger(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 0) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.NewComponentLogger(nil, "x").Info("discarded")
}
