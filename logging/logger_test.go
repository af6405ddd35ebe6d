package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"testing"

	"github.com/c0deZ3R0/go-mutation-kit/errors"
)

// newCaptureLogger returns a logger writing JSON records into buf.
func newCaptureLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	handler := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler)}
}

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	dec := json.NewDecoder(buf)
	for dec.More() {
		var record map[string]any
		if err := dec.Decode(&record); err != nil {
			t.Fatalf("failed to decode log record: %v", err)
		}
		records = append(records, record)
	}
	return records
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		level   string
		enabled slog.Level
		muted   slog.Level
	}{
		{"debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"info", slog.LevelInfo, slog.LevelDebug},
		{"warn", slog.LevelWarn, slog.LevelInfo},
		{"error", slog.LevelError, slog.LevelWarn},
		{"bogus", slog.LevelInfo, slog.LevelDebug},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(Config{Level: tt.level, Format: "json", Environment: "test"})
			if !logger.Handler().Enabled(ctx, tt.enabled) {
				t.Errorf("level %s should be enabled", tt.enabled)
			}
			if logger.Handler().Enabled(ctx, tt.muted) {
				t.Errorf("level %s should be muted", tt.muted)
			}
		})
	}
}

func TestChildLoggersCarryContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf, slog.LevelDebug)

	logger.WithComponent(Component("store")).WithOperation(Operation("rollback")).Info("restored snapshot")

	records := decodeRecords(t, &buf)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["component"] != "store" {
		t.Errorf("expected component %q, got %v", "store", records[0]["component"])
	}
	if records[0]["operation"] != "rollback" {
		t.Errorf("expected operation %q, got %v", "rollback", records[0]["operation"])
	}
}

func TestWithContextExtractsRequestIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf, slog.LevelDebug)

	ctx := context.WithValue(context.Background(), "request_id", "req-123")
	ctx = context.WithValue(ctx, "trace_id", "trace-456")

	logger.WithContext(ctx, slog.String("actor", "tester")).Info("handled")

	records := decodeRecords(t, &buf)
	if records[0]["request_id"] != "req-123" {
		t.Errorf("expected request_id, got %v", records[0]["request_id"])
	}
	if records[0]["trace_id"] != "trace-456" {
		t.Errorf("expected trace_id, got %v", records[0]["trace_id"])
	}
	if records[0]["actor"] != "tester" {
		t.Errorf("expected actor attr, got %v", records[0]["actor"])
	}
}

func TestLogErrorStructuresMutationError(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf, slog.LevelDebug)

	mErr := errors.NewTransportError(errors.OpSubmit, fmt.Errorf("connection refused"))
	logger.LogError(context.Background(), mErr, "dispatch failed")

	records := decodeRecords(t, &buf)
	structured, ok := records[0]["mutation_error"].(map[string]any)
	if !ok {
		t.Fatalf("expected structured mutation_error group, got %v", records[0]["mutation_error"])
	}
	if structured["kind"] != string(errors.KindTransport) {
		t.Errorf("expected kind %q, got %v", errors.KindTransport, structured["kind"])
	}
	if structured["retryable"] != true {
		t.Errorf("expected retryable true, got %v", structured["retryable"])
	}
	if _, ok := records[0]["caller"]; !ok {
		t.Error("expected caller information")
	}
}

func TestLogErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf, slog.LevelDebug)

	logger.LogError(context.Background(), fmt.Errorf("boom"), "something failed")

	records := decodeRecords(t, &buf)
	if records[0]["error"] != "boom" {
		t.Errorf("expected plain error string, got %v", records[0]["error"])
	}
}

func TestLogOperation(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newCaptureLogger(&buf, slog.LevelDebug)

		err := logger.LogOperation(context.Background(), Operation("reconcile"), Component("controller"), func() error {
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		records := decodeRecords(t, &buf)
		if len(records) != 2 {
			t.Fatalf("expected start and end records, got %d", len(records))
		}
		if records[1]["success"] != true {
			t.Errorf("expected success true, got %v", records[1]["success"])
		}
	})

	t.Run("failure", func(t *testing.T) {
		var buf bytes.Buffer
		logger := newCaptureLogger(&buf, slog.LevelDebug)

		opErr := fmt.Errorf("store locked")
		err := logger.LogOperation(context.Background(), Operation("rollback"), Component("store"), func() error {
			return opErr
		})
		if err != opErr {
			t.Fatalf("expected the operation error back, got %v", err)
		}

		records := decodeRecords(t, &buf)
		last := records[len(records)-1]
		if last["success"] != false {
			t.Errorf("expected success false, got %v", last["success"])
		}
	})
}

func TestCustomLevels(t *testing.T) {
	if LevelTrace.String() != "TRACE" {
		t.Errorf("expected TRACE, got %q", LevelTrace.String())
	}
	if LevelFatal.String() != "FATAL" {
		t.Errorf("expected FATAL, got %q", LevelFatal.String())
	}
	if got := CustomLevel(slog.LevelWarn).String(); got != "WARN" {
		t.Errorf("expected WARN for a standard level, got %q", got)
	}

	var buf bytes.Buffer
	logger := newCaptureLogger(&buf, slog.Level(LevelTrace))
	logger.Log(context.Background(), slog.Level(LevelTrace), "resolution detail",
		slog.String("entity_id", "user-1"),
	)

	records := decodeRecords(t, &buf)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["level"] != "DEBUG-4" {
		t.Errorf("expected trace level marker, got %v", records[0]["level"])
	}

	muted := newCaptureLogger(&buf, slog.LevelDebug)
	muted.Log(context.Background(), slog.Level(LevelTrace), "below threshold")
	if records := decodeRecords(t, &buf); len(records) != 0 {
		t.Errorf("expected trace to be muted at debug level, got %d records", len(records))
	}
}

func TestTraceHelpersAreMutedBelowTraceLevel(t *testing.T) {
	// The package-level helpers go through the default logger; at debug
	// level trace records are dropped rather than emitted.
	Init(Config{Level: "debug", Format: "json", Environment: "test"})

	Trace("dispatch internals", slog.String("entity_id", "user-1"))
	TraceContext(context.Background(), "dispatch internals")

	if Default().Handler().Enabled(context.Background(), slog.Level(LevelTrace)) {
		t.Error("trace should be disabled at debug level")
	}
}

func TestGetConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("ENVIRONMENT", "test")

	config := GetConfigFromEnv()
	if config.Level != "debug" {
		t.Errorf("expected level debug, got %q", config.Level)
	}
	if config.Format != "text" {
		t.Errorf("expected format text, got %q", config.Format)
	}
	if config.Environment != "test" {
		t.Errorf("expected environment test, got %q", config.Environment)
	}
}
