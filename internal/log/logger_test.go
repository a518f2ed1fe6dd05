package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(component string, level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})
	return New(Config{Handler: handler, Component: component}), &buf
}

func TestLoggerTagsComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentLedger, slog.LevelDebug)

	logger.Info("Expense saved", FieldRecordID, "e1")

	line := buf.String()
	if !strings.Contains(line, "component=ledger") {
		t.Errorf("expected component tag in %q", line)
	}
	if !strings.Contains(line, "record_id=e1") {
		t.Errorf("expected record field in %q", line)
	}
}

func TestLoggerContextMethods(t *testing.T) {
	logger, buf := newBufferLogger(ComponentReport, slog.LevelDebug)
	ctx := context.Background()

	logger.DebugContext(ctx, "cache hit")
	logger.InfoContext(ctx, "computed")
	logger.WarnContext(ctx, "slow")
	logger.ErrorContext(ctx, "failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 log lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, "component=report") {
			t.Errorf("expected component tag in %q", line)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	logger, buf := newBufferLogger(ComponentApp, slog.LevelInfo)

	logger.Debug("invisible")
	if buf.Len() != 0 {
		t.Errorf("debug line emitted below level: %q", buf.String())
	}

	logger.Warn("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("warn line missing: %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentApp, slog.LevelInfo)

	ledger := logger.WithComponent(ComponentLedger)
	if ledger.Component() != ComponentLedger {
		t.Errorf("Component() = %q, want %q", ledger.Component(), ComponentLedger)
	}

	ledger.Info("rebound")
	if !strings.Contains(buf.String(), "component=ledger") {
		t.Errorf("expected rebound component in %q", buf.String())
	}
}

func TestWithAttachesAttrs(t *testing.T) {
	logger, buf := newBufferLogger(ComponentWorker, slog.LevelInfo)

	logger.With(FieldPeriod, "2026-08").Info("refreshed")

	line := buf.String()
	if !strings.Contains(line, "period=2026-08") {
		t.Errorf("expected attached period in %q", line)
	}
	if !strings.Contains(line, "component=worker") {
		t.Errorf("expected component tag in %q", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tc := range cases {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLogFieldsBuilder(t *testing.T) {
	fields := NewFields().
		WithOperation(OpPublish).
		WithRecord("expense", "e1").
		WithPeriod("2026-08").
		WithAmount(30000000)

	if fields[FieldOperation] != OpPublish {
		t.Errorf("operation = %v", fields[FieldOperation])
	}
	if fields[FieldRecordKind] != "expense" || fields[FieldRecordID] != "e1" {
		t.Errorf("record fields = %v, %v", fields[FieldRecordKind], fields[FieldRecordID])
	}

	if fields.WithError(nil)[FieldError] != nil {
		t.Error("nil error must not add a field")
	}

	slice := fields.ToSlice()
	if len(slice) != 2*len(fields) {
		t.Errorf("ToSlice length = %d, want %d", len(slice), 2*len(fields))
	}
}
