package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestErrFmtHandlerAddsStacktrace(t *testing.T) {
	var buf bytes.Buffer
	handler := WrapByErrFmtHandler(slog.NewJSONHandler(&buf, nil))
	logger := slog.New(handler)

	err := errors.New("frame import failed")
	logger.Error("import", ErrAttr(err))

	var entry map[string]interface{}
	if jsonErr := json.Unmarshal(buf.Bytes(), &entry); jsonErr != nil {
		t.Fatalf("output is not JSON: %v", jsonErr)
	}
	if _, ok := entry[StacktraceAttrKey]; !ok {
		t.Errorf("expected %q attribute in output: %s", StacktraceAttrKey, buf.String())
	}
}

func TestToLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range cases {
		if got := ToLogLevel(name); got != want {
			t.Errorf("ToLogLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestGetLoggerWithName(t *testing.T) {
	logger := GetLoggerWithName("ensemble.gbm")
	if logger == nil {
		t.Fatal("GetLoggerWithName returned nil")
	}
	if !logger.Enabled(context.Background(), LevelError) {
		t.Error("error level should always be enabled by default")
	}
}

func TestTestLoggerCapture(t *testing.T) {
	logger, buf := NewTestLogger(LevelDebug)

	tagged := logger.With(ModelIDKey, "rf_1")
	tagged.Info("Training started", RowsKey, 100)

	if !strings.Contains(buf.String(), "rf_1") {
		t.Errorf("pre-populated field missing: %s", buf.String())
	}
	if !logger.ContainsMessage("Training started") {
		t.Error("message not captured")
	}

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatalf("parsing entries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0][RowsKey] != float64(100) {
		t.Errorf("rows attribute lost: %+v", entries[0])
	}
}

func TestTestLoggerLevelFilter(t *testing.T) {
	logger, buf := NewTestLogger(LevelWarn)
	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("suppressed levels leaked: %s", buf.String())
	}
	if !logger.ContainsMessage("visible") {
		t.Error("warn message should be captured")
	}
}
