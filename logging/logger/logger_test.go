package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ncobase/paybatch/ctxutil"
	"github.com/ncobase/paybatch/logging/logger/config"
	"github.com/sirupsen/logrus"
)

func newTestLogger(buf *bytes.Buffer) *Logger {
	l := &Logger{Logger: logrus.New()}
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetOutput(buf)
	l.SetLevel(logrus.DebugLevel)
	return l
}

func TestEntryCarriesTraceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.SetVersion("1.0.0")

	ctx := ctxutil.SetTraceID(context.Background(), "trace-42")
	l.Infof(ctx, "batch %s submitted", "b1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "batch b1 submitted" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry[ctxutil.TraceIDKey] != "trace-42" {
		t.Errorf("trace_id = %v", entry[ctxutil.TraceIDKey])
	}
	if entry[VersionKey] != "1.0.0" {
		t.Errorf("version = %v", entry[VersionKey])
	}
}

func TestUpdateLevelFiltersEntries(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)
	l.UpdateLevel(int(logrus.WarnLevel))

	l.Infof(context.Background(), "hidden")
	l.Warnf(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn entry missing")
	}
}

func TestInitFileOutput(t *testing.T) {
	l := &Logger{Logger: logrus.New()}
	cleanup, err := l.Init(&config.Config{
		Level:      int(logrus.InfoLevel),
		Format:     "json",
		Output:     "file",
		OutputFile: filepath.Join(t.TempDir(), "logs", "paybatch.log"),
	})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer cleanup()

	if l.logFile == nil {
		t.Fatal("expected log file to be opened")
	}
}
