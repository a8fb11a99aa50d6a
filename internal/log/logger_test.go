package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogger_WritesContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(Context{ExportUID: "abc", Operation: "get-options"}, zapcore.DebugLevel, &buf)
	l.Info("hello", map[string]any{"k": "v"})
	l.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if entry["message"] != "hello" || entry["level"] != "info" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["export_uid"] != "abc" || entry["operation"] != "get-options" {
		t.Fatalf("missing context: %v", entry)
	}
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(Context{ExportUID: "x"}, ParseLevel("warn"), &buf)
	l.Info("quiet", nil)
	l.Sugar().Debugf("quiet %d", 1)
	l.Warn("loud", nil)
	l.Sync()
	out := buf.String()
	if strings.Contains(out, "quiet") || !strings.Contains(out, "loud") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"INFO":  zapcore.InfoLevel,
		"error": zapcore.ErrorLevel,
		"":      zapcore.WarnLevel,
		"bogus": zapcore.WarnLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_WithAndSugarInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithWriter(Context{ExportUID: "abc"}, zapcore.InfoLevel, &buf).With("destination", "/out/Pen.html")
	l.Sugar().Infof("update available: %s -> %s", "1", "2")
	l.Sync()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal: %v (%s)", err, buf.String())
	}
	if entry["message"] != "update available: 1 -> 2" || entry["destination"] != "/out/Pen.html" || entry["export_uid"] != "abc" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
