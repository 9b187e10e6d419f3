package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestInitWritesJSONWithLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log, err := initWithWriter("warn", &buf)
	if err != nil {
		t.Fatalf("initWithWriter: %v", err)
	}

	log.InfoObj("dropped", "k", "v")
	log.WarnObj("kept", "fetch_meta", map[string]any{"source": "nyt"})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("log line is not json: %v", err)
	}
	if err := log.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if entry["msg"] != "kept" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	meta, ok := entry["fetch_meta"].(map[string]any)
	if !ok || meta["source"] != "nyt" {
		t.Fatalf("fetch_meta = %#v", entry["fetch_meta"])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestEnsureReturnsNop(t *testing.T) {
	if _, ok := Ensure(nil).(NopLogger); !ok {
		t.Fatalf("Ensure(nil) should return NopLogger")
	}
}
