package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestTextLoggerFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(InfoLevel), WithFormatter(&TextFormatter{DisableCaller: true}), WithOutput(NewWriterOutput(&buf)))
	l.Debug("hidden")
	l.With(Component("store")).Info("opened", Int("feeds", 2))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered: %q", out)
	}
	if !strings.Contains(out, "opened") || !strings.Contains(out, "component=store") || !strings.Contains(out, "feeds=2") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSetLevelPropagatesToChildren(t *testing.T) {
	var buf bytes.Buffer
	root := NewLogger(WithLevel(ErrorLevel), WithOutput(NewWriterOutput(&buf)))
	child := root.WithComponent("replicate")
	child.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing logged, got %q", buf.String())
	}
	root.SetLevel(DebugLevel)
	child.Debug("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("child should observe root level change")
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithFormatter(&JSONFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Warn("slow append", Str("feed", "ab"))
	var obj map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &obj); err != nil {
		t.Fatalf("json: %v", err)
	}
	if obj["level"] != "WARN" || obj["msg"] != "slow append" || obj["feed"] != "ab" {
		t.Fatalf("unexpected object: %v", obj)
	}
}

func TestApplyConfigRedacts(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "debug", Format: "json", Output: "null", Redact: []string{"secret"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	var buf bytes.Buffer
	bl := l.(*BaseLogger)
	bl.outputs = []Output{NewWriterOutput(&buf)}
	l.Info("key material", Str("secret", "00ff"))
	if strings.Contains(buf.String(), "00ff") || !strings.Contains(buf.String(), "[REDACTED]") {
		t.Fatalf("secret not redacted: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, err := ParseLevel("WARN"); err != nil || lvl != WarnLevel {
		t.Fatalf("parse warn: %v %v", lvl, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
