package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("expected JSON line, got %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})

	log.Info().Msg("hidden")
	log.Warn().Str("issue_id", "i1").Msg("shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if e["message"] != "shown" || e["issue_id"] != "i1" || e["level"] != "warn" {
		t.Errorf("unexpected entry: %v", e)
	}
	if e["service"] != DefaultService {
		t.Errorf("expected default service field, got %v", e["service"])
	}
	if _, ok := e["instance_id"]; ok {
		t.Errorf("instance_id must be omitted when empty: %v", e)
	}
}

func TestNew_BaseFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Service: "tracker", InstanceID: "abc", Env: "production"})

	log.Info().Msg("started")

	e := decodeLines(t, &buf)[0]
	if e["service"] != "tracker" || e["instance_id"] != "abc" || e["env"] != "production" {
		t.Errorf("unexpected base fields: %v", e)
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf, InstanceID: "abc"})

	agg := Component(base, "aggregator")
	agg.Info().Msg("tick")
	base.Info().Msg("plain")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0]["component"] != "aggregator" || entries[0]["instance_id"] != "abc" {
		t.Errorf("component logger lost fields: %v", entries[0])
	}
	if _, ok := entries[1]["component"]; ok {
		t.Errorf("parent logger must stay untagged: %v", entries[1])
	}
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Pretty: true})

	log.Info().Msg("hello")

	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Fatalf("pretty output must not be JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("message missing from console output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":   zerolog.TraceLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
