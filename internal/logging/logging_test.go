package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "engine")).Info(context.Background(), "scenario started",
		String("scenario", "armed_robbery"),
		Int("responders", 4),
		Err(errors.New("boom")),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "scenario started" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "scenario started")
	}
	if entry["component"] != "engine" {
		t.Fatalf("component = %v, want engine", entry["component"])
	}
	if entry["scenario"] != "armed_robbery" {
		t.Fatalf("scenario = %v, want armed_robbery", entry["scenario"])
	}
	if entry["error"] != "boom" {
		t.Fatalf("error = %v, want boom", entry["error"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("info log written at warn level: %q", buf.String())
	}
	log.Warn(context.Background(), "kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn log missing: %q", buf.String())
	}
}

func TestEnsureRequestIDIsStable(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("EnsureRequestID returned empty id")
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id {
		t.Fatalf("EnsureRequestID = %q, want existing %q", id2, id)
	}
	if got := RequestIDFromContext(ctx2); got != id {
		t.Fatalf("RequestIDFromContext = %q, want %q", got, id)
	}
}

func TestFromContextFallback(t *testing.T) {
	if got := FromContext(context.Background(), nil); got == nil {
		t.Fatalf("FromContext(nil fallback) = nil, want Noop")
	}

	stored := Noop()
	ctx := ContextWithLogger(context.Background(), stored)
	if got := FromContext(ctx, New(Config{})); got != stored {
		t.Fatalf("FromContext returned fallback, want stored logger")
	}
}
