package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	if err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("load requested", "url", "https://cdn.example.com/rtd.js")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["msg"] != "load requested" {
		t.Errorf("expected msg field, got %v", entry["msg"])
	}
	if entry["url"] != "https://cdn.example.com/rtd.js" {
		t.Errorf("expected url field, got %v", entry["url"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	logger.Warn("should appear")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("low-level messages leaked into output: %s", out)
	}
	if !strings.Contains(out, "should appear") {
		t.Errorf("warn message missing from output: %s", out)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	child := logger.With("component", "loader")
	child.Info("hello")

	if !strings.Contains(buf.String(), "\"component\":\"loader\"") {
		t.Errorf("expected component field in output: %s", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := WithCallerID(context.Background(), "debugging")
	ctx = WithResourceURL(ctx, "https://cdn.example.com/foo.js")

	logger.InfoContext(ctx, "denied")

	out := buf.String()
	if !strings.Contains(out, "\"caller_id\":\"debugging\"") {
		t.Errorf("expected caller_id in output: %s", out)
	}
	if !strings.Contains(out, "\"resource_url\":\"https://cdn.example.com/foo.js\"") {
		t.Errorf("expected resource_url in output: %s", out)
	}
}

func TestContextAccessors_Empty(t *testing.T) {
	ctx := context.Background()
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}
	if got := GetCallerID(ctx); got != "" {
		t.Errorf("expected empty caller ID, got %q", got)
	}
	if fields := extractContextFields(ctx); len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}
