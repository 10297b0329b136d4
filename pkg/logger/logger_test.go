package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogger_BasicLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "text", Output: &buf})

	log.Debug("dbg", String("k", "v"))
	log.Info("info", Int("n", 42))
	log.Warn("warn", Bool("ok", true))
	log.Error("err", Error(nil))

	out := buf.String()
	for _, s := range []string{"[DEBUG] dbg k=v", "[INFO] info n=42", "[WARN] warn ok=true", "[ERROR] err error=nil"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected output to contain %q, got: %s", s, out)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Debug("hidden-debug")
	log.Info("hidden-info")
	log.Warn("shown-warn")

	out := buf.String()
	if strings.Contains(out, "hidden-debug") || strings.Contains(out, "hidden-info") {
		t.Fatalf("expected debug/info suppressed at warn level, got: %s", out)
	}
	if !strings.Contains(out, "shown-warn") {
		t.Fatalf("expected warn message present, got: %s", out)
	}
}

func TestLogger_WithComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: "info", Output: &buf})
	comp := base.WithComponent("network.dispatcher")

	comp.Info("started")

	out := buf.String()
	if !strings.Contains(out, "[network.dispatcher]") {
		t.Fatalf("expected component prefix in output, got: %s", out)
	}
	if !strings.Contains(out, "[INFO] started") {
		t.Fatalf("expected info message in output, got: %s", out)
	}
}

func TestLogger_FieldConstructors(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	log.Info("fields",
		Int64("i64", -7),
		Uint32("u32", 12345),
		Duration("took", 1500*time.Millisecond),
		Error(errors.New("boom")),
	)

	out := buf.String()
	for _, s := range []string{"i64=-7", "u32=12345", "took=1.5s", "error=boom"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected output to contain %q, got: %s", s, out)
		}
	}
}

func TestParseLevel_Defaults(t *testing.T) {
	if parseLevel("bogus") != InfoLevel {
		t.Error("unknown level should default to info")
	}
	if parseLevel("warning") != WarnLevel {
		t.Error("warning alias should map to warn level")
	}
}
