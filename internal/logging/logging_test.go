package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Not parallel: these tests swap the global logger.

func TestSetup_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, LevelInfo)
	t.Cleanup(func() { Setup(os.Stderr, LevelInfo) })

	Debug("hidden", "day", "2026-10-19")
	Info("visible", "day", "2026-10-19")
	Error("fetch failed", errors.New("boom"), "day", "2026-10-20")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "msg=visible") || !strings.Contains(out, "day=2026-10-19") {
		t.Fatalf("missing info line: %q", out)
	}
	if !strings.Contains(out, "err=boom") {
		t.Fatalf("missing error attr: %q", out)
	}
}

func TestSetupFile_AppendsAndCloses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "weekview.log")
	closeFn, err := SetupFile(path, LevelDebug)
	if err != nil {
		t.Fatalf("SetupFile() error = %v", err)
	}
	Debug("window extended", "added", 7)
	closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "added=7") {
		t.Fatalf("unexpected log content: %q", data)
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]Level{
		"debug":   LevelDebug,
		" WARN ":  LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}
