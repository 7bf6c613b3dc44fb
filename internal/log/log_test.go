package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"Error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	_, err := ParseLevel("verbose")
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
	if !strings.Contains(err.Error(), `"verbose"`) {
		t.Fatalf("error should quote the input: %v", err)
	}
}

func TestNew_ReturnsWorkingLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{App: "blog", Writer: &buf, Level: slog.LevelInfo})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Info(context.Background(), "started", "port", 8080)
	if !strings.Contains(buf.String(), "started") {
		t.Fatalf("output missing message: %s", buf.String())
	}
	if err := l.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}
