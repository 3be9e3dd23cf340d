package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"lyricsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "separation", "demucs", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"separation", "demucs", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutMarker(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) || !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{services.Wrap(services.ErrValidation, "lyrics", "normalize", "empty", nil), services.ExitUsage},
		{services.Wrap(services.ErrConfiguration, "config", "load", "bad", nil), services.ExitUsage},
		{fmt.Errorf("outer: %w", services.Wrap(services.ErrNotFound, "lyrics", "fetch", "missing", nil)), services.ExitNotFound},
		{services.Wrap(services.ErrTransient, "transcribe", "whisperx", "crash", errors.New("io")), services.ExitFailure},
		{errors.New("plain"), services.ExitFailure},
	}
	for _, tt := range tests {
		if got := services.ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
