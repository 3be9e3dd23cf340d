package demucs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lyricsync/internal/services"
)

func writeStems(t *testing.T, stems Stems) {
	t.Helper()
	for _, p := range []string{stems.Vocals, stems.Instrumental} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSeparateRunsDemucs(t *testing.T) {
	out := t.TempDir()
	svc := NewService(Config{Device: "cpu"})
	var args []string
	svc.WithCommandRunner(func(_ context.Context, name string, a ...string) error {
		args = append([]string{name}, a...)
		writeStems(t, svc.StemPaths("/music/Artist - Song.mp3", out))
		return nil
	})

	stems, err := svc.Separate(context.Background(), "/music/Artist - Song.mp3", out)
	if err != nil {
		t.Fatalf("Separate returned error: %v", err)
	}
	want := filepath.Join(out, "htdemucs", "Artist - Song", "vocals.wav")
	if stems.Vocals != want {
		t.Fatalf("vocals = %q, want %q", stems.Vocals, want)
	}
	if got := strings.Join(args, " "); got != "demucs --two-stems=vocals -n htdemucs -o "+out+" -d cpu /music/Artist - Song.mp3" {
		t.Fatalf("unexpected command %q", got)
	}
}

func TestSeparateReusesExistingStems(t *testing.T) {
	out := t.TempDir()
	svc := NewService(Config{})
	writeStems(t, svc.StemPaths("song.flac", out))
	svc.WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("demucs should not run when stems exist")
		return nil
	})
	if _, err := svc.Separate(context.Background(), "song.flac", out); err != nil {
		t.Fatalf("Separate returned error: %v", err)
	}
}

func TestSeparateFailures(t *testing.T) {
	out := t.TempDir()
	failing := NewService(Config{}).WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 2")
	})
	if _, err := failing.Separate(context.Background(), "a.mp3", out); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	noOutput := NewService(Config{}).WithCommandRunner(func(context.Context, string, ...string) error { return nil })
	if _, err := noOutput.Separate(context.Background(), "a.mp3", out); err == nil || !strings.Contains(err.Error(), "missing stem") {
		t.Fatalf("expected missing stem error, got %v", err)
	}
	if _, err := noOutput.Separate(context.Background(), "", out); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
