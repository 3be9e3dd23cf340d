package audio

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"lyricsync/internal/services"
	"lyricsync/internal/testsupport"
)

func TestProbeWAVSkipsFFprobe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vocals.wav")
	testsupport.WriteSilentWAV(t, path, 8000, 2)

	called := false
	prober := NewProber("ffprobe", WithOutputRunner(func(context.Context, string, ...string) ([]byte, error) {
		called = true
		return nil, errors.New("should not run")
	}))
	got, err := prober.Duration(context.Background(), path)
	if err != nil {
		t.Fatalf("Duration: %v", err)
	}
	if called {
		t.Fatal("ffprobe should not run for wav input")
	}
	if math.Abs(got-2) > 0.01 {
		t.Fatalf("expected ~2s, got %v", got)
	}
}

func TestProbeUsesFFprobeTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("id3"), 0o644); err != nil {
		t.Fatal(err)
	}
	payload := `{"streams":[{"codec_type":"audio","tags":{"language":"spa"}}],
	  "format":{"duration":"187.2","tags":{"ARTIST":"Shakira","TITLE":"Hips Don't Lie"}}}`
	prober := NewProber("", WithOutputRunner(func(context.Context, string, ...string) ([]byte, error) {
		return []byte(payload), nil
	}))
	info, err := prober.Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.Duration != 187.2 || info.Artist != "Shakira" || info.Title != "Hips Don't Lie" || info.Language != "es" {
		t.Fatalf("unexpected info %+v", info)
	}
}

func TestProbeErrors(t *testing.T) {
	prober := NewProber("ffprobe")
	_, err := prober.Probe(context.Background(), filepath.Join(t.TempDir(), "missing.mp3"))
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "song.flac")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	failing := NewProber("ffprobe", WithOutputRunner(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	}))
	if _, err := failing.Probe(context.Background(), path); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}
