package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Optional", Command: "also-not-present-binary", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	missing := Missing(results)
	if len(missing) != 1 || missing[0].Name != "Missing" {
		t.Fatalf("expected only the required missing binary, got %#v", missing)
	}
}

func TestCheckBinariesEmptyCommand(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Blank"}})
	if results[0].Available || results[0].Detail != "command not configured" {
		t.Fatalf("unexpected status %#v", results[0])
	}
}

func TestResolveSidecarFindsVirtualenvNeighbour(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs")
	}
	venv := t.TempDir()
	script := []byte("#!/bin/sh\nexit 0\n")
	anchor := filepath.Join(venv, "whisperx")
	sidecar := filepath.Join(venv, "lyricsync-test-demucs")
	if err := os.WriteFile(anchor, script, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(sidecar, script, 0o755); err != nil {
		t.Fatal(err)
	}

	if got := ResolveSidecar(anchor, "lyricsync-test-demucs"); got != sidecar {
		t.Fatalf("expected sidecar %q, got %q", sidecar, got)
	}
	if got := ResolveSidecar(anchor, "lyricsync-test-missing"); got != "lyricsync-test-missing" {
		t.Fatalf("expected bare name fallback, got %q", got)
	}
}

func TestResolveSidecarIgnoresNonExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits")
	}
	venv := t.TempDir()
	anchor := filepath.Join(venv, "whisperx")
	if err := os.WriteFile(anchor, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(venv, "lyricsync-test-plain"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := ResolveSidecar(anchor, "lyricsync-test-plain"); got != "lyricsync-test-plain" {
		t.Fatalf("expected non-executable sidecar to be ignored, got %q", got)
	}
}

func TestResolveSidecarKeepsExplicitPath(t *testing.T) {
	explicit := filepath.Join(t.TempDir(), "demucs")
	if got := ResolveSidecar("whisperx", explicit); got != explicit {
		t.Fatalf("expected explicit path unchanged, got %q", got)
	}
}
