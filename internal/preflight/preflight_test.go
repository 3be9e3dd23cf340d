package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"lyricsync/internal/config"
	"lyricsync/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLRCLIB(t *testing.T) {
	tests := []struct {
		name   string
		status int
		passed bool
	}{
		{"ok", http.StatusOK, true},
		{"rate limited", http.StatusTooManyRequests, false},
		{"server error", http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUA, gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUA, gotPath = r.Header.Get("User-Agent"), r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("[]"))
			}))
			defer srv.Close()

			result := CheckLRCLIB(context.Background(), srv.URL+"/", "lyricsync-test")
			if result.Passed != tt.passed {
				t.Fatalf("passed = %v, want %v (%s)", result.Passed, tt.passed, result.Detail)
			}
			if gotUA != "lyricsync-test" || gotPath != "/api/search" {
				t.Fatalf("unexpected request ua=%q path=%q", gotUA, gotPath)
			}
		})
	}
}

func TestCheckLLM_MissingKey(t *testing.T) {
	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"})
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVideo(), testsupport.WithLyricsCache(), testsupport.WithCreatedDirs())

	results := RunAll(context.Background(), cfg)
	// work + output + cache directory checks
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}

func TestRunAll_MissingWorkDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg)
	if failed := Failed(results); len(failed) != 1 || failed[0].Name != "Work directory" {
		t.Fatalf("expected work directory failure, got %+v", results)
	}
}

func TestRunAll_IncludesLRCLIBWhenSelected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithLyricsServer(srv.URL), testsupport.WithCreatedDirs())

	results := RunAll(context.Background(), cfg)
	found := false
	for _, r := range results {
		if r.Name == "LRCLIB" {
			found = true
			if !r.Passed {
				t.Errorf("LRCLIB check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected LRCLIB check in results")
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := config.Default()
	cfg.WhisperX.Binary = "lyricsync-test-whisperx"
	cfg.Separation.Enabled = true
	cfg.Separation.Binary = "lyricsync-test-demucs"
	cfg.Video.Enabled = false

	statuses := CheckSystemDeps(&cfg)
	names := map[string]bool{}
	for _, s := range statuses {
		names[s.Name] = s.Optional
	}
	if _, ok := names["Demucs"]; !ok {
		t.Fatalf("expected demucs requirement, got %+v", statuses)
	}
	if optional, ok := names["FFmpeg"]; !ok || !optional {
		t.Fatalf("expected optional ffmpeg when video disabled, got %+v", statuses)
	}
}

func TestCheckSystemDeps_Stubbed(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Separation.Enabled = true

	for _, s := range CheckSystemDeps(cfg) {
		if !s.Available {
			t.Fatalf("%s not found on stubbed PATH: %s", s.Name, s.Detail)
		}
	}
}
