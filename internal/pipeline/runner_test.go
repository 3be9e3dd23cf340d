package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"lyricsync/internal/config"
	"lyricsync/internal/cue"
	"lyricsync/internal/logging"
	"lyricsync/internal/lyricscache"
	"lyricsync/internal/media/audio"
	"lyricsync/internal/services"
	"lyricsync/internal/services/demucs"
	"lyricsync/internal/services/ffmpeg"
	"lyricsync/internal/services/lrclib"
	"lyricsync/internal/services/whisperx"
	"lyricsync/internal/testsupport"
	"lyricsync/internal/transcript"
)

const danceLyrics = "You can dance\nYou can jive"

func danceSegments() []transcript.Segment {
	return []transcript.Segment{
		{Start: 1, End: 3, Text: "you can dance", Confidence: 1, Words: []transcript.Word{
			{Text: "you", Start: 1, End: 1.5, Score: 0.9, Timed: true},
			{Text: "can", Start: 1.5, End: 2, Score: 0.9, Timed: true},
			{Text: "dance", Start: 2, End: 3, Score: 0.9, Timed: true},
		}},
		{Start: 4, End: 6, Text: "you can jive", Confidence: 1, Words: []transcript.Word{
			{Text: "you", Start: 4, End: 4.5, Score: 0.9, Timed: true},
			{Text: "can", Start: 4.5, End: 5, Score: 0.9, Timed: true},
			{Text: "jive", Start: 5, End: 6, Score: 0.9, Timed: true},
		}},
	}
}

type fakeProber struct {
	info audio.Info
	err  error
}

func (f fakeProber) Probe(_ context.Context, path string) (audio.Info, error) {
	info := f.info
	info.Path = path
	return info, f.err
}

type fakeSeparator struct {
	mu    sync.Mutex
	calls int
	dir   string
}

func (f *fakeSeparator) Separate(_ context.Context, _ string, outDir string) (demucs.Stems, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.dir = outDir
	return demucs.Stems{Vocals: filepath.Join(outDir, "vocals.wav"), Instrumental: filepath.Join(outDir, "no_vocals.wav")}, nil
}

type fakeTranscriber struct {
	segments []transcript.Segment
	source   string
	language string
	calls    int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, source, outputDir, language string) (whisperx.Result, error) {
	f.calls++
	f.source, f.language = source, language
	return whisperx.Result{JSONPath: filepath.Join(outputDir, "vocals.json"), Segments: f.segments}, nil
}

type fakeSource struct {
	mu       sync.Mutex
	track    lrclib.Track
	getErr   error
	results  []lrclib.Track
	gets     int
	searches int
}

func (f *fakeSource) Get(_ context.Context, artist, title string, _ float64) (lrclib.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return lrclib.Track{}, f.getErr
	}
	return f.track, nil
}

func (f *fakeSource) Search(context.Context, string) ([]lrclib.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches++
	return f.results, nil
}

type fakeRenderer struct {
	requests []ffmpeg.Request
}

func (f *fakeRenderer) Render(_ context.Context, req ffmpeg.Request) error {
	f.requests = append(f.requests, req)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]lyricscache.Entry
}

func newMemCache() *memCache { return &memCache{entries: map[string]lyricscache.Entry{}} }

func (m *memCache) Get(_ context.Context, artist, title string) (lyricscache.Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[lyricscache.Key(artist, title)]
	return e, ok, nil
}

func (m *memCache) Put(_ context.Context, e lyricscache.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[lyricscache.Key(e.Artist, e.Title)] = e
	return nil
}

func (m *memCache) Delete(_ context.Context, artist, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, lyricscache.Key(artist, title))
	return nil
}

type stubCompleter struct{ reply string }

func (s stubCompleter) CompleteJSON(context.Context, string, string) (string, error) {
	return s.reply, nil
}

type harness struct {
	cfg         *config.Config
	song        string
	separator   *fakeSeparator
	transcriber *fakeTranscriber
	source      *fakeSource
	renderer    *fakeRenderer
	cache       *memCache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithVideo())
	root := testsupport.BaseDir(cfg)
	cfg.Separation.Enabled = true
	cfg.Metrics.TextfilePath = filepath.Join(root, "metrics", "lyricsync.prom")
	cfg.Logging.Level = "debug"

	song := testsupport.WriteFile(t, filepath.Join(root, "ABBA - Dancing Queen.mp3"), "audio")
	return &harness{
		cfg:         cfg,
		song:        song,
		separator:   &fakeSeparator{},
		transcriber: &fakeTranscriber{segments: danceSegments()},
		source:      &fakeSource{track: lrclib.Track{ID: 7, ArtistName: "ABBA", TrackName: "Dancing Queen", PlainLyrics: danceLyrics}},
		renderer:    &fakeRenderer{},
		cache:       newMemCache(),
	}
}

func (h *harness) runner(t *testing.T, extra ...Option) *Runner {
	t.Helper()
	opts := append([]Option{
		WithProber(fakeProber{info: audio.Info{Duration: 10, Language: "en"}}),
		WithSeparator(h.separator),
		WithTranscriber(h.transcriber),
		WithLyricsSource(h.source),
		WithLyricsCache(h.cache),
		WithRenderer(h.renderer),
	}, extra...)
	r, err := New(h.cfg, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRunEndToEnd(t *testing.T) {
	h := newHarness(t)
	report, err := h.runner(t).Run(context.Background(), Request{SongPath: h.song})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.Artist != "ABBA" || report.Title != "Dancing Queen" {
		t.Fatalf("unexpected song identity %q / %q", report.Artist, report.Title)
	}
	if report.RunID == "" || report.Lyrics.Source != SourceLRCLIB || report.Lyrics.SourceID != "7" {
		t.Fatalf("unexpected report %+v", report)
	}
	if got := cue.Texts(report.Cues); strings.Join(got, "|") != "You can dance|You can jive" {
		t.Fatalf("unexpected cue texts %v", got)
	}
	if err := cue.Validate(report.Cues, report.Duration); err != nil {
		t.Fatalf("cues invalid: %v", err)
	}
	if h.separator.calls != 1 || !strings.HasSuffix(h.transcriber.source, "vocals.wav") || h.transcriber.language != "en" {
		t.Fatalf("separator/transcriber not wired: %d calls, source %q, lang %q", h.separator.calls, h.transcriber.source, h.transcriber.language)
	}

	data, err := os.ReadFile(report.SubtitlePath)
	if err != nil {
		t.Fatalf("read subtitles: %v", err)
	}
	if !strings.HasSuffix(report.SubtitlePath, "ABBA - Dancing Queen.srt") || !strings.Contains(string(data), "You can jive") {
		t.Fatalf("unexpected subtitle file %s:\n%s", report.SubtitlePath, data)
	}
	published, err := os.ReadFile(report.PublishedPath)
	if err != nil || string(published) != string(data) {
		t.Fatalf("published copy mismatch at %q: %v", report.PublishedPath, err)
	}

	if len(h.renderer.requests) != 1 {
		t.Fatalf("expected one render, got %d", len(h.renderer.requests))
	}
	req := h.renderer.requests[0]
	if !strings.HasSuffix(req.Audio, "no_vocals.wav") || req.Subtitles != report.SubtitlePath || req.Duration != 10 {
		t.Fatalf("unexpected render request %+v", req)
	}
	if report.VideoPath != filepath.Join(h.cfg.Paths.OutputDir, "ABBA - Dancing Queen.mp4") {
		t.Fatalf("unexpected video path %q", report.VideoPath)
	}

	if _, err := os.Stat(report.LogPath); err != nil {
		t.Fatalf("run log missing: %v", err)
	}
	metrics, err := os.ReadFile(h.cfg.Metrics.TextfilePath)
	if err != nil || !strings.Contains(string(metrics), `lyricsync_runs_total{outcome="success"} 1`) {
		t.Fatalf("metrics textfile not written: %v\n%s", err, metrics)
	}
	if _, ok, _ := h.cache.Get(context.Background(), "abba", "dancing queen"); !ok {
		t.Fatal("expected fetched lyrics to be cached")
	}
}

func TestRunWithSuppliedTranscriptAndLyrics(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	transcriptPath := filepath.Join(dir, "t.json")
	payload := `{"segments":[
	  {"start":1,"end":3,"text":"you can dance","words":[{"word":"you","start":1,"end":1.5,"score":0.9},{"word":"can","start":1.5,"end":2,"score":0.9},{"word":"dance","start":2,"end":3,"score":0.9}]},
	  {"start":4,"end":6,"text":"you can jive","words":[{"word":"you","start":4,"end":4.5,"score":0.9},{"word":"can","start":4.5,"end":5,"score":0.9},{"word":"jive","start":5,"end":6,"score":0.9}]}]}`
	if err := os.WriteFile(transcriptPath, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	lyricsPath := filepath.Join(dir, "lyrics.txt")
	if err := os.WriteFile(lyricsPath, []byte("[Chorus]\n"+danceLyrics+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := h.runner(t).Run(context.Background(), Request{
		SongPath:       h.song,
		TranscriptPath: transcriptPath,
		LyricsPath:     lyricsPath,
		SkipVideo:      true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.separator.calls != 0 || h.transcriber.calls != 0 || h.source.gets != 0 || len(h.renderer.requests) != 0 {
		t.Fatalf("expected no collaborators, got sep=%d tr=%d get=%d render=%d",
			h.separator.calls, h.transcriber.calls, h.source.gets, len(h.renderer.requests))
	}
	if report.Lyrics.Source != SourceFile || report.TranscriptPath != transcriptPath || len(report.Cues) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestRunLyricsNotFound(t *testing.T) {
	h := newHarness(t)
	h.source.getErr = &lrclib.NotFoundError{Artist: "ABBA", Title: "Dancing Queen"}

	_, err := h.runner(t).Run(context.Background(), Request{SongPath: h.song, SkipVideo: true})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	var nf *lrclib.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *lrclib.NotFoundError, got %T", err)
	}

	report, err := h.runner(t).Run(context.Background(), Request{SongPath: h.song, SkipVideo: true, AllowTranscriptOnly: true})
	if err != nil {
		t.Fatalf("transcript-only Run: %v", err)
	}
	if !report.TranscriptOnly || report.Lyrics.Source != SourceNone {
		t.Fatalf("expected transcript-only report, got %+v", report)
	}
	if got := cue.Texts(report.Cues); strings.Join(got, "|") != "you can dance|you can jive" {
		t.Fatalf("unexpected transcript cues %v", got)
	}
	if len(cue.Filter(report.Diagnostics, cue.KindTranscriptOnly)) != 1 {
		t.Fatalf("expected transcript-only diagnostic, got %v", report.Diagnostics)
	}
}

func TestRunRanksSearchHitsAgainstTranscript(t *testing.T) {
	h := newHarness(t)
	h.source.getErr = &lrclib.NotFoundError{Artist: "ABBA", Title: "Dancing Queen"}
	h.source.results = []lrclib.Track{
		{ID: 1, TrackName: "Other", PlainLyrics: "nothing in common with anything sung"},
		{ID: 2, TrackName: "Dancing Queen", PlainLyrics: danceLyrics},
	}

	report, err := h.runner(t).Run(context.Background(), Request{SongPath: h.song, SkipVideo: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Lyrics.Source != SourceSearch || report.Lyrics.SourceID != "2" || report.Lyrics.Score < minSearchScore {
		t.Fatalf("unexpected lyrics choice %+v", report.Lyrics)
	}
	entry, ok, _ := h.cache.Get(context.Background(), "ABBA", "Dancing Queen")
	if !ok || entry.Source != SourceSearch || entry.SourceID != "2" {
		t.Fatalf("expected search hit cached, got %+v (ok=%v)", entry, ok)
	}
}

func TestRunPrefersCache(t *testing.T) {
	h := newHarness(t)
	_ = h.cache.Put(context.Background(), lyricscache.Entry{Artist: "abba", Title: "dancing queen", Source: SourceLRCLIB, Lyrics: danceLyrics})

	report, err := h.runner(t).Run(context.Background(), Request{SongPath: h.song, SkipVideo: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.source.gets != 0 || report.Lyrics.Source != SourceCache {
		t.Fatalf("expected cache hit, gets=%d source=%q", h.source.gets, report.Lyrics.Source)
	}
}

func TestRunAppliesCorrection(t *testing.T) {
	h := newHarness(t)
	h.cfg.Correction.Enabled = true
	reply := `{"lines":[{"index":2,"text":"You can jive!"}]}`

	report, err := h.runner(t, WithCompleter(stubCompleter{reply: reply})).Run(context.Background(), Request{SongPath: h.song, SkipVideo: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Cues[1].Text != "You can jive!" {
		t.Fatalf("correction not applied: %v", cue.Texts(report.Cues))
	}
	if len(cue.Filter(report.Diagnostics, cue.KindCorrected)) != 1 {
		t.Fatalf("expected corrected diagnostic, got %v", report.Diagnostics)
	}
}

func TestRunRejectsLockedWorkDir(t *testing.T) {
	h := newHarness(t)
	workDir := t.TempDir()
	held := flock.New(filepath.Join(workDir, lockFileName))
	if ok, err := held.TryLock(); err != nil || !ok {
		t.Fatalf("pre-lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err := h.runner(t).Run(context.Background(), Request{SongPath: h.song, WorkDir: workDir, SkipVideo: true})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestRunValidatesSongPath(t *testing.T) {
	h := newHarness(t)
	r := h.runner(t)
	if _, err := r.Run(context.Background(), Request{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := r.Run(context.Background(), Request{SongPath: filepath.Join(t.TempDir(), "missing.mp3")}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestResolverFetchRefresh(t *testing.T) {
	cache := newMemCache()
	_ = cache.Put(context.Background(), lyricscache.Entry{Artist: "A", Title: "B", Source: SourceLRCLIB, Lyrics: "stale"})
	source := &fakeSource{track: lrclib.Track{ID: 3, PlainLyrics: "fresh"}}
	resolver := NewLyricsResolver(source, cache, logging.NewNop())

	ref, err := resolver.Fetch(context.Background(), "A", "B", false)
	if err != nil || ref.Text != "stale" || source.gets != 0 {
		t.Fatalf("expected cached lyrics, got %+v err=%v gets=%d", ref, err, source.gets)
	}
	ref, err = resolver.Fetch(context.Background(), "A", "B", true)
	if err != nil || ref.Text != "fresh" || ref.Source != SourceLRCLIB {
		t.Fatalf("expected refreshed lyrics, got %+v err=%v", ref, err)
	}
	if entry, _, _ := cache.Get(context.Background(), "A", "B"); entry.Lyrics != "fresh" {
		t.Fatalf("cache not refreshed: %+v", entry)
	}
}
