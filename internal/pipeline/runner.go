package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lyricsync/internal/config"
	"lyricsync/internal/correction"
	"lyricsync/internal/cue"
	"lyricsync/internal/deps"
	"lyricsync/internal/fileutil"
	"lyricsync/internal/logging"
	"lyricsync/internal/lyricscache"
	"lyricsync/internal/media/audio"
	"lyricsync/internal/reconcile"
	"lyricsync/internal/services"
	"lyricsync/internal/services/demucs"
	"lyricsync/internal/services/ffmpeg"
	"lyricsync/internal/services/llm"
	"lyricsync/internal/services/lrclib"
	"lyricsync/internal/services/whisperx"
	"lyricsync/internal/subtitles"
	"lyricsync/internal/transcript"
)

const lockFileName = ".lyricsync.lock"

// Separator splits a song into vocal and instrumental stems.
type Separator interface {
	Separate(ctx context.Context, songPath, outDir string) (demucs.Stems, error)
}

// Transcriber produces timed recogniser segments.
type Transcriber interface {
	Transcribe(ctx context.Context, source, outputDir, language string) (whisperx.Result, error)
}

// Renderer writes the karaoke video.
type Renderer interface {
	Render(ctx context.Context, req ffmpeg.Request) error
}

// Prober reads song duration and tags.
type Prober interface {
	Probe(ctx context.Context, path string) (audio.Info, error)
}

// Request describes one song run.
type Request struct {
	SongPath string
	Artist   string
	Title    string
	// Language overrides the recogniser language.
	Language string
	// WorkDir defaults to <paths.work_dir>/<Artist - Title>.
	WorkDir string
	// Output is the video path; defaults to <paths.output_dir>/<Artist - Title>.mp4.
	Output string
	// TranscriptPath supplies recogniser JSON and skips separation and transcription.
	TranscriptPath string
	// LyricsPath supplies reference lyrics and skips the lookup.
	LyricsPath          string
	SkipVideo           bool
	AllowTranscriptOnly bool
}

// Report summarizes a finished run.
type Report struct {
	RunID          string
	Artist         string
	Title          string
	WorkDir        string
	LogPath        string
	TranscriptPath string
	SubtitlePath   string
	PublishedPath  string
	VideoPath      string
	Lyrics         Reference
	TranscriptOnly bool
	Duration       float64
	Cues           []cue.Cue
	Diagnostics    []cue.Diagnostic
}

// Runner executes song runs.
type Runner struct {
	cfg         *config.Config
	logger      *slog.Logger
	separator   Separator
	transcriber Transcriber
	source      LyricsSource
	cache       LyricsCache
	renderer    Renderer
	prober      Prober
	completer   correction.Completer
	metrics     *Metrics
	now         func() time.Time
	closers     []io.Closer
}

// Option configures a Runner.
type Option func(*Runner)

// WithSeparator overrides the stem separator.
func WithSeparator(s Separator) Option { return func(r *Runner) { r.separator = s } }

// WithTranscriber overrides the transcriber.
func WithTranscriber(t Transcriber) Option { return func(r *Runner) { r.transcriber = t } }

// WithLyricsSource overrides the lyrics source.
func WithLyricsSource(s LyricsSource) Option { return func(r *Runner) { r.source = s } }

// WithLyricsCache overrides the lyrics cache.
func WithLyricsCache(c LyricsCache) Option { return func(r *Runner) { r.cache = c } }

// WithRenderer overrides the video renderer.
func WithRenderer(rd Renderer) Option { return func(r *Runner) { r.renderer = rd } }

// WithProber overrides the duration prober.
func WithProber(p Prober) Option { return func(r *Runner) { r.prober = p } }

// WithCompleter overrides the LLM used for correction.
func WithCompleter(c correction.Completer) Option { return func(r *Runner) { r.completer = c } }

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// New builds a Runner from configuration. Collaborators not supplied through
// options are constructed from cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("pipeline requires configuration")
	}
	r := &Runner{
		cfg:     cfg,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		metrics: NewMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.separator == nil {
		r.separator = demucs.NewService(demucs.Config{
			Binary:  deps.ResolveSidecar(cfg.WhisperX.Binary, cfg.Separation.Binary),
			Model:   cfg.Separation.Model,
			Device:  cfg.Separation.Device,
			Timeout: seconds(cfg.Separation.TimeoutSeconds),
		})
	}
	if r.transcriber == nil {
		r.transcriber = whisperx.NewService(whisperx.Config{
			Binary:      cfg.WhisperX.Binary,
			Model:       cfg.WhisperX.Model,
			Device:      cfg.WhisperX.Device,
			ComputeType: cfg.WhisperX.ComputeType,
			BatchSize:   cfg.WhisperX.BatchSize,
			VADMethod:   cfg.WhisperX.VADMethod,
			HFToken:     cfg.WhisperX.HFToken,
			Timeout:     seconds(cfg.WhisperX.TimeoutSeconds),
		})
	}
	if r.source == nil && strings.EqualFold(cfg.Lyrics.Source, "lrclib") {
		r.source = lrclib.NewClient(lrclib.Config{
			BaseURL:   cfg.Lyrics.BaseURL,
			UserAgent: cfg.Lyrics.UserAgent,
			Timeout:   seconds(cfg.Lyrics.TimeoutSeconds),
		}, nil)
	}
	if r.cache == nil {
		if path := cfg.LyricsCachePath(); path != "" {
			store, err := lyricscache.Open(path)
			if err != nil {
				return nil, services.Wrap(services.ErrConfiguration, "pipeline", "open lyrics cache", "Unable to open lyrics cache", err)
			}
			r.cache = store
			r.closers = append(r.closers, store)
		}
	}
	if r.renderer == nil {
		r.renderer = ffmpeg.NewService(cfg.FFmpegBinary(), seconds(cfg.Video.TimeoutSeconds))
	}
	if r.prober == nil {
		r.prober = audio.NewProber(cfg.FFprobeBinary())
	}
	if r.completer == nil && cfg.Correction.Enabled {
		llmCfg := cfg.GetLLM()
		client := llm.Config{
			APIKey:         llmCfg.APIKey,
			BaseURL:        llmCfg.BaseURL,
			Model:          llmCfg.Model,
			Referer:        llmCfg.Referer,
			Title:          llmCfg.Title,
			TimeoutSeconds: llmCfg.TimeoutSeconds,
		}
		if client.Configured() {
			r.completer = llm.NewClient(client)
		}
	}
	return r, nil
}

// EngineConfig bundles the engine tunables from cfg.
func EngineConfig(cfg *config.Config) reconcile.Config {
	return reconcile.Config{
		Align:  cfg.AlignConfig(),
		Repair: cfg.RepairConfig(),
		Filter: cfg.FilterOptions(),
	}
}

// Metrics exposes the runner's collectors.
func (r *Runner) Metrics() *Metrics { return r.metrics }

// Lyrics returns a resolver sharing the runner's lyrics source and cache.
func (r *Runner) Lyrics() *LyricsResolver {
	return NewLyricsResolver(r.source, r.cache, r.logger)
}

// Close releases resources opened by New.
func (r *Runner) Close() error {
	var errs []error
	for _, c := range r.closers {
		errs = append(errs, c.Close())
	}
	r.closers = nil
	return errors.Join(errs...)
}

// Run processes one song and writes the metrics textfile when configured.
func (r *Runner) Run(ctx context.Context, req Request) (Report, error) {
	report, err := r.run(ctx, req)
	if err != nil {
		r.metrics.recordFailure()
	} else {
		r.metrics.recordSuccess(report.Cues, report.Diagnostics, r.now())
		r.metrics.recordLyricsSource(report.Lyrics.Source)
	}
	if werr := r.metrics.WriteTextfile(r.cfg.Metrics.TextfilePath); werr != nil {
		r.logger.Warn("metrics textfile not written", logging.Error(werr))
	}
	return report, err
}

func (r *Runner) run(ctx context.Context, req Request) (Report, error) {
	songPath := strings.TrimSpace(req.SongPath)
	if songPath == "" {
		return Report{}, services.Wrap(services.ErrValidation, "pipeline", "run", "song path required", nil)
	}
	if _, err := os.Stat(songPath); err != nil {
		return Report{}, services.Wrap(services.ErrNotFound, "pipeline", "stat song", "Song file not found", err)
	}

	info, probeErr := r.prober.Probe(ctx, songPath)
	if probeErr != nil {
		logging.WarnWithContext(r.logger, "song probe failed", "probe_failed",
			logging.Error(probeErr),
			logging.String(logging.FieldImpact, "duration derived from transcript; tags unavailable"),
		)
	}

	artist, title := strings.TrimSpace(req.Artist), strings.TrimSpace(req.Title)
	if artist == "" || title == "" {
		parsedArtist, parsedTitle := ParseSongName(songPath)
		if parsedArtist == "" {
			parsedArtist, parsedTitle = info.Artist, firstNonEmpty(info.Title, parsedTitle)
		}
		artist = firstNonEmpty(artist, parsedArtist)
		title = firstNonEmpty(title, parsedTitle)
	}
	name := runName(artist, title, songPath)

	workDir := strings.TrimSpace(req.WorkDir)
	if workDir == "" {
		workDir = filepath.Join(r.cfg.Paths.WorkDir, name)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Report{}, services.Wrap(services.ErrConfiguration, "pipeline", "create work dir", "Unable to create work directory", err)
	}

	lock := flock.New(filepath.Join(workDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return Report{}, fmt.Errorf("acquire work dir lock: %w", err)
	}
	if !locked {
		return Report{}, services.Wrap(services.ErrTransient, "pipeline", "lock", "another run is using "+workDir, nil)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release work dir lock", logging.Error(err))
		}
	}()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSong(ctx, name)
	report := Report{RunID: runID, Artist: artist, Title: title, WorkDir: workDir, Duration: info.Duration}

	logger := r.logger
	report.LogPath = filepath.Join(workDir, "logs", runID+".log")
	handler, closer, err := logging.NewRunFileHandler(report.LogPath, r.cfg.Logging.Level)
	if err != nil {
		r.logger.Warn("run log unavailable", logging.Error(err))
		report.LogPath = ""
	} else {
		defer closer.Close()
		logger = logging.TeeLogger(r.logger, handler)
	}
	runLogger := logging.WithContext(ctx, logger)
	runLogger.Info("run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("song_path", songPath),
		logging.String("artist", artist),
		logging.String("title", title),
		logging.String("work_dir", workDir),
	)

	var (
		stems demucs.Stems
		found lookup
	)
	separate := req.TranscriptPath == "" && r.cfg.Separation.Enabled
	group, groupCtx := errgroup.WithContext(ctx)
	if separate {
		group.Go(func() error {
			return r.stage(groupCtx, logger, "separate", func(ctx context.Context, _ *slog.Logger) error {
				var err error
				stems, err = r.separator.Separate(ctx, songPath, filepath.Join(workDir, "stems"))
				return err
			})
		})
	}
	group.Go(func() error {
		return r.stage(groupCtx, logger, "lyrics", func(ctx context.Context, l *slog.Logger) error {
			var err error
			found, err = NewLyricsResolver(r.source, r.cache, l).lookup(ctx, req.LyricsPath, artist, title, info.Duration)
			return err
		})
	})
	if err := group.Wait(); err != nil {
		return report, err
	}

	var segments []transcript.Segment
	err = r.stage(ctx, logger, "transcribe", func(ctx context.Context, _ *slog.Logger) error {
		if req.TranscriptPath != "" {
			loaded, err := transcript.LoadWhisperJSON(req.TranscriptPath)
			if err != nil {
				return services.Wrap(services.ErrValidation, "transcribe", "load transcript", "Unable to read transcript", err)
			}
			segments, report.TranscriptPath = loaded, req.TranscriptPath
			return nil
		}
		source := firstNonEmpty(stems.Vocals, songPath)
		lang := firstNonEmpty(req.Language, r.cfg.WhisperX.Language, info.Language)
		result, err := r.transcriber.Transcribe(ctx, source, filepath.Join(workDir, "transcript"), lang)
		if err != nil {
			return err
		}
		segments, report.TranscriptPath = result.Segments, result.JSONPath
		return nil
	})
	if err != nil {
		return report, err
	}

	if report.Duration <= 0 && stems.Instrumental != "" {
		if d, err := audio.WAVDuration(stems.Instrumental); err == nil {
			report.Duration = d
		}
	}

	var result reconcile.Result
	err = r.stage(ctx, logger, "align", func(ctx context.Context, l *slog.Logger) error {
		ref, lyricsErr := NewLyricsResolver(r.source, r.cache, l).resolve(ctx, found, artist, title, transcript.Text(segments))
		engine := reconcile.New(EngineConfig(r.cfg), l)
		if lyricsErr != nil {
			allowed := req.AllowTranscriptOnly || r.cfg.Lyrics.AllowTranscriptOnly
			if !errors.Is(lyricsErr, services.ErrNotFound) || !allowed {
				return lyricsErr
			}
			var err error
			result, err = engine.TranscriptOnly(ctx, segments, report.Duration)
			report.Lyrics = Reference{Source: SourceNone}
			report.TranscriptOnly = true
			return err
		}
		l.Info("reference lyrics resolved", logging.String("source", describeReference(ref)))
		report.Lyrics = ref
		var err error
		result, err = engine.Run(ctx, reconcile.Input{Reference: ref.Text, Segments: segments, Duration: report.Duration})
		return err
	})
	if err != nil {
		return report, err
	}
	if report.Duration <= 0 {
		report.Duration = result.Duration
	}
	cues, diags := result.Cues, result.Diagnostics

	if r.cfg.Correction.Enabled && r.completer != nil {
		err = r.stage(ctx, logger, "correct", func(ctx context.Context, l *slog.Logger) error {
			corrected, notes, err := correction.New(r.completer, l, correction.WithSong(artist, title)).Correct(ctx, cues)
			if err != nil {
				return err
			}
			cues, diags = corrected, append(diags, notes...)
			return nil
		})
		if err != nil {
			return report, err
		}
	}
	report.Cues, report.Diagnostics = cues, diags

	err = r.stage(ctx, logger, "emit", func(context.Context, *slog.Logger) error {
		if err := cue.Validate(cues, report.Duration); err != nil {
			return services.Wrap(services.ErrValidation, "emit", "validate cues", "Cue sequence failed validation", err)
		}
		format := r.cfg.SubtitleFormat()
		path := filepath.Join(workDir, name+format.Extension())
		if err := subtitles.WriteFile(path, format, cues, r.cfg.ASSOptions(artist, title)); err != nil {
			return fmt.Errorf("write subtitles: %w", err)
		}
		report.SubtitlePath = path

		outDir := strings.TrimSpace(r.cfg.Paths.OutputDir)
		if outDir == "" || filepath.Clean(outDir) == filepath.Clean(workDir) {
			return nil
		}
		published := filepath.Join(outDir, filepath.Base(path))
		if err := fileutil.CopyFileVerified(path, published); err != nil {
			return services.Wrap(services.ErrTransient, "emit", "publish", "Unable to copy subtitles to the output directory", err)
		}
		report.PublishedPath = published
		return nil
	})
	if err != nil {
		return report, err
	}

	if !req.SkipVideo && r.cfg.Video.Enabled {
		output := strings.TrimSpace(req.Output)
		if output == "" {
			output = filepath.Join(firstNonEmpty(r.cfg.Paths.OutputDir, workDir), name+".mp4")
		}
		err = r.stage(ctx, logger, "render", func(ctx context.Context, _ *slog.Logger) error {
			return r.renderer.Render(ctx, ffmpeg.Request{
				Audio:      firstNonEmpty(stems.Instrumental, songPath),
				Subtitles:  report.SubtitlePath,
				Background: r.cfg.Video.Background,
				Colour:     r.cfg.Video.Colour,
				Output:     output,
				Width:      r.cfg.Video.Width,
				Height:     r.cfg.Video.Height,
				FPS:        r.cfg.Video.FPS,
				Duration:   report.Duration,
				VideoCodec: r.cfg.Video.VideoCodec,
				AudioCodec: r.cfg.Video.AudioCodec,
			})
		})
		if err != nil {
			return report, err
		}
		report.VideoPath = output
	}

	counts := cue.CountByKind(report.Diagnostics)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("cues", len(report.Cues)),
		logging.String("lyrics_source", report.Lyrics.Source),
		logging.String("subtitles", report.SubtitlePath),
		logging.String("video", report.VideoPath),
	}
	for kind, n := range counts {
		attrs = append(attrs, logging.Int("diag_"+string(kind), n))
	}
	runLogger.Info("run completed", logging.Args(attrs...)...)
	return report, nil
}

// stage runs fn with stage context, logging and timing.
func (r *Runner) stage(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context, *slog.Logger) error) error {
	ctx = services.WithStage(ctx, name)
	stageLogger := logging.WithContext(ctx, logger)
	start := r.now()
	stageLogger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	err := fn(ctx, stageLogger)
	elapsed := r.now().Sub(start)
	r.metrics.observeStage(name, elapsed)
	if err != nil {
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failed"),
			logging.Duration("elapsed", elapsed),
			logging.Error(err),
		)
		return err
	}
	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("elapsed", elapsed),
	)
	return nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
