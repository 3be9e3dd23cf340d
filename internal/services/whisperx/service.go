package whisperx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	langpkg "lyricsync/internal/language"
	"lyricsync/internal/services"
	"lyricsync/internal/transcript"
)

// Service provides WhisperX transcription.
type Service struct {
	cfg           Config
	commandRunner services.CommandRunner
}

// NewService creates a WhisperX service with the given configuration.
func NewService(cfg Config) *Service {
	// Torch 2.6 defaults torch.load to weights_only, which the bundled
	// pyannote checkpoints cannot load.
	return &Service{cfg: cfg, commandRunner: services.RunnerWithEnv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner services.CommandRunner) *Service {
	if runner != nil {
		s.commandRunner = runner
	}
	return s
}

// Binary returns the configured executable name.
func (s *Service) Binary() string {
	if s.cfg.Binary != "" {
		return s.cfg.Binary
	}
	return DefaultBinary
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	if s.cfg.Model != "" {
		return s.cfg.Model
	}
	return DefaultModel
}

// Result describes a finished transcription.
type Result struct {
	JSONPath string
	Segments []transcript.Segment
}

// Transcribe runs whisperx on source, writing into outputDir, and loads the
// resulting segments. language may be a name or ISO code; empty lets the
// model detect it.
func (s *Service) Transcribe(ctx context.Context, source, outputDir, language string) (Result, error) {
	var result Result
	if strings.TrimSpace(source) == "" {
		return result, services.Wrap(services.ErrValidation, "whisperx", "transcribe", "source path required", nil)
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if err := s.commandRunner(ctx, s.Binary(), s.buildArgs(source, outputDir, language)...); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result, services.Wrap(services.ErrTimeout, "whisperx", "transcribe", "transcription timed out", err)
		}
		return result, services.Wrap(services.ErrExternalTool, "whisperx", "transcribe", "whisperx failed", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")
	segments, err := transcript.LoadWhisperJSON(result.JSONPath)
	if err != nil {
		return result, services.Wrap(services.ErrExternalTool, "whisperx", "load output", "whisperx produced no readable json", err)
	}
	result.Segments = segments
	return result, nil
}

// buildArgs constructs the whisperx command arguments.
func (s *Service) buildArgs(source, outputDir, language string) []string {
	args := []string{
		source,
		"--model", s.Model(),
		"--output_dir", outputDir,
		"--output_format", OutputFormat,
		"--segment_resolution", SegmentResolution,
	}
	if s.cfg.BatchSize > 0 {
		args = append(args, "--batch_size", strconv.Itoa(s.cfg.BatchSize))
	}

	vadMethod := s.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && s.cfg.HFToken != "" {
		args = append(args, "--hf_token", s.cfg.HFToken)
	}

	if lang := langpkg.ToISO2(language); lang != "" {
		args = append(args, "--language", lang)
	}
	if s.cfg.Device != "" {
		args = append(args, "--device", s.cfg.Device)
	}
	if s.cfg.ComputeType != "" {
		args = append(args, "--compute_type", s.cfg.ComputeType)
	}
	return args
}
