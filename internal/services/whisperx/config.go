package whisperx

import "time"

// Config captures runtime settings for WhisperX operations.
type Config struct {
	// Binary is the whisperx executable (default "whisperx").
	Binary string
	// Model is the Whisper model name (e.g. "large-v3").
	Model string
	// Device is passed through as --device when set ("cuda", "cpu").
	Device string
	// ComputeType is passed through as --compute_type when set.
	ComputeType string
	// BatchSize is passed as --batch_size when positive.
	BatchSize int
	// VADMethod selects voice activity detection ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD and diarization models.
	HFToken string
	// Timeout bounds one transcription; zero means no limit.
	Timeout time.Duration
}

// WhisperX defaults.
const (
	DefaultBinary     = "whisperx"
	DefaultModel      = "large-v3"
	OutputFormat      = "json"
	SegmentResolution = "sentence"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)
