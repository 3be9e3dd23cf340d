package ffprobe

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_type": "audio", "codec_name": "mp3", "duration": "201.5", "tags": {"language": "eng", "title": "stream title"}},
    {"index": 1, "codec_type": "video", "codec_name": "mjpeg"}
  ],
  "format": {"filename": "song.mp3", "duration": "201.48", "size": "1000", "bit_rate": "32000",
             "tags": {"artist": "ABBA", "title": "Dancing Queen"}}
}`

func TestInspectWithParsesPayload(t *testing.T) {
	var gotArgs []string
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(samplePayload), nil
	}
	result, err := InspectWith(context.Background(), run, "", "song.mp3")
	if err != nil {
		t.Fatalf("InspectWith: %v", err)
	}
	if gotArgs[0] != "ffprobe" || gotArgs[len(gotArgs)-1] != "song.mp3" {
		t.Fatalf("unexpected args %v", gotArgs)
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 201.48 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if result.Tag("ARTIST") != "ABBA" || result.Tag("title") != "Dancing Queen" || result.Tag("language") != "eng" {
		t.Fatalf("unexpected tags %v", result.Tags())
	}
	if !strings.Contains(string(result.RawJSON()), "song.mp3") {
		t.Fatal("expected raw payload to be retained")
	}
}

func TestInspectWithErrors(t *testing.T) {
	if _, err := InspectWith(context.Background(), nil, "ffprobe", " "); err == nil {
		t.Fatal("expected error for empty path")
	}
	failing := func(context.Context, string, ...string) ([]byte, error) {
		return []byte("No such file"), errors.New("exit status 1")
	}
	_, err := InspectWith(context.Background(), failing, "ffprobe", "missing.mp3")
	if err == nil || !strings.Contains(err.Error(), "No such file") {
		t.Fatalf("expected wrapped output, got %v", err)
	}
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestDurationFallsBackToAudioStream(t *testing.T) {
	result := Result{Streams: []Stream{
		{CodecType: "audio", Duration: "10.5"},
		{CodecType: "audio", Duration: "12.25"},
		{CodecType: "video", Duration: "99"},
	}}
	if got := result.DurationSeconds(); got != 12.25 {
		t.Fatalf("expected 12.25, got %v", got)
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
			BitRate:  "nope",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
	if result.BitRate() != 0 {
		t.Fatalf("expected bitrate 0, got %d", result.BitRate())
	}
}
