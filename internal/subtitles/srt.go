package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"lyricsync/internal/cue"
)

// WriteSRT writes cues as numbered SRT blocks.
func WriteSRT(w io.Writer, cues []cue.Cue) error {
	bw := bufio.NewWriter(w)
	for i, c := range cues {
		ordinal := c.Ordinal
		if ordinal <= 0 {
			ordinal = i + 1
		}
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n",
			ordinal,
			formatSRTTimestamp(c.Interval.Start),
			formatSRTTimestamp(c.Interval.End),
			cleanText(c.Text),
		); err != nil {
			return fmt.Errorf("write srt cue %d: %w", ordinal, err)
		}
	}
	return bw.Flush()
}

// RenderSRT renders cues to SRT bytes.
func RenderSRT(cues []cue.Cue) []byte {
	var buf bytes.Buffer
	_ = WriteSRT(&buf, cues)
	return buf.Bytes()
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func formatSRTTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int64(math.Round(seconds * 1000))
	hours := totalMs / 3_600_000
	totalMs %= 3_600_000
	minutes := totalMs / 60_000
	totalMs %= 60_000
	secs := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}

func parseSRTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Some tools write a period before the milliseconds.
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

// ParseSRT reads SRT blocks back into cues. Malformed blocks are skipped.
func ParseSRT(r io.Reader) ([]cue.Cue, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	var cues []cue.Cue
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		lines := strings.Split(block, "\n")
		if len(lines) < 3 {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			continue
		}
		parts := strings.Split(lines[1], "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := parseSRTTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := parseSRTTimestamp(parts[1])
		if err != nil {
			continue
		}
		cues = append(cues, cue.Cue{
			Ordinal:  index,
			Interval: cue.TimeInterval{Start: start, End: end},
			Text:     strings.Join(lines[2:], "\n"),
		})
	}
	return cues, nil
}

// ParseSRTFile reads an SRT file.
func ParseSRTFile(path string) ([]cue.Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open srt: %w", err)
	}
	defer f.Close()
	return ParseSRT(f)
}

// ValidateSRTContent checks an SRT file for format issues. An empty slice
// means validation passed. A positive trackSeconds also checks bounds.
func ValidateSRTContent(path string, trackSeconds float64) []string {
	var issues []string

	cues, err := ParseSRTFile(path)
	if err != nil {
		return append(issues, fmt.Sprintf("read_error: %v", err))
	}
	if len(cues) == 0 {
		return append(issues, "empty_subtitle_file")
	}
	// SRT keeps milliseconds, so allow half a millisecond past the end.
	bound := trackSeconds
	if bound > 0 {
		bound += 0.0005
	}
	if err := cue.Validate(cues, bound); err != nil {
		issues = append(issues, fmt.Sprintf("invariant_violation: %v", err))
	}
	for _, c := range cues {
		if strings.TrimSpace(c.Text) == "" {
			issues = append(issues, fmt.Sprintf("empty_cue_text: cue %d", c.Ordinal))
		}
	}
	return issues
}
