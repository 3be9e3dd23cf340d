package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	"lyricsync/internal/cue"
)

// ASSOptions controls the Advanced SubStation Alpha header and styling.
type ASSOptions struct {
	Title           string
	Artist          string
	Font            string
	FontSize        int
	PlayResX        int
	PlayResY        int
	PrimaryColour   string // sung colour, &HAABBGGRR
	SecondaryColour string // unsung colour
	OutlineColour   string
	Outline         int
	// TitleDuration shows "Artist - Title" for this many seconds at the start,
	// cut short by the first cue. Zero disables the title card.
	TitleDuration float64
	// Sweep adds a whole-line \kf fill so each cue colours in over its duration.
	Sweep bool
}

// DefaultASSOptions returns a 720p karaoke style.
func DefaultASSOptions() ASSOptions {
	return ASSOptions{
		Font:            "Arial",
		FontSize:        60,
		PlayResX:        1280,
		PlayResY:        720,
		PrimaryColour:   "&H0000A5FF",
		SecondaryColour: "&H00FFFFFF",
		OutlineColour:   "&H00000000",
		Outline:         3,
		TitleDuration:   4,
		Sweep:           true,
	}
}

func (o ASSOptions) withDefaults() ASSOptions {
	d := DefaultASSOptions()
	if o.Font == "" {
		o.Font = d.Font
	}
	if o.FontSize <= 0 {
		o.FontSize = d.FontSize
	}
	if o.PlayResX <= 0 || o.PlayResY <= 0 {
		o.PlayResX, o.PlayResY = d.PlayResX, d.PlayResY
	}
	if o.PrimaryColour == "" {
		o.PrimaryColour = d.PrimaryColour
	}
	if o.SecondaryColour == "" {
		o.SecondaryColour = d.SecondaryColour
	}
	if o.OutlineColour == "" {
		o.OutlineColour = d.OutlineColour
	}
	return o
}

// WriteASS writes cues as an ASS script with one Dialogue event per cue.
func WriteASS(w io.Writer, cues []cue.Cue, opts ASSOptions) error {
	opts = opts.withDefaults()
	bw := bufio.NewWriter(w)

	title := opts.Title
	if title == "" {
		title = "Karaoke Subtitles"
	}
	fmt.Fprintf(bw, "[Script Info]\nTitle: %s\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 0\nScaledBorderAndShadow: yes\n\n",
		assText(title), opts.PlayResX, opts.PlayResY)

	bw.WriteString("[V4+ Styles]\n")
	bw.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(bw, "Style: Lyric,%s,%d,%s,%s,%s,&H00000000,1,0,0,0,100,100,0,0,1,%d,0,2,40,40,%d,1\n",
		opts.Font, opts.FontSize, opts.PrimaryColour, opts.SecondaryColour, opts.OutlineColour, opts.Outline, opts.PlayResY/10)
	fmt.Fprintf(bw, "Style: Title,%s,%d,%s,%s,%s,&H00000000,1,0,0,0,100,100,0,0,1,%d,0,5,40,40,0,1\n\n",
		opts.Font, opts.FontSize, opts.SecondaryColour, opts.SecondaryColour, opts.OutlineColour, opts.Outline)

	bw.WriteString("[Events]\n")
	bw.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	if card := titleCard(opts); card != "" && opts.TitleDuration > 0 {
		end := opts.TitleDuration
		if len(cues) > 0 && cues[0].Interval.Start < end {
			end = cues[0].Interval.Start
		}
		if end > 0 {
			fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Title,,0,0,0,,%s\n", formatASSTimestamp(0), formatASSTimestamp(end), card)
		}
	}

	for _, c := range cues {
		text := assText(cleanText(c.Text))
		if opts.Sweep {
			cs := int64(math.Round(c.Interval.Duration() * 100))
			text = fmt.Sprintf("{\\kf%d}%s", max(cs, 1), text)
		}
		if _, err := fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Lyric,,0,0,0,,%s\n",
			formatASSTimestamp(c.Interval.Start), formatASSTimestamp(c.Interval.End), text); err != nil {
			return fmt.Errorf("write ass cue %d: %w", c.Ordinal, err)
		}
	}
	return bw.Flush()
}

// RenderASS renders cues to ASS bytes.
func RenderASS(cues []cue.Cue, opts ASSOptions) []byte {
	var buf bytes.Buffer
	_ = WriteASS(&buf, cues, opts)
	return buf.Bytes()
}

func titleCard(opts ASSOptions) string {
	switch {
	case opts.Artist != "" && opts.Title != "":
		return assText(opts.Artist) + `\N` + assText(opts.Title)
	case opts.Title != "":
		return assText(opts.Title)
	default:
		return ""
	}
}

// assText escapes override braces and turns newlines into hard breaks.
func assText(text string) string {
	r := strings.NewReplacer("{", "(", "}", ")", "\r\n", `\N`, "\n", `\N`)
	return r.Replace(text)
}

func formatASSTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalCs := int64(math.Round(seconds * 100))
	hours := totalCs / 360_000
	totalCs %= 360_000
	minutes := totalCs / 6000
	totalCs %= 6000
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, totalCs/100, totalCs%100)
}
