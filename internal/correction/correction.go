package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"lyricsync/internal/cue"
	"lyricsync/internal/logging"
	"lyricsync/internal/services/llm"
)

const systemPrompt = `You proofread karaoke subtitle lines.

You will be given numbered lyric lines for one song. Fix only clear spelling,
capitalisation and punctuation mistakes. Do not merge, split, reorder, add or
remove lines. Do not translate. Omit lines that need no change.

Respond with JSON only in the following schema:
{"lines":[{"index":<int>,"text":<string>}]}`

// Completer is the subset of the LLM client used by the corrector.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Corrector rewrites cue display text through an LLM.
type Corrector struct {
	llm    Completer
	logger *slog.Logger
	artist string
	title  string
}

// Option customizes a Corrector.
type Option func(*Corrector)

// WithSong adds artist and title context to the prompt.
func WithSong(artist, title string) Option {
	return func(c *Corrector) {
		c.artist = strings.TrimSpace(artist)
		c.title = strings.TrimSpace(title)
	}
}

// New constructs a corrector backed by the given completer.
func New(llm Completer, logger *slog.Logger, opts ...Option) *Corrector {
	c := &Corrector{llm: llm, logger: logging.NewComponentLogger(logger, "correction")}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Artist string        `json:"artist,omitempty"`
	Title  string        `json:"title,omitempty"`
	Lines  []requestLine `json:"lines"`
}

type requestLine struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type response struct {
	Lines []requestLine `json:"lines"`
}

// Correct returns a copy of cues with LLM-corrected text. The returned error
// is reserved for context cancellation; LLM failures become diagnostics.
func (c *Corrector) Correct(ctx context.Context, cues []cue.Cue) ([]cue.Cue, []cue.Diagnostic, error) {
	out := make([]cue.Cue, len(cues))
	copy(out, cues)
	if len(cues) == 0 {
		return out, nil, nil
	}
	if err := ctx.Err(); err != nil {
		return out, nil, err
	}
	if c.llm == nil {
		return out, []cue.Diagnostic{skipped("llm client not configured")}, nil
	}

	req := request{Artist: c.artist, Title: c.title, Lines: make([]requestLine, len(cues))}
	for i, cc := range cues {
		req.Lines[i] = requestLine{Index: i + 1, Text: cc.Text}
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return out, nil, fmt.Errorf("encode correction request: %w", err)
	}

	content, err := c.llm.CompleteJSON(ctx, systemPrompt, string(encoded))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, nil, ctxErr
		}
		logging.WarnWithContext(c.logger, "lyric correction skipped", "correction_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check llm api key, model, and network access"),
			logging.String(logging.FieldImpact, "subtitles keep uncorrected lyric text"),
		)
		return out, []cue.Diagnostic{skipped(err.Error())}, nil
	}

	var parsed response
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		logging.WarnWithContext(c.logger, "lyric correction response unreadable", "correction_parse_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "subtitles keep uncorrected lyric text"),
		)
		return out, []cue.Diagnostic{skipped(err.Error())}, nil
	}

	diags := apply(out, parsed.Lines)
	c.logger.Info("lyric correction applied",
		logging.String(logging.FieldEventType, "correction_applied"),
		logging.Int("lines", len(cues)),
		logging.Int("corrected", len(diags)),
	)
	return out, diags, nil
}

// apply rewrites text in place. Indices are 1-based. Unknown indices, empty
// text and unchanged text are ignored; the first usable reply per index wins.
func apply(cues []cue.Cue, lines []requestLine) []cue.Diagnostic {
	var diags []cue.Diagnostic
	seen := make(map[int]bool, len(lines))
	for _, line := range lines {
		i := line.Index - 1
		if i < 0 || i >= len(cues) || seen[i] {
			continue
		}
		text := strings.Join(strings.Fields(line.Text), " ")
		if text == "" || text == cues[i].Text {
			continue
		}
		seen[i] = true
		diags = append(diags, cue.Diagnostic{
			Kind:    cue.KindCorrected,
			Line:    i,
			Message: fmt.Sprintf("%q -> %q", cues[i].Text, text),
		})
		cues[i].Text = text
	}
	slices.SortStableFunc(diags, func(a, b cue.Diagnostic) int { return a.Line - b.Line })
	return diags
}

func skipped(reason string) cue.Diagnostic {
	return cue.Diagnostic{Kind: cue.KindCorrectionSkipped, Line: -1, Message: reason}
}
