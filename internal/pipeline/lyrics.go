package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"lyricsync/internal/logging"
	"lyricsync/internal/lyricscache"
	"lyricsync/internal/services"
	"lyricsync/internal/services/lrclib"
)

// Lyrics sources recorded on the report and in metrics.
const (
	SourceFile   = "file"
	SourceCache  = "cache"
	SourceLRCLIB = "lrclib"
	SourceSearch = "lrclib_search"
	SourceNone   = "none"
)

// minSearchScore is the lowest fingerprint similarity at which a search hit
// is trusted as the song's lyrics.
const minSearchScore = 0.35

// LyricsSource looks up reference lyrics.
type LyricsSource interface {
	Get(ctx context.Context, artist, title string, duration float64) (lrclib.Track, error)
	Search(ctx context.Context, query string) ([]lrclib.Track, error)
}

// LyricsCache persists fetched lyrics.
type LyricsCache interface {
	Get(ctx context.Context, artist, title string) (lyricscache.Entry, bool, error)
	Put(ctx context.Context, entry lyricscache.Entry) error
	Delete(ctx context.Context, artist, title string) error
}

// Reference is resolved reference lyrics.
type Reference struct {
	Text     string
	Source   string
	SourceID string
	Score    float64
}

// lookup is the outcome of the parallel lyrics fetch. Either ref is set, or
// candidates wait for the transcript to pick the best search hit, or
// notFound explains why nothing exists.
type lookup struct {
	ref        Reference
	candidates []lrclib.Track
	notFound   error
}

// LyricsResolver resolves reference lyrics from a file, the cache, or LRCLIB.
type LyricsResolver struct {
	source LyricsSource
	cache  LyricsCache
	logger *slog.Logger
}

// NewLyricsResolver constructs a resolver. source and cache may be nil.
func NewLyricsResolver(source LyricsSource, cache LyricsCache, logger *slog.Logger) *LyricsResolver {
	return &LyricsResolver{source: source, cache: cache, logger: logging.NewComponentLogger(logger, "lyrics")}
}

// Fetch returns lyrics for artist and title without a transcript to rank
// search hits; the first search hit with lyrics is used. refresh skips the
// cache read.
func (r *LyricsResolver) Fetch(ctx context.Context, artist, title string, refresh bool) (Reference, error) {
	if refresh && r.cache != nil {
		if err := r.cache.Delete(ctx, artist, title); err != nil {
			r.logger.Warn("lyrics cache delete failed", logging.Error(err))
		}
	}
	res, err := r.lookup(ctx, "", artist, title, 0)
	if err != nil {
		return Reference{}, err
	}
	if res.ref.Text != "" {
		return res.ref, nil
	}
	if len(res.candidates) > 0 {
		track := res.candidates[0]
		ref := Reference{Text: track.Text(), Source: SourceSearch, SourceID: trackID(track)}
		r.store(ctx, artist, title, ref, track.Duration)
		return ref, nil
	}
	return Reference{}, res.notFound
}

// lookup runs every source that needs no transcript. Transport failures are
// errors; an absent song is reported in notFound.
func (r *LyricsResolver) lookup(ctx context.Context, path, artist, title string, duration float64) (lookup, error) {
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return lookup{}, services.Wrap(services.ErrNotFound, "lyrics", "read file", "Unable to read lyrics file", err)
		}
		return lookup{ref: Reference{Text: string(data), Source: SourceFile}}, nil
	}
	if strings.TrimSpace(artist) == "" || strings.TrimSpace(title) == "" {
		return lookup{notFound: &lrclib.NotFoundError{Artist: artist, Title: title}}, nil
	}

	if r.cache != nil {
		entry, ok, err := r.cache.Get(ctx, artist, title)
		switch {
		case err != nil:
			logging.WarnWithContext(r.logger, "lyrics cache read failed", "lyrics_cache_read_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "lyrics fetched from network"),
			)
		case ok:
			r.logger.Debug("lyrics cache hit", logging.String("source", entry.Source))
			return lookup{ref: Reference{Text: entry.Lyrics, Source: SourceCache, SourceID: entry.SourceID}}, nil
		}
	}
	if r.source == nil {
		return lookup{notFound: &lrclib.NotFoundError{Artist: artist, Title: title}}, nil
	}

	track, err := r.source.Get(ctx, artist, title, duration)
	if err == nil {
		ref := Reference{Text: track.Text(), Source: SourceLRCLIB, SourceID: trackID(track)}
		r.store(ctx, artist, title, ref, track.Duration)
		return lookup{ref: ref}, nil
	}
	if !errors.Is(err, services.ErrNotFound) {
		return lookup{}, err
	}

	query := artist + " " + title
	tracks, searchErr := r.source.Search(ctx, query)
	if searchErr != nil {
		return lookup{}, searchErr
	}
	if len(tracks) == 0 {
		return lookup{notFound: err}, nil
	}
	r.logger.Debug("lyrics search candidates", logging.Int("count", len(tracks)), logging.String("query", query))
	return lookup{candidates: tracks, notFound: err}, nil
}

// resolve picks a search candidate against the transcript.
func (r *LyricsResolver) resolve(ctx context.Context, res lookup, artist, title, transcriptText string) (Reference, error) {
	if res.ref.Text != "" {
		return res.ref, nil
	}
	if len(res.candidates) > 0 {
		track, score, ok := lrclib.Best(res.candidates, transcriptText)
		if ok && score >= minSearchScore {
			ref := Reference{Text: track.Text(), Source: SourceSearch, SourceID: trackID(track), Score: score}
			r.logger.Info("lyrics search hit accepted",
				logging.String(logging.FieldEventType, "lyrics_search_match"),
				logging.String("track", track.ArtistName+" - "+track.TrackName),
				logging.Float64("score", score),
			)
			r.store(ctx, artist, title, ref, track.Duration)
			return ref, nil
		}
		r.logger.Info("lyrics search hits rejected",
			logging.String(logging.FieldEventType, "lyrics_search_rejected"),
			logging.Float64("best_score", score),
			logging.Float64("min_score", minSearchScore),
		)
	}
	if res.notFound == nil {
		res.notFound = &lrclib.NotFoundError{Artist: artist, Title: title}
	}
	return Reference{}, res.notFound
}

func (r *LyricsResolver) store(ctx context.Context, artist, title string, ref Reference, duration float64) {
	if r.cache == nil || strings.TrimSpace(ref.Text) == "" {
		return
	}
	err := r.cache.Put(ctx, lyricscache.Entry{
		Artist:   artist,
		Title:    title,
		Source:   ref.Source,
		SourceID: ref.SourceID,
		Lyrics:   ref.Text,
		Duration: duration,
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "lyrics cache write failed", "lyrics_cache_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "lyrics will be fetched again next run"),
		)
	}
}

func trackID(t lrclib.Track) string {
	if t.ID == 0 {
		return ""
	}
	return strconv.FormatInt(t.ID, 10)
}

func describeReference(ref Reference) string {
	if ref.SourceID != "" {
		return fmt.Sprintf("%s#%s", ref.Source, ref.SourceID)
	}
	return ref.Source
}
