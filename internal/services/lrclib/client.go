package lrclib

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"lyricsync/internal/services"
	"lyricsync/internal/textutil"
)

// DefaultBaseURL is the public LRCLIB instance.
const DefaultBaseURL = "https://lrclib.net"

// HTTPDoer describes the HTTP client used by the lyrics client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config captures client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client talks to the LRCLIB HTTP API.
type Client struct {
	baseURL   string
	userAgent string
	client    HTTPDoer
}

// NewClient constructs a client. A nil doer gets an http.Client with cfg.Timeout.
func NewClient(cfg Config, doer HTTPDoer) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, userAgent: strings.TrimSpace(cfg.UserAgent), client: doer}
}

// Track is one LRCLIB record.
type Track struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// HasLyrics reports whether the record carries usable text.
func (t Track) HasLyrics() bool {
	return !t.Instrumental && (strings.TrimSpace(t.PlainLyrics) != "" || strings.TrimSpace(t.SyncedLyrics) != "")
}

// Text returns the plain lyrics, falling back to synced lyrics with their
// [mm:ss.xx] tags stripped.
func (t Track) Text() string {
	if plain := strings.TrimSpace(t.PlainLyrics); plain != "" {
		return plain
	}
	return StripTimestamps(t.SyncedLyrics)
}

// NotFoundError reports that no lyrics exist for a query.
type NotFoundError struct {
	Artist string
	Title  string
	Query  string
}

func (e *NotFoundError) Error() string {
	if e.Query != "" {
		return fmt.Sprintf("lyrics not found for query %q", e.Query)
	}
	return fmt.Sprintf("lyrics not found for %q by %q", e.Title, e.Artist)
}

// Is lets errors.Is(err, services.ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == services.ErrNotFound
}

// Get looks up one song by artist and title. duration, when positive, lets
// the server pick the matching release (it allows a few seconds of slack).
func (c *Client) Get(ctx context.Context, artist, title string, duration float64) (Track, error) {
	artist, title = strings.TrimSpace(artist), strings.TrimSpace(title)
	if artist == "" || title == "" {
		return Track{}, services.Wrap(services.ErrValidation, "lrclib", "get", "artist and title required", nil)
	}
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if duration > 0 {
		params.Set("duration", fmt.Sprintf("%d", int(math.Round(duration))))
	}
	var track Track
	found, err := c.getJSON(ctx, "/api/get", params, &track)
	if err != nil {
		return Track{}, err
	}
	if !found || !track.HasLyrics() {
		return Track{}, &NotFoundError{Artist: artist, Title: title}
	}
	return track, nil
}

// Search runs a free-text query and returns hits that carry lyrics.
func (c *Client) Search(ctx context.Context, query string) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "lrclib", "search", "query required", nil)
	}
	params := url.Values{}
	params.Set("q", query)
	var tracks []Track
	if _, err := c.getJSON(ctx, "/api/search", params, &tracks); err != nil {
		return nil, err
	}
	out := tracks[:0]
	for _, t := range tracks {
		if t.HasLyrics() {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, &NotFoundError{Query: query}
	}
	return out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, target any) (bool, error) {
	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build lrclib request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "lrclib", path, "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrExternalTool
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			marker = services.ErrTransient
		}
		return false, services.Wrap(marker, "lrclib", path, fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return false, services.Wrap(services.ErrExternalTool, "lrclib", path, "decode response", err)
	}
	return true, nil
}

// Best returns the track whose lyrics are most similar to transcriptText by
// fingerprint cosine similarity, with its score. Ties keep the earlier track.
func Best(tracks []Track, transcriptText string) (Track, float64, bool) {
	if len(tracks) == 0 {
		return Track{}, 0, false
	}
	ref := textutil.NewFingerprint(transcriptText)
	best, bestScore := 0, -1.0
	for i, t := range tracks {
		score := textutil.CosineSimilarity(ref, textutil.NewFingerprint(t.Text()))
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return tracks[best], bestScore, true
}
