package transcript

import (
	"context"

	"github.com/anatolykoptev/go_transcript/internal/youtube"
)

// Entry is one caption line. Start and Duration are in seconds.
type Entry struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Track is one caption track of a video.
type Track interface {
	LanguageCode() string
	IsGenerated() bool
	IsTranslatable() bool
	Translate(lang string) (Track, error)
	Fetch(ctx context.Context) ([]Entry, error)
}

// Source retrieves caption data for a video.
type Source interface {
	// Fetch returns the entries of the first track matching langs.
	Fetch(ctx context.Context, videoID string, langs []string) ([]Entry, error)
	// List returns every track of the video, manual tracks first.
	List(ctx context.Context, videoID string) ([]Track, error)
}

// NewYouTubeSource adapts a youtube.Client to Source.
func NewYouTubeSource(c *youtube.Client) Source {
	return youtubeSource{client: c}
}

type youtubeSource struct {
	client *youtube.Client
}

func (s youtubeSource) Fetch(ctx context.Context, videoID string, langs []string) ([]Entry, error) {
	snippets, err := s.client.Fetch(ctx, videoID, langs)
	if err != nil {
		return nil, err
	}
	return toEntries(snippets), nil
}

func (s youtubeSource) List(ctx context.Context, videoID string) ([]Track, error) {
	list, err := s.client.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	all := list.All()
	tracks := make([]Track, len(all))
	for i, t := range all {
		tracks[i] = youtubeTrack{t: t}
	}
	return tracks, nil
}

type youtubeTrack struct {
	t *youtube.Transcript
}

func (yt youtubeTrack) LanguageCode() string { return yt.t.LanguageCode }
func (yt youtubeTrack) IsGenerated() bool    { return yt.t.IsGenerated }
func (yt youtubeTrack) IsTranslatable() bool { return yt.t.IsTranslatable() }

func (yt youtubeTrack) Translate(lang string) (Track, error) {
	t, err := yt.t.Translate(lang)
	if err != nil {
		return nil, err
	}
	return youtubeTrack{t: t}, nil
}

func (yt youtubeTrack) Fetch(ctx context.Context) ([]Entry, error) {
	snippets, err := yt.t.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return toEntries(snippets), nil
}

func toEntries(snippets []youtube.Snippet) []Entry {
	entries := make([]Entry, len(snippets))
	for i, s := range snippets {
		entries[i] = Entry{Text: s.Text, Start: s.Start, Duration: s.Duration}
	}
	return entries
}
