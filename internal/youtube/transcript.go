package youtube

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Snippet is one caption line with its timing in seconds.
type Snippet struct {
	Text     string
	Start    float64
	Duration float64
}

// Language is a caption or translation language offered by YouTube.
type Language struct {
	Code string
	Name string
}

// TranscriptList holds every caption track of one video.
type TranscriptList struct {
	VideoID              string
	Manual               []*Transcript
	Generated            []*Transcript
	TranslationLanguages []Language
}

// All returns manual tracks followed by auto-generated ones.
func (l *TranscriptList) All() []*Transcript {
	out := make([]*Transcript, 0, len(l.Manual)+len(l.Generated))
	out = append(out, l.Manual...)
	return append(out, l.Generated...)
}

// Codes lists the language codes of all tracks, manual first.
func (l *TranscriptList) Codes() []string {
	all := l.All()
	codes := make([]string, len(all))
	for i, t := range all {
		codes[i] = t.LanguageCode
	}
	return codes
}

// FindTranscript returns the first track matching langs in priority order.
// For each language a manual track wins over an auto-generated one.
func (l *TranscriptList) FindTranscript(langs []string) (*Transcript, error) {
	return l.find(langs, l.Manual, l.Generated)
}

func (l *TranscriptList) find(langs []string, groups ...[]*Transcript) (*Transcript, error) {
	for _, lang := range langs {
		for _, group := range groups {
			for _, t := range group {
				if t.LanguageCode == lang {
					return t, nil
				}
			}
		}
	}
	return nil, &NoTranscriptFoundError{VideoID: l.VideoID, Requested: langs, Available: l.Codes()}
}

// Transcript is a single caption track.
type Transcript struct {
	VideoID              string
	Language             string
	LanguageCode         string
	IsGenerated          bool
	TranslationLanguages []Language // empty when the track is not translatable

	baseURL    string
	translated bool
	isDefault  bool // the player's default caption track
	client     *Client
}

// IsTranslatable reports whether YouTube can machine-translate this track.
func (t *Transcript) IsTranslatable() bool {
	return len(t.TranslationLanguages) > 0
}

// Translate returns a track translated into code.
func (t *Transcript) Translate(code string) (*Transcript, error) {
	if !t.IsTranslatable() {
		return nil, &NotTranslatableError{VideoID: t.VideoID, LanguageCode: t.LanguageCode}
	}
	for _, l := range t.TranslationLanguages {
		if l.Code != code {
			continue
		}
		return &Transcript{
			VideoID:      t.VideoID,
			Language:     l.Name,
			LanguageCode: code,
			IsGenerated:  t.IsGenerated,
			baseURL:      t.baseURL + "&tlang=" + url.QueryEscape(code),
			translated:   true,
			client:       t.client,
		}, nil
	}
	return nil, &TranslationLanguageNotAvailableError{VideoID: t.VideoID, LanguageCode: code}
}

// Fetch downloads and parses the caption lines of the track.
func (t *Transcript) Fetch(ctx context.Context) ([]Snippet, error) {
	if needsPoToken(t.baseURL) {
		// The engagement panel only serves the default track, untranslated.
		if t.translated || !t.isDefault {
			return nil, &PoTokenRequiredError{VideoID: t.VideoID}
		}
		return t.client.fetchViaEngagementPanel(ctx, t.VideoID)
	}
	return t.client.fetchTimedText(ctx, t.VideoID, t.baseURL)
}

// needsPoToken reports whether a caption track URL requires a PoToken (browser-only).
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// fetchTimedText fetches and parses a YouTube timedtext XML caption URL.
func (c *Client) fetchTimedText(ctx context.Context, videoID, baseURL string) ([]Snippet, error) {
	engine.IncrTimedTextFetches()
	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", rateLimited(err, videoID))
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, videoID); err != nil {
		return nil, fmt.Errorf("fetch timedtext: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTimedTextBytes))
	if err != nil {
		return nil, err
	}
	return parseTimedText(body)
}

// parseTimedText decodes timedtext XML into snippets, dropping empty lines.
func parseTimedText(body []byte) ([]Snippet, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, errors.New("empty timedtext response")
	}
	var tt ytTimedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parse timedtext XML: %w", err)
	}

	snippets := make([]Snippet, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := engine.CleanCaption(line.Text)
		if text == "" {
			continue
		}
		snippets = append(snippets, Snippet{Text: text, Start: line.Start, Duration: line.Dur})
	}
	return snippets, nil
}
