package transcript

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/youtube"
)

// Languages are the caption language preferences of a Fetcher.
type Languages struct {
	Primary  string // tried first, e.g. "en"
	Regional string // tried second, e.g. "en-US"
	Target   string // language a found track is translated into
}

// preferred returns Primary, Regional, Target without blanks or duplicates.
func (l Languages) preferred() []string {
	var out []string
	for _, code := range []string{l.Primary, l.Regional, l.Target} {
		if code != "" && !slices.Contains(out, code) {
			out = append(out, code)
		}
	}
	return out
}

// Strategy is one named way of obtaining a transcript.
type Strategy struct {
	Name  string
	Fetch func(ctx context.Context, src Source, videoID string) ([]Entry, error)
}

// Attempt records a failed strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// FetchError is returned when every strategy failed.
type FetchError struct {
	VideoID  string
	Attempts []Attempt
}

func (e *FetchError) Error() string {
	msgs := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		msgs[i] = a.Err.Error()
	}
	return "Failed to get transcript. Errors: " + strings.Join(msgs, " | ")
}

// Unwrap exposes the attempt errors to errors.Is and errors.As.
func (e *FetchError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Causes returns the distinct failure categories, in attempt order.
func (e *FetchError) Causes() []Cause {
	var out []Cause
	for _, a := range e.Attempts {
		c := Classify(a.Err)
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Fetcher tries its strategies in order until one succeeds.
type Fetcher struct {
	source     Source
	strategies []Strategy
}

// NewFetcher creates a Fetcher over src. With no strategies, DefaultStrategies(langs) is used.
func NewFetcher(src Source, langs Languages, strategies ...Strategy) *Fetcher {
	if len(strategies) == 0 {
		strategies = DefaultStrategies(langs)
	}
	return &Fetcher{source: src, strategies: strategies}
}

// Fetch returns the entries of the first successful strategy.
// Failures of earlier strategies are only reported if all of them fail.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) ([]Entry, error) {
	ctx = youtube.WithListCache(ctx)
	fe := &FetchError{VideoID: videoID}
	for i, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := s.Fetch(ctx, f.source, videoID)
		if err == nil {
			if i > 0 {
				slog.Info("transcript: fallback succeeded",
					slog.String("id", videoID), slog.String("strategy", s.Name))
			}
			return entries, nil
		}
		fe.Attempts = append(fe.Attempts, Attempt{Strategy: s.Name, Err: err})
		if i < len(f.strategies)-1 {
			engine.IncrStrategyFallbacks()
			slog.Warn("transcript: strategy failed, trying next",
				slog.String("id", videoID), slog.String("strategy", s.Name), slog.Any("err", err))
		}
	}
	if len(fe.Attempts) == 0 {
		return nil, errors.New("no transcript strategies configured")
	}
	return nil, fe
}

// DefaultStrategies returns, in order:
//
//	primary:   direct fetch in the primary language
//	regional:  direct fetch in the regional variant
//	translate: find a track in the target language and translate it to the target language
//	any:       any track, manual before auto-generated, translated to the target when possible
func DefaultStrategies(l Languages) []Strategy {
	var out []Strategy
	if l.Primary != "" {
		out = append(out, directStrategy("primary", l.Primary))
	}
	if l.Regional != "" && l.Regional != l.Primary {
		out = append(out, directStrategy("regional", l.Regional))
	}
	if l.Target != "" {
		out = append(out, translateStrategy(l.Target))
	}
	return append(out, anyTrackStrategy(l))
}

func directStrategy(name, lang string) Strategy {
	return Strategy{
		Name: name,
		Fetch: func(ctx context.Context, src Source, videoID string) ([]Entry, error) {
			return src.Fetch(ctx, videoID, []string{lang})
		},
	}
}

func translateStrategy(target string) Strategy {
	return Strategy{
		Name: "translate",
		Fetch: func(ctx context.Context, src Source, videoID string) ([]Entry, error) {
			tracks, err := src.List(ctx, videoID)
			if err != nil {
				return nil, err
			}
			track := findTrack(tracks, []string{target})
			if track == nil {
				return nil, &youtube.NoTranscriptFoundError{VideoID: videoID, Requested: []string{target}, Available: trackCodes(tracks)}
			}
			translated, err := track.Translate(target)
			if err != nil {
				return nil, err
			}
			return translated.Fetch(ctx)
		},
	}
}

func anyTrackStrategy(l Languages) Strategy {
	return Strategy{
		Name: "any",
		Fetch: func(ctx context.Context, src Source, videoID string) ([]Entry, error) {
			tracks, err := src.List(ctx, videoID)
			if err != nil {
				return nil, err
			}
			if len(tracks) == 0 {
				return nil, &youtube.TranscriptsDisabledError{VideoID: videoID}
			}
			track := findTrack(tracks, l.preferred())
			if track == nil {
				track = preferManual(tracks)
			}
			if l.Target != "" && track.LanguageCode() != l.Target && track.IsTranslatable() {
				if translated, err := track.Translate(l.Target); err == nil {
					track = translated
				} else {
					slog.Debug("transcript: translation unavailable, using original track",
						slog.String("id", videoID), slog.String("lang", track.LanguageCode()), slog.Any("err", err))
				}
			}
			return track.Fetch(ctx)
		},
	}
}

// findTrack returns the first track in langs order, manual before auto-generated.
func findTrack(tracks []Track, langs []string) Track {
	for _, lang := range langs {
		var generated Track
		for _, t := range tracks {
			if t.LanguageCode() != lang {
				continue
			}
			if !t.IsGenerated() {
				return t
			}
			if generated == nil {
				generated = t
			}
		}
		if generated != nil {
			return generated
		}
	}
	return nil
}

// preferManual returns the first manual track, or the first track.
func preferManual(tracks []Track) Track {
	for _, t := range tracks {
		if !t.IsGenerated() {
			return t
		}
	}
	return tracks[0]
}

func trackCodes(tracks []Track) []string {
	codes := make([]string, len(tracks))
	for i, t := range tracks {
		codes[i] = t.LanguageCode()
	}
	return codes
}
