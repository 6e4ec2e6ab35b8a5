// Package transcript turns a YouTube URL into a formatted transcript:
// URL parsing, the ordered fetch strategies, rendering, and the mapping of
// failures to user-facing messages.
package transcript

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_transcript/internal/engine"
)

// Request asks for the transcript of the video at URL.
type Request struct {
	URL    string `json:"url"`
	Format string `json:"format,omitempty"`
}

// Result is a successful transcript response.
type Result struct {
	Success    bool   `json:"success"`
	Format     Format `json:"format"`
	Transcript any    `json:"transcript"`
	VideoID    string `json:"video_id,omitempty"`
}

// Service runs Parse → Fetch → Render. It keeps no per-request state.
type Service struct {
	fetcher   *Fetcher
	explainer Explainer
}

// NewService creates a Service.
func NewService(f *Fetcher, x Explainer) *Service {
	return &Service{fetcher: f, explainer: x}
}

// Transcribe returns the complete formatted transcript or an error; never a partial result.
func (s *Service) Transcribe(ctx context.Context, req Request) (Result, error) {
	engine.IncrTranscriptRequests()
	format := ParseFormat(req.Format)

	videoID, err := ExtractVideoID(req.URL)
	if err != nil {
		engine.IncrInvalidURLs()
		return Result{}, err
	}

	var entries []Entry
	err = engine.TrackOperation(ctx, "transcript_fetch", func(ctx context.Context) error {
		var ferr error
		entries, ferr = s.fetcher.Fetch(ctx, videoID)
		return ferr
	})
	if err != nil {
		engine.IncrTranscriptErrors()
		slog.Warn("transcript: fetch failed", slog.String("id", videoID), slog.Any("err", err))
		return Result{}, err
	}

	engine.IncrTranscriptSuccesses()
	slog.Info("transcript: fetched",
		slog.String("id", videoID), slog.String("format", string(format)), slog.Int("entries", len(entries)))

	return Result{
		Success:    true,
		Format:     format,
		Transcript: Render(entries, videoID, format),
		VideoID:    videoID,
	}, nil
}

// Explain maps an error returned by Transcribe to a Problem.
func (s *Service) Explain(err error) Problem {
	return s.explainer.Explain(err)
}
