package transcript

import (
	"fmt"
	"math"
	"strings"
)

// Format selects the shape of a rendered transcript.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

// ParseFormat normalizes a requested format. Unknown values render as text.
func ParseFormat(s string) Format {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatSRT, FormatVTT:
		return f
	}
	return FormatText
}

// TextLine is one line of the text format.
type TextLine struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Link      string `json:"link"`
}

// JSONLine is one line of the json format.
type JSONLine struct {
	Text      string  `json:"text"`
	Start     float64 `json:"start"`
	Duration  float64 `json:"duration"`
	Timestamp string  `json:"timestamp"`
	Link      string  `json:"link"`
}

// Render formats entries for videoID. The result is []TextLine, []JSONLine or
// a subtitle string. It has no side effects.
func Render(entries []Entry, videoID string, f Format) any {
	switch f {
	case FormatJSON:
		out := make([]JSONLine, len(entries))
		for i, e := range entries {
			out[i] = JSONLine{
				Text:      e.Text,
				Start:     e.Start,
				Duration:  e.Duration,
				Timestamp: FormatTimestamp(e.Start),
				Link:      DeepLink(videoID, e.Start),
			}
		}
		return out
	case FormatSRT:
		return RenderSRT(entries)
	case FormatVTT:
		return RenderVTT(entries)
	}
	out := make([]TextLine, len(entries))
	for i, e := range entries {
		out[i] = TextLine{
			Text:      e.Text,
			Timestamp: FormatTimestamp(e.Start),
			Link:      DeepLink(videoID, e.Start),
		}
	}
	return out
}

// FormatTimestamp renders seconds as H:MM:SS, or M:SS under an hour.
func FormatTimestamp(seconds float64) string {
	total := wholeSeconds(seconds)
	h, m, s := total/3600, total%3600/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// DeepLink returns a watch URL starting playback at start.
func DeepLink(videoID string, start float64) string {
	return fmt.Sprintf("https://youtube.com/watch?v=%s&t=%ds", videoID, wholeSeconds(start))
}

func wholeSeconds(s float64) int64 {
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	return int64(math.Floor(s))
}

// RenderSRT renders SubRip cues numbered from 1. A cue ends where the next
// one starts when they would overlap.
func RenderSRT(entries []Entry) string {
	return renderCues(entries, "", func(i int, start, end, text string) string {
		return fmt.Sprintf("%d\n%s --> %s\n%s", i+1, start, end, text)
	}, ',')
}

// RenderVTT renders a WebVTT document with the same cue timing as RenderSRT.
func RenderVTT(entries []Entry) string {
	return renderCues(entries, "WEBVTT\n\n", func(_ int, start, end, text string) string {
		return fmt.Sprintf("%s --> %s\n%s", start, end, text)
	}, '.')
}

func renderCues(entries []Entry, header string, cue func(i int, start, end, text string) string, msSep byte) string {
	if len(entries) == 0 {
		return header
	}
	cues := make([]string, len(entries))
	for i, e := range entries {
		end := e.Start + e.Duration
		if i < len(entries)-1 && entries[i+1].Start < end {
			end = entries[i+1].Start
		}
		cues[i] = cue(i, cueTime(e.Start, msSep), cueTime(end, msSep), e.Text)
	}
	return header + strings.Join(cues, "\n\n") + "\n"
}

// cueTime renders seconds as HH:MM:SS<sep>mmm.
func cueTime(seconds float64, sep byte) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	m := ms % 3_600_000 / 60_000
	s := ms % 60_000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms%1000)
}
