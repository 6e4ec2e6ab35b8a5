package youtube

import (
	"fmt"
	"strings"
)

// TranscriptsDisabledError means the video has no caption tracks at all.
type TranscriptsDisabledError struct {
	VideoID string
}

func (e *TranscriptsDisabledError) Error() string {
	return fmt.Sprintf("subtitles are disabled for this video (%s)", e.VideoID)
}

// VideoUnavailableError means the video is private, removed or otherwise not playable.
type VideoUnavailableError struct {
	VideoID string
	Reason  string
}

func (e *VideoUnavailableError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("video %s is unavailable: %s", e.VideoID, e.Reason)
	}
	return fmt.Sprintf("video %s is unavailable", e.VideoID)
}

// NoTranscriptFoundError means no track matched any requested language.
type NoTranscriptFoundError struct {
	VideoID   string
	Requested []string
	Available []string
}

func (e *NoTranscriptFoundError) Error() string {
	return fmt.Sprintf("no transcript found for video %s in languages [%s] (available: [%s])",
		e.VideoID, strings.Join(e.Requested, ", "), strings.Join(e.Available, ", "))
}

// TooManyRequestsError means YouTube answered with a captcha, 429 or a bot check.
type TooManyRequestsError struct {
	VideoID string
}

func (e *TooManyRequestsError) Error() string {
	return fmt.Sprintf("youtube is rate limiting requests for video %s", e.VideoID)
}

// NotTranslatableError means the track cannot be machine-translated.
type NotTranslatableError struct {
	VideoID      string
	LanguageCode string
}

func (e *NotTranslatableError) Error() string {
	return fmt.Sprintf("transcript %s of video %s is not translatable", e.LanguageCode, e.VideoID)
}

// TranslationLanguageNotAvailableError means YouTube offers no translation into the language.
type TranslationLanguageNotAvailableError struct {
	VideoID      string
	LanguageCode string
}

func (e *TranslationLanguageNotAvailableError) Error() string {
	return fmt.Sprintf("translation to %s is not available for video %s", e.LanguageCode, e.VideoID)
}

// PoTokenRequiredError means the caption URL only works inside a browser session.
type PoTokenRequiredError struct {
	VideoID string
}

func (e *PoTokenRequiredError) Error() string {
	return fmt.Sprintf("caption track of video %s requires a PoToken", e.VideoID)
}
