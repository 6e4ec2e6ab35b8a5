package transcript

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/youtube"
)

// Cause is the category of a retrieval failure.
type Cause int

const (
	CauseUnclassified Cause = iota
	CauseNotFound
	CauseTooManyRequests
	CauseDisabled
	CauseUnavailable
)

func (c Cause) String() string {
	switch c {
	case CauseNotFound:
		return "not_found"
	case CauseTooManyRequests:
		return "too_many_requests"
	case CauseDisabled:
		return "disabled"
	case CauseUnavailable:
		return "unavailable"
	}
	return "unclassified"
}

// Classify maps a retrieval error to its Cause.
func Classify(err error) Cause {
	var (
		disabled    *youtube.TranscriptsDisabledError
		unavailable *youtube.VideoUnavailableError
		notFound    *youtube.NoTranscriptFoundError
		notTransl   *youtube.NotTranslatableError
		noLanguage  *youtube.TranslationLanguageNotAvailableError
		tooMany     *youtube.TooManyRequestsError
		poToken     *youtube.PoTokenRequiredError
	)
	switch {
	case errors.As(err, &unavailable):
		return CauseUnavailable
	case errors.As(err, &disabled):
		return CauseDisabled
	case errors.As(err, &tooMany):
		return CauseTooManyRequests
	case errors.As(err, &notFound), errors.As(err, &notTransl), errors.As(err, &noLanguage), errors.As(err, &poToken):
		return CauseNotFound
	}
	return CauseUnclassified
}

// Problem is a user-facing error: an HTTP status and a human-readable detail.
type Problem struct {
	Status int
	Detail string
}

// Explainer turns pipeline errors into Problems. It never retries anything.
type Explainer struct {
	Language    string   // target language named in not-found messages
	ExampleURLs []string // suggested when captions are disabled
}

// Explain maps err to a Problem. Aggregate failures are reported by their
// most specific cause: unavailable, disabled, too many requests, not found.
// Anything else is unexpected and keeps its message verbatim with status 500.
func (x Explainer) Explain(err error) Problem {
	if errors.Is(err, ErrInvalidURL) {
		return Problem{Status: http.StatusBadRequest, Detail: "Could not extract video ID from URL"}
	}

	var causes []Cause
	var fe *FetchError
	if errors.As(err, &fe) {
		causes = fe.Causes()
	} else {
		causes = []Cause{Classify(err)}
	}

	switch top := topCause(causes); top {
	case CauseUnavailable:
		return Problem{Status: http.StatusBadRequest, Detail: x.unavailable(err)}
	case CauseDisabled:
		return Problem{Status: http.StatusBadRequest, Detail: x.disabled()}
	case CauseTooManyRequests:
		return Problem{Status: http.StatusBadRequest,
			Detail: "YouTube is temporarily refusing transcript requests from this server. Please try again later."}
	case CauseNotFound:
		return Problem{Status: http.StatusBadRequest, Detail: x.notFound(err)}
	}
	return Problem{Status: http.StatusInternalServerError, Detail: err.Error()}
}

func topCause(causes []Cause) Cause {
	top := CauseUnclassified
	for _, c := range causes {
		if c > top {
			top = c
		}
	}
	return top
}

func (x Explainer) disabled() string {
	var sb strings.Builder
	sb.WriteString("Subtitles are disabled for this video. Try a video that has captions enabled, for example:")
	for _, u := range x.ExampleURLs {
		sb.WriteString("\n- ")
		sb.WriteString(u)
	}
	return sb.String()
}

func (x Explainer) notFound(err error) string {
	lang := x.Language
	if lang == "" {
		lang = "the requested language"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "No transcript found in %s for this video. This usually means:\n", lang)
	sb.WriteString("1. The video has no captions at all\n")
	sb.WriteString("2. The video only has auto-generated captions that are not available\n")
	sb.WriteString("3. The captions exist only in other languages")

	if codes := availableCodes(err); len(codes) > 0 {
		fmt.Fprintf(&sb, " (available: %s)", strings.Join(codes, ", "))
	}
	return sb.String()
}

// availableCodes returns the first non-empty list of available languages
// reported by a not-found error in err.
func availableCodes(err error) []string {
	errs := []error{err}
	var fe *FetchError
	if errors.As(err, &fe) {
		errs = fe.Unwrap()
	}
	for _, e := range errs {
		var nf *youtube.NoTranscriptFoundError
		if errors.As(e, &nf) && len(nf.Available) > 0 {
			return nf.Available
		}
	}
	return nil
}

func (x Explainer) unavailable(err error) string {
	var ue *youtube.VideoUnavailableError
	if !errors.As(err, &ue) {
		return "The video is unavailable. It may be private, removed or region-restricted."
	}
	msg := fmt.Sprintf("Video %s is unavailable. It may be private, removed or region-restricted.", ue.VideoID)
	if ue.Reason != "" {
		msg += " YouTube says: " + ue.Reason
	}
	return msg
}
