package transcript

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned when no video id can be extracted from a URL.
var ErrInvalidURL = errors.New("could not extract video ID from URL")

// videoIDRE matches watch?v=, embed/, v/, e/, youtu.be/ and any path with a v= query parameter.
var videoIDRE = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?)/|.*[?&]v=)|youtu\.be/)([^"&?/\s]{11})`)

// ExtractVideoID pulls the 11-char video ID from a YouTube URL.
// There is no best-effort fallback: unrecognized input yields ErrInvalidURL.
func ExtractVideoID(rawURL string) (string, error) {
	m := videoIDRE.FindStringSubmatch(strings.TrimSpace(rawURL))
	if len(m) < 2 {
		return "", ErrInvalidURL
	}
	return m[1], nil
}
