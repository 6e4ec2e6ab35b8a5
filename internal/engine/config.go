package engine

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

// Default caption language preferences.
const (
	DefaultLanguage         = "en"
	DefaultRegionalLanguage = "en-US"
)

// DefaultExampleURLs are videos known to carry captions, suggested to users
// when a requested video has captions disabled.
var DefaultExampleURLs = []string{
	"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
	"https://www.youtube.com/watch?v=jNQXAC9IVRw",
	"https://www.youtube.com/watch?v=9bZkp7q5slw",
}

// Config holds the service configuration, built in main and passed explicitly
// to the components that need it.
type Config struct {
	Port             string
	MCPPort          string
	CORSOrigin       string
	Language         string   // primary caption language, e.g. "en"
	RegionalLanguage string   // regional variant tried second, e.g. "en-US"
	TargetLanguage   string   // language transcripts are translated into
	ExampleURLs      []string // suggested when captions are disabled
	FetchTimeout     time.Duration
	HTTPClient       *http.Client
	BrowserClient    *BrowserClient // nil = plain HTTP client for watch pages
}

// WithDefaults fills zero fields with defaults.
func (c Config) WithDefaults() Config {
	if c.Port == "" {
		c.Port = "8000"
	}
	if c.CORSOrigin == "" {
		c.CORSOrigin = "*"
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	if c.RegionalLanguage == "" {
		c.RegionalLanguage = DefaultRegionalLanguage
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = c.Language
	}
	c.ExampleURLs = slices.DeleteFunc(slices.Clone(c.ExampleURLs), func(u string) bool {
		return strings.TrimSpace(u) == ""
	})
	if len(c.ExampleURLs) == 0 {
		c.ExampleURLs = DefaultExampleURLs
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(c.FetchTimeout)
	}
	return c
}

// Languages returns the caption language preferences in priority order,
// without duplicates.
func (c Config) Languages() []string {
	seen := make(map[string]bool, 3)
	var out []string
	for _, l := range []string{c.Language, c.RegionalLanguage, c.TargetLanguage} {
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
