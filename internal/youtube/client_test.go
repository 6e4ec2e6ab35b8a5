package youtube

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVideoID = "dQw4w9WgXcQ"

func watchHTML(playerJSON string) string {
	return `<!DOCTYPE html><html><head><title>Video - YouTube</title>
<script nonce="x">var ytcfg = {"a": 1};</script>
<script nonce="y">var ytInitialPlayerResponse = ` + playerJSON + `;var meta = document.createElement('meta');</script>
</head><body><div id="player"></div></body></html>`
}

// fakeYouTube serves a watch page plus timedtext for the given player JSON.
// The placeholder BASE in playerJSON is replaced with the server URL.
func fakeYouTube(t *testing.T, playerJSON string, extra func(mux *http.ServeMux)) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("GET /watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testVideoID, r.URL.Query().Get("v"))
		fmt.Fprint(w, watchHTML(strings.ReplaceAll(playerJSON, "BASE", srv.URL)))
	})
	mux.HandleFunc("GET /api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Query().Get("tlang") == "fr":
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8" ?><transcript>`+
				`<text start="0" dur="1.5">Bonjour</text></transcript>`)
		case r.URL.Query().Get("lang") == "de":
			fmt.Fprint(w, `<transcript><text start="3" dur="2">Hallo</text></transcript>`)
		default:
			fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8" ?><transcript>`+
				`<text start="0.5" dur="2.25">Never gonna give you up</text>`+
				`<text start="2.75" dur="1">  </text>`+
				`<text start="65" dur="2">I&amp;#39;m &lt;i&gt;never&lt;/i&gt; gonna</text></transcript>`)
		}
	})
	if extra != nil {
		extra(mux)
	}
	return srv, NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

const captionsPlayerJSON = `{
  "playabilityStatus": {"status": "OK"},
  "captions": {"playerCaptionsTracklistRenderer": {
    "captionTracks": [
      {"baseUrl": "BASE/api/timedtext?v=dQw4w9WgXcQ&lang=en", "name": {"simpleText": "English"}, "languageCode": "en", "isTranslatable": true},
      {"baseUrl": "BASE/api/timedtext?v=dQw4w9WgXcQ&lang=de&kind=asr", "name": {"runs": [{"text": "German (auto-generated)"}]}, "languageCode": "de", "kind": "asr", "isTranslatable": false}
    ],
    "translationLanguages": [
      {"languageCode": "fr", "languageName": {"simpleText": "French"}},
      {"languageCode": "es", "languageName": {"simpleText": "Spanish"}}
    ]
  }}
}`

func TestClientList(t *testing.T) {
	_, c := fakeYouTube(t, captionsPlayerJSON, nil)

	list, err := c.List(context.Background(), testVideoID)
	require.NoError(t, err)

	require.Len(t, list.Manual, 1)
	require.Len(t, list.Generated, 1)
	assert.Equal(t, "English", list.Manual[0].Language)
	assert.True(t, list.Manual[0].IsTranslatable())
	assert.Equal(t, "German (auto-generated)", list.Generated[0].Language)
	assert.True(t, list.Generated[0].IsGenerated)
	assert.False(t, list.Generated[0].IsTranslatable())
	assert.Equal(t, []string{"en", "de"}, list.Codes())
	assert.Len(t, list.TranslationLanguages, 2)
}

func TestClientFetch(t *testing.T) {
	_, c := fakeYouTube(t, captionsPlayerJSON, nil)

	got, err := c.Fetch(context.Background(), testVideoID, []string{"en"})
	require.NoError(t, err)
	want := []Snippet{
		{Text: "Never gonna give you up", Start: 0.5, Duration: 2.25},
		{Text: "I'm never gonna", Start: 65, Duration: 2},
	}
	assert.Equal(t, want, got)
}

func TestClientFetchLanguagePriority(t *testing.T) {
	_, c := fakeYouTube(t, captionsPlayerJSON, nil)

	got, err := c.Fetch(context.Background(), testVideoID, []string{"de", "en"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Hallo", got[0].Text)
}

func TestClientFetchNoTranscriptFound(t *testing.T) {
	_, c := fakeYouTube(t, captionsPlayerJSON, nil)

	_, err := c.Fetch(context.Background(), testVideoID, []string{"ja"})
	var nf *NoTranscriptFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, []string{"ja"}, nf.Requested)
	assert.Equal(t, []string{"en", "de"}, nf.Available)
}

func TestTranscriptTranslate(t *testing.T) {
	_, c := fakeYouTube(t, captionsPlayerJSON, nil)
	ctx := context.Background()

	list, err := c.List(ctx, testVideoID)
	require.NoError(t, err)
	en, err := list.FindTranscript([]string{"en"})
	require.NoError(t, err)

	fr, err := en.Translate("fr")
	require.NoError(t, err)
	assert.Equal(t, "fr", fr.LanguageCode)
	assert.Equal(t, "French", fr.Language)

	got, err := fr.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Snippet{{Text: "Bonjour", Start: 0, Duration: 1.5}}, got)

	_, err = en.Translate("ja")
	var tlErr *TranslationLanguageNotAvailableError
	assert.True(t, errors.As(err, &tlErr))

	de, err := list.FindTranscript([]string{"de"})
	require.NoError(t, err)
	_, err = de.Translate("fr")
	var ntErr *NotTranslatableError
	assert.True(t, errors.As(err, &ntErr))
}

func TestClientListDisabled(t *testing.T) {
	_, c := fakeYouTube(t, `{"playabilityStatus": {"status": "OK"}}`, nil)

	_, err := c.List(context.Background(), testVideoID)
	var disabled *TranscriptsDisabledError
	require.True(t, errors.As(err, &disabled), "got %v", err)
	assert.Equal(t, testVideoID, disabled.VideoID)
}

func TestClientListUnavailable(t *testing.T) {
	_, c := fakeYouTube(t, `{"playabilityStatus": {"status": "ERROR", "reason": "This video is private"}}`, nil)

	_, err := c.List(context.Background(), testVideoID)
	var unavailable *VideoUnavailableError
	require.True(t, errors.As(err, &unavailable), "got %v", err)
	assert.Equal(t, "This video is private", unavailable.Reason)
}

func TestClientListBotCheck(t *testing.T) {
	_, c := fakeYouTube(t, `{"playabilityStatus": {"status": "LOGIN_REQUIRED", "reason": "Sign in to confirm you're not a bot"}}`, nil)

	_, err := c.List(context.Background(), testVideoID)
	var tooMany *TooManyRequestsError
	assert.True(t, errors.As(err, &tooMany), "got %v", err)
}

func TestClientListRecaptcha(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="g-recaptcha" data-sitekey="x"></div></body></html>`)
	})
	mux.HandleFunc("POST /youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		t.Error("player fallback must not run after a captcha")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))

	_, err := c.List(context.Background(), testVideoID)
	var tooMany *TooManyRequestsError
	assert.True(t, errors.As(err, &tooMany), "got %v", err)
}

func TestClientListPlayerFallback(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("GET /watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>var nothing = 1;</script></head></html>`)
	})
	mux.HandleFunc("POST /youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"clientName":"ANDROID"`)
		assert.Equal(t, "3", r.Header.Get("X-Youtube-Client-Name"))
		fmt.Fprint(w, strings.ReplaceAll(captionsPlayerJSON, "BASE", srv.URL))
	})

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	list, err := c.List(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "de"}, list.Codes())
}

func TestTranscriptFetchPoTokenUsesEngagementPanel(t *testing.T) {
	const poJSON = `{
  "playabilityStatus": {"status": "OK"},
  "captions": {"playerCaptionsTracklistRenderer": {"captionTracks": [
    {"baseUrl": "BASE/api/timedtext?v=dQw4w9WgXcQ&lang=en&exp=xpe", "name": {"simpleText": "English"}, "languageCode": "en", "isTranslatable": true}
  ], "translationLanguages": [{"languageCode": "fr", "languageName": {"simpleText": "French"}}]}}
}`
	_, c := fakeYouTube(t, poJSON, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /youtubei/v1/next", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"engagementPanels":[{"x":{"getTranscriptEndpoint":{"params":"CgtkUXc0dzlXZ1hjUQ%3D%3D"}}}]}`)
		})
		mux.HandleFunc("POST /youtubei/v1/get_transcript", func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			assert.Contains(t, string(body), `"params":"CgtkUXc0dzlXZ1hjUQ=="`)
			fmt.Fprint(w, `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":{
"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[
{"transcriptSegmentRenderer":{"startMs":"1000","endMs":"3500","snippet":{"runs":[{"text":"First line"}]}}},
{"transcriptSectionHeaderRenderer":{}},
{"transcriptSegmentRenderer":{"startMs":"3500","endMs":"5000","snippet":{"simpleText":"Second line"}}}
]}}}}}}}}]}`)
		})
	})
	ctx := context.Background()

	list, err := c.List(ctx, testVideoID)
	require.NoError(t, err)
	en, err := list.FindTranscript([]string{"en"})
	require.NoError(t, err)

	got, err := en.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Snippet{
		{Text: "First line", Start: 1, Duration: 2.5},
		{Text: "Second line", Start: 3.5, Duration: 1.5},
	}, got)

	fr, err := en.Translate("fr")
	require.NoError(t, err)
	_, err = fr.Fetch(ctx)
	var po *PoTokenRequiredError
	assert.True(t, errors.As(err, &po), "got %v", err)
}

func TestTranscriptFetchPoTokenNonDefaultTrack(t *testing.T) {
	const poJSON = `{
  "playabilityStatus": {"status": "OK"},
  "captions": {"playerCaptionsTracklistRenderer": {
    "captionTracks": [
      {"baseUrl": "BASE/api/timedtext?v=dQw4w9WgXcQ&lang=en&exp=xpe", "name": {"simpleText": "English"}, "languageCode": "en"},
      {"baseUrl": "BASE/api/timedtext?v=dQw4w9WgXcQ&lang=de&exp=xpe", "name": {"simpleText": "German"}, "languageCode": "de"}
    ],
    "audioTracks": [{"captionTrackIndices": [0, 1], "defaultCaptionTrackIndex": 1}],
    "defaultAudioTrackIndex": 0
  }}
}`
	_, c := fakeYouTube(t, poJSON, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /youtubei/v1/next", func(w http.ResponseWriter, r *http.Request) {
			t.Error("engagement panel must not serve a non-default track")
		})
	})
	ctx := context.Background()

	list, err := c.List(ctx, testVideoID)
	require.NoError(t, err)
	en, err := list.FindTranscript([]string{"en"})
	require.NoError(t, err)

	_, err = en.Fetch(ctx)
	var po *PoTokenRequiredError
	assert.True(t, errors.As(err, &po), "got %v", err)
}

func TestDefaultCaptionTrack(t *testing.T) {
	one := 1
	tests := []struct {
		name string
		r    captionsRenderer
		want int
	}{
		{"no audio tracks", captionsRenderer{}, 0},
		{"default audio track", captionsRenderer{AudioTracks: []audioTrack{{}, {DefaultCaptionTrackIndex: &one}}, DefaultAudioTrackIndex: 1}, 1},
		{"no default caption", captionsRenderer{AudioTracks: []audioTrack{{}}}, 0},
		{"index out of range", captionsRenderer{AudioTracks: []audioTrack{{DefaultCaptionTrackIndex: &one}}, DefaultAudioTrackIndex: 3}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.r.defaultCaptionTrack())
		})
	}
}

func TestTranscriptFetchTimedTextRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("GET /watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, watchHTML(strings.ReplaceAll(captionsPlayerJSON, "BASE", srv.URL)))
	})
	mux.HandleFunc("GET /api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	c.retry = engine.RetryConfig{}

	_, err := c.Fetch(context.Background(), testVideoID, []string{"en"})
	var tooMany *TooManyRequestsError
	require.True(t, errors.As(err, &tooMany), "got %v", err)
	assert.Equal(t, testVideoID, tooMany.VideoID)
}

func TestClientListPlayerRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /watch", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><script>var nothing = 1;</script></head></html>`)
	})
	mux.HandleFunc("POST /youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	c.retry = engine.RetryConfig{}

	_, err := c.List(context.Background(), testVideoID)
	var tooMany *TooManyRequestsError
	assert.True(t, errors.As(err, &tooMany), "got %v", err)
}

func TestRateLimited(t *testing.T) {
	err := rateLimited(fmt.Errorf("retry: %s", http.StatusText(http.StatusTooManyRequests)), testVideoID)
	var tooMany *TooManyRequestsError
	assert.True(t, errors.As(err, &tooMany))

	other := errors.New("Service Unavailable")
	assert.Same(t, other, rateLimited(other, testVideoID))
}

func TestClientListCache(t *testing.T) {
	var watchHits atomic.Int32
	_, c := fakeYouTube(t, captionsPlayerJSON, nil)
	counting := c.httpClient.Transport
	if counting == nil {
		counting = http.DefaultTransport
	}
	c.httpClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/watch" {
			watchHits.Add(1)
		}
		return counting.RoundTrip(r)
	})}

	ctx := WithListCache(context.Background())
	_, err := c.List(ctx, testVideoID)
	require.NoError(t, err)
	_, err = c.List(ctx, testVideoID)
	require.NoError(t, err)
	_, err = c.Fetch(ctx, testVideoID, []string{"de"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), watchHits.Load())

	assert.Equal(t, ctx, WithListCache(ctx))

	_, err = c.List(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), watchHits.Load())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestParseTimedText(t *testing.T) {
	got, err := parseTimedText([]byte(`<transcript><text start="1.2" dur="0.8">a &amp;amp; b</text><text start="2">no dur</text></transcript>`))
	require.NoError(t, err)
	assert.Equal(t, []Snippet{
		{Text: "a & b", Start: 1.2, Duration: 0.8},
		{Text: "no dur", Start: 2, Duration: 0},
	}, got)

	_, err = parseTimedText([]byte("   "))
	assert.Error(t, err)

	_, err = parseTimedText([]byte("<transcript><text"))
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", `{"a":1};var x`, `{"a":1}`},
		{"nested", `{"a":{"b":{}}} trailing`, `{"a":{"b":{}}}`},
		{"brace in string", `{"a":"}{"} x`, `{"a":"}{"}`},
		{"escaped quote", `{"a":"\"}"} x`, `{"a":"\"}"}`},
		{"escaped backslash", `{"a":"\\"} x`, `{"a":"\\"}`},
		{"not object", `[1,2]`, ``},
		{"unterminated", `{"a":1`, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractJSON([]byte(tt.in))))
		})
	}
}

func TestFindPlayerResponse(t *testing.T) {
	page := watchHTML(`{"playabilityStatus":{"status":"OK","reason":"a = {b}"}}`)
	assert.Equal(t, `{"playabilityStatus":{"status":"OK","reason":"a = {b}"}}`, string(findPlayerResponse([]byte(page))))

	// The marker outside a script element is ignored.
	assert.Nil(t, findPlayerResponse([]byte(`<p>ytInitialPlayerResponse = {"a":1}</p>`)))

	// A reference without assignment is skipped.
	script := `<script>if (window.ytInitialPlayerResponse) {} var ytInitialPlayerResponse = {"x":2};</script>`
	assert.Equal(t, `{"x":2}`, string(findPlayerResponse([]byte(script))))
}

func TestExtractTranscriptToken(t *testing.T) {
	tok, err := extractTranscriptToken([]byte(`..."getTranscriptEndpoint":{"params":"abc%3D"}...`))
	require.NoError(t, err)
	assert.Equal(t, "abc=", tok)

	_, err = extractTranscriptToken([]byte(`{}`))
	assert.Error(t, err)
}
