// Package youtube retrieves caption tracks for YouTube videos.
//
// Track discovery:  watch page ytInitialPlayerResponse (works from any IP)
// Fallback:         ANDROID Innertube /player
// Track content:    timedtext XML, or the engagement panel /get_transcript
// for tracks gated behind a PoToken.
package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"golang.org/x/net/html"
)

const (
	maxWatchPageBytes = 6 * 1024 * 1024
	maxTimedTextBytes = 2 * 1024 * 1024
	maxInnertubeBytes = 3 * 1024 * 1024
)

var errNoPlayerResponse = errors.New("ytInitialPlayerResponse not found in watch page")

// Client talks to YouTube. It holds no per-video state and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	browser    *engine.BrowserClient
	baseURL    string
	retry      engine.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the client used for Innertube and timedtext requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBrowserClient routes watch page requests through a TLS-fingerprinted client.
func WithBrowserClient(bc *engine.BrowserClient) Option {
	return func(c *Client) { c.browser = bc }
}

// WithBaseURL overrides https://www.youtube.com (tests).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    defaultBaseURL,
		retry:      engine.DefaultRetryConfig,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the snippets of the first track matching langs, manual tracks first.
func (c *Client) Fetch(ctx context.Context, videoID string, langs []string) ([]Snippet, error) {
	list, err := c.List(ctx, videoID)
	if err != nil {
		return nil, err
	}
	t, err := list.FindTranscript(langs)
	if err != nil {
		return nil, err
	}
	return t.Fetch(ctx)
}

type listCacheKey struct{}

type listResult struct {
	list *TranscriptList
	err  error
}

// listCache holds List results for the lifetime of one request context.
type listCache struct {
	mu    sync.Mutex
	lists map[string]listResult
}

// WithListCache returns a context under which List scrapes each video at most
// once. The results, failures included, live only as long as ctx.
func WithListCache(ctx context.Context) context.Context {
	if _, ok := ctx.Value(listCacheKey{}).(*listCache); ok {
		return ctx
	}
	return context.WithValue(ctx, listCacheKey{}, &listCache{lists: make(map[string]listResult)})
}

// List returns every caption track of the video.
func (c *Client) List(ctx context.Context, videoID string) (*TranscriptList, error) {
	lc, ok := ctx.Value(listCacheKey{}).(*listCache)
	if !ok {
		return c.list(ctx, videoID)
	}
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if r, ok := lc.lists[videoID]; ok {
		return r.list, r.err
	}
	list, err := c.list(ctx, videoID)
	if ctx.Err() == nil {
		lc.lists[videoID] = listResult{list: list, err: err}
	}
	return list, err
}

func (c *Client) list(ctx context.Context, videoID string) (*TranscriptList, error) {
	pr, err := c.playerFromWatchPage(ctx, videoID)
	if err != nil {
		var tooMany *TooManyRequestsError
		if errors.As(err, &tooMany) || ctx.Err() != nil {
			return nil, err
		}
		slog.Warn("youtube: watch page failed, trying android player",
			slog.String("id", videoID), slog.Any("err", err))
		engine.IncrPlayerFallbacks()
		pr, err = c.playerFromInnertube(ctx, videoID)
		if err != nil {
			return nil, err
		}
	}
	return c.buildTranscriptList(videoID, pr)
}

func (c *Client) buildTranscriptList(videoID string, pr *playerResponse) (*TranscriptList, error) {
	if ps := pr.PlayabilityStatus; ps != nil && ps.Status != "" && ps.Status != "OK" {
		if strings.Contains(ps.Reason, "not a bot") {
			return nil, &TooManyRequestsError{VideoID: videoID}
		}
		return nil, &VideoUnavailableError{VideoID: videoID, Reason: ps.Reason}
	}
	if pr.Captions == nil {
		return nil, &TranscriptsDisabledError{VideoID: videoID}
	}
	renderer := pr.Captions.PlayerCaptionsTracklistRenderer
	if len(renderer.CaptionTracks) == 0 {
		return nil, &TranscriptsDisabledError{VideoID: videoID}
	}

	langs := make([]Language, 0, len(renderer.TranslationLanguages))
	for _, tl := range renderer.TranslationLanguages {
		langs = append(langs, Language{Code: tl.LanguageCode, Name: tl.LanguageName.String()})
	}

	defaultIdx := renderer.defaultCaptionTrack()
	list := &TranscriptList{VideoID: videoID, TranslationLanguages: langs}
	for i, track := range renderer.CaptionTracks {
		t := &Transcript{
			VideoID:      videoID,
			Language:     track.Name.String(),
			LanguageCode: track.LanguageCode,
			IsGenerated:  track.Kind == "asr",
			isDefault:    i == defaultIdx,
			baseURL:      strings.Replace(track.BaseURL, "&fmt=srv3", "", 1),
			client:       c,
		}
		if track.IsTranslatable {
			t.TranslationLanguages = langs
		}
		if t.IsGenerated {
			list.Generated = append(list.Generated, t)
		} else {
			list.Manual = append(list.Manual, t)
		}
	}
	return list, nil
}

// playerFromWatchPage scrapes the watch page and decodes ytInitialPlayerResponse.
func (c *Client) playerFromWatchPage(ctx context.Context, videoID string) (*playerResponse, error) {
	engine.IncrWatchPageFetches()
	body, err := c.watchPage(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if bytes.Contains(body, []byte(`class="g-recaptcha"`)) {
		return nil, &TooManyRequestsError{VideoID: videoID}
	}
	raw := findPlayerResponse(body)
	if raw == nil {
		return nil, errNoPlayerResponse
	}
	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	return &pr, nil
}

func (c *Client) watchPage(ctx context.Context, videoID string) ([]byte, error) {
	watchURL := c.baseURL + "/watch?v=" + videoID

	// Prefer BrowserClient - YouTube serves consent/bot pages to non-browser TLS fingerprints.
	if c.browser != nil {
		headers := engine.ChromeHeaders()
		headers["cookie"] = "CONSENT=YES+cb"
		return engine.RetryDo(ctx, c.retry, func() ([]byte, error) {
			data, _, status, err := c.browser.Do(http.MethodGet, watchURL, headers, nil)
			if err != nil {
				return nil, fmt.Errorf("watch page browser fetch: %w", err)
			}
			if status == http.StatusTooManyRequests {
				return nil, &TooManyRequestsError{VideoID: videoID}
			}
			if status != http.StatusOK {
				return nil, fmt.Errorf("watch page status %d", status)
			}
			return data, nil
		})
	}

	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.RandomUserAgent())
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		req.AddCookie(&http.Cookie{Name: "CONSENT", Value: "YES+cb"})
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", rateLimited(err, videoID))
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, videoID); err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWatchPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}
	return body, nil
}

// playerFromInnertube uses the ANDROID Innertube /player endpoint.
func (c *Client) playerFromInnertube(ctx context.Context, videoID string) (*playerResponse, error) {
	data, err := c.postInnertube(ctx, ytPlayerPath, innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}, map[string]string{
		"User-Agent":               ytAndroidUA,
		"X-Youtube-Client-Name":    "3",
		"X-Youtube-Client-Version": ytAndroidVersion,
	}, videoID)
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}
	var pr playerResponse
	if err := json.Unmarshal(data, &pr); err != nil {
		return nil, fmt.Errorf("decode player: %w", err)
	}
	return &pr, nil
}

// postInnertube POSTs a JSON payload to an Innertube endpoint and returns the raw body.
func (c *Client) postInnertube(ctx context.Context, path string, payload any, headers map[string]string, videoID string) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL + path + "?prettyPrint=false"

	resp, err := engine.RetryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("innertube [%s]: %w", path, rateLimited(err, videoID))
	}
	defer resp.Body.Close()
	if err := checkStatus(resp, videoID); err != nil {
		return nil, fmt.Errorf("innertube [%s]: %w", path, err)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxInnertubeBytes))
}

// rateLimited maps a 429 that exhausted the retry layer to TooManyRequestsError.
// The retry layer reports it as a status error carrying the status text.
func rateLimited(err error, videoID string) error {
	var tooMany *TooManyRequestsError
	if errors.As(err, &tooMany) {
		return err
	}
	if strings.Contains(err.Error(), http.StatusText(http.StatusTooManyRequests)) {
		return &TooManyRequestsError{VideoID: videoID}
	}
	return err
}

// checkStatus turns a non-200 response into an error carrying a body snippet.
func checkStatus(resp *http.Response, videoID string) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &TooManyRequestsError{VideoID: videoID}
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, engine.TruncateRunes(strings.TrimSpace(string(snippet)), 200, "..."))
}

// ytInitialPlayerResponseMarker names the player response variable in watch page scripts.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse"

// findPlayerResponse walks <script> nodes of the watch page and returns the
// ytInitialPlayerResponse JSON object, or nil.
func findPlayerResponse(page []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(page))
	inScript := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return nil
		case html.StartTagToken:
			name, _ := z.TagName()
			inScript = string(name) == "script"
		case html.EndTagToken:
			inScript = false
		case html.TextToken:
			if !inScript {
				continue
			}
			if js := playerJSONFromScript(z.Text()); js != nil {
				return js
			}
		}
	}
}

func playerJSONFromScript(script []byte) []byte {
	marker := []byte(ytInitialPlayerResponseMarker)
	for {
		idx := bytes.Index(script, marker)
		if idx < 0 {
			return nil
		}
		rest := bytes.TrimLeft(script[idx+len(marker):], " \t\r\n")
		script = script[idx+len(marker):]
		if len(rest) == 0 || rest[0] != '=' {
			continue
		}
		rest = bytes.TrimLeft(rest[1:], " \t\r\n")
		if js := extractJSON(rest); js != nil {
			return bytes.Clone(js)
		}
	}
}

// extractJSON returns the leading balanced JSON object of b, or nil.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, ch := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
