// go_transcript: YouTube transcript API.
//
// Serves POST /api/transcript over HTTP and, when MCP_PORT is set, the
// youtube_transcript MCP tool. `go_transcript fetch <url>` runs one request
// from the command line.
package main

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/anatolykoptev/go_transcript/internal/youtube"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	verbose bool
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "go_transcript",
	Short: "Fetch YouTube transcripts over HTTP, MCP or the command line",
	Long: `go_transcript extracts the video id from a YouTube URL, fetches its captions
(preferred language, regional variant, translation, then any track) and returns
them as timestamped lines, JSON, SRT or WebVTT.

Without a subcommand it runs the HTTP server.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")
	rootCmd.AddCommand(serveCmd, fetchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func loadConfig() engine.Config {
	return engine.Config{
		Port:             env.Str("PORT", "8000"),
		MCPPort:          env.Str("MCP_PORT", ""),
		CORSOrigin:       env.Str("CORS_ORIGIN", "*"),
		Language:         env.Str("TRANSCRIPT_LANG", engine.DefaultLanguage),
		RegionalLanguage: env.Str("TRANSCRIPT_REGIONAL_LANG", engine.DefaultRegionalLanguage),
		TargetLanguage:   env.Str("TRANSCRIPT_TARGET_LANG", ""),
		ExampleURLs:      env.List("EXAMPLE_URLS", ""),
		FetchTimeout:     env.Duration("FETCH_TIMEOUT", 15*time.Second),
	}.WithDefaults()
}

// initBrowserClient returns the watch-page client when STEALTH=true or a
// Webshare proxy key is set, nil otherwise.
func initBrowserClient(cfg engine.Config) *engine.BrowserClient {
	apiKey := env.Str("WEBSHARE_API_KEY", "")
	enabled, _ := strconv.ParseBool(env.Str("STEALTH", "false"))
	if !enabled && apiKey == "" {
		return nil
	}
	bc, err := engine.NewBrowserClient(cfg.FetchTimeout, apiKey)
	if err != nil {
		slog.Error("stealth client init failed", slog.Any("error", err))
		return nil
	}
	slog.Info("stealth browser client initialized")
	return bc
}

// newService wires the YouTube client, fetch strategies and error messages.
func newService(cfg engine.Config) *transcript.Service {
	cfg.BrowserClient = initBrowserClient(cfg)

	yopts := []youtube.Option{youtube.WithHTTPClient(cfg.HTTPClient)}
	if cfg.BrowserClient != nil {
		yopts = append(yopts, youtube.WithBrowserClient(cfg.BrowserClient))
	}
	src := transcript.NewYouTubeSource(youtube.NewClient(yopts...))

	fetcher := transcript.NewFetcher(src, transcript.Languages{
		Primary:  cfg.Language,
		Regional: cfg.RegionalLanguage,
		Target:   cfg.TargetLanguage,
	})
	slog.Debug("caption languages", slog.Any("order", cfg.Languages()))

	return transcript.NewService(fetcher, transcript.Explainer{
		Language:    cfg.TargetLanguage,
		ExampleURLs: cfg.ExampleURLs,
	})
}
