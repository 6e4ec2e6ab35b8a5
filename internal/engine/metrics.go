package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the service.
var metrics struct {
	TranscriptRequests  atomic.Int64
	TranscriptSuccesses atomic.Int64
	TranscriptErrors    atomic.Int64
	InvalidURLs         atomic.Int64
	WatchPageFetches    atomic.Int64
	PlayerFallbacks     atomic.Int64
	TimedTextFetches    atomic.Int64
	EngagementPanels    atomic.Int64
	StrategyFallbacks   atomic.Int64
}

// metricKeys fixes the output order of FormatMetrics.
var metricKeys = []string{
	"transcript_requests", "transcript_successes", "transcript_errors",
	"invalid_urls",
	"watch_page_fetches", "player_fallbacks", "timedtext_fetches", "engagement_panel_fetches",
	"strategy_fallbacks",
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"transcript_requests":      metrics.TranscriptRequests.Load(),
		"transcript_successes":     metrics.TranscriptSuccesses.Load(),
		"transcript_errors":        metrics.TranscriptErrors.Load(),
		"invalid_urls":             metrics.InvalidURLs.Load(),
		"watch_page_fetches":       metrics.WatchPageFetches.Load(),
		"player_fallbacks":         metrics.PlayerFallbacks.Load(),
		"timedtext_fetches":        metrics.TimedTextFetches.Load(),
		"engagement_panel_fetches": metrics.EngagementPanels.Load(),
		"strategy_fallbacks":       metrics.StrategyFallbacks.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the transcript pipeline.
func IncrTranscriptRequests()  { metrics.TranscriptRequests.Add(1) }
func IncrTranscriptSuccesses() { metrics.TranscriptSuccesses.Add(1) }
func IncrTranscriptErrors()    { metrics.TranscriptErrors.Add(1) }
func IncrInvalidURLs()         { metrics.InvalidURLs.Add(1) }
func IncrStrategyFallbacks()   { metrics.StrategyFallbacks.Add(1) }

// Incrementors for the youtube client.
func IncrWatchPageFetches() { metrics.WatchPageFetches.Add(1) }
func IncrPlayerFallbacks()  { metrics.PlayerFallbacks.Add(1) }
func IncrTimedTextFetches() { metrics.TimedTextFetches.Add(1) }
func IncrEngagementPanels() { metrics.EngagementPanels.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
