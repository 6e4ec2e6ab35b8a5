// Package transcriptserver exposes the transcript pipeline over HTTP and MCP.
package transcriptserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anatolykoptev/go_transcript/internal/engine"
	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/google/uuid"
)

// maxBodyBytes caps the size of a transcript request body.
const maxBodyBytes = 64 << 10

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Transcriber is the pipeline the handlers call. *transcript.Service implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcript.Request) (transcript.Result, error)
	Explain(err error) transcript.Problem
}

// Options configures NewHandler.
type Options struct {
	CORSOrigin string // Access-Control-Allow-Origin value; "*" when empty
}

// NewHandler returns the HTTP API:
//
//	GET  /                banner
//	POST /api/transcript  transcript of {"url", "format"}
//	GET  /health          liveness
//	GET  /metrics         text counters
//
// Every response carries CORS headers and OPTIONS requests are answered with 204.
func NewHandler(svc Transcriber, opts Options) http.Handler {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("POST /api/transcript", handleTranscript(svc))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, "ok")
	})
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, engine.FormatMetrics())
	})
	return withRequestID(withAccessLog(withCORS(mux, opts.CORSOrigin)))
}

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, "<h1>YouTube Transcriber API</h1>")
}

func handleTranscript(svc Transcriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transcript.Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&req); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid JSON body")
			return
		}
		if strings.TrimSpace(req.URL) == "" {
			writeDetail(w, http.StatusBadRequest, "url is required")
			return
		}

		res, err := svc.Transcribe(r.Context(), req)
		if err != nil {
			p := svc.Explain(err)
			if p.Status >= http.StatusInternalServerError {
				slog.Error("transcript request failed",
					slog.String("request_id", RequestID(r.Context())), slog.Any("error", err))
			}
			writeDetail(w, p.Status, p.Detail)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", slog.Any("error", err))
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID keeps a caller-supplied X-Request-ID or assigns a new uuid.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("http request",
			slog.String("request_id", RequestID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
