package transcriptserver

import (
	"context"
	"errors"
	"strings"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// TranscriptInput is the argument of the youtube_transcript tool.
type TranscriptInput struct {
	URL    string `json:"url" jsonschema:"YouTube video URL (watch, youtu.be, embed, /v/ or /e/ form)"`
	Format string `json:"format,omitempty" jsonschema:"Output format: text (default), json, srt or vtt"`
}

// RegisterTools registers youtube_transcript on server.
func RegisterTools(server *mcp.Server, svc Transcriber) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "youtube_transcript",
		Description: "Fetch the transcript of a YouTube video. Tries the configured language, its regional variant, a translated track and finally any available track (manual before auto-generated). Returns lines with timestamps and deep links, or an SRT/WebVTT document.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input TranscriptInput) (*mcp.CallToolResult, *transcript.Result, error) {
		if strings.TrimSpace(input.URL) == "" {
			return nil, nil, errors.New("url is required")
		}
		res, err := svc.Transcribe(ctx, transcript.Request{URL: input.URL, Format: input.Format})
		if err != nil {
			return nil, nil, errors.New(svc.Explain(err).Detail)
		}
		return nil, &res, nil
	})
}
