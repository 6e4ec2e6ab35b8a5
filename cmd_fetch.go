package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/anatolykoptev/go_transcript/internal/transcript"
	"github.com/spf13/cobra"
)

var fetchFormat string

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Print the transcript of one video",
	Long: `Fetch runs the same pipeline as POST /api/transcript and prints the result.
SRT and WebVTT are printed as plain documents, other formats as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService(loadConfig())
		res, err := svc.Transcribe(cmd.Context(), transcript.Request{URL: args[0], Format: fetchFormat})
		if err != nil {
			return errors.New(svc.Explain(err).Detail)
		}

		if doc, ok := res.Transcript.(string); ok {
			_, err = fmt.Fprint(os.Stdout, doc)
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", "text", "output format: text, json, srt or vtt")
}
