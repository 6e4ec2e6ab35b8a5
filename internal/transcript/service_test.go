package transcript

import (
	"context"
	"errors"
	"testing"

	"github.com/anatolykoptev/go_transcript/internal/youtube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(src Source) *Service {
	return NewService(NewFetcher(src, testLangs), testExplainer)
}

func TestTranscribe(t *testing.T) {
	src := &fakeSource{byLang: map[string]fetchResult{
		"en": {entries: []Entry{{Text: "Hello", Start: 65, Duration: 2}}},
	}}

	res, err := newTestService(src).Transcribe(context.Background(), Request{
		URL: "https://youtu.be/dQw4w9WgXcQ", Format: "json",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, FormatJSON, res.Format)
	assert.Equal(t, "dQw4w9WgXcQ", res.VideoID)

	lines, ok := res.Transcript.([]JSONLine)
	require.True(t, ok, "got %T", res.Transcript)
	require.Len(t, lines, 1)
	assert.Equal(t, "https://youtube.com/watch?v=dQw4w9WgXcQ&t=65s", lines[0].Link)
}

func TestTranscribeDefaultsToText(t *testing.T) {
	src := &fakeSource{byLang: map[string]fetchResult{
		"en": {entries: []Entry{{Text: "Hello", Start: 1, Duration: 1}}},
	}}

	res, err := newTestService(src).Transcribe(context.Background(), Request{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	require.NoError(t, err)
	assert.Equal(t, FormatText, res.Format)
	assert.IsType(t, []TextLine{}, res.Transcript)
}

func TestTranscribeInvalidURL(t *testing.T) {
	src := &fakeSource{}
	svc := newTestService(src)

	_, err := svc.Transcribe(context.Background(), Request{URL: "https://example.com"})
	require.ErrorIs(t, err, ErrInvalidURL)
	assert.Empty(t, src.calls)

	p := svc.Explain(err)
	assert.Equal(t, 400, p.Status)
}

func TestTranscribeDisabled(t *testing.T) {
	disabled := &youtube.TranscriptsDisabledError{VideoID: "dQw4w9WgXcQ"}
	src := &fakeSource{
		byLang:  map[string]fetchResult{"en": {err: disabled}, "en-US": {err: disabled}},
		listErr: disabled,
	}
	svc := newTestService(src)

	res, err := svc.Transcribe(context.Background(), Request{URL: "https://youtu.be/dQw4w9WgXcQ"})
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.True(t, errors.Is(err, disabled))

	p := svc.Explain(err)
	assert.Equal(t, 400, p.Status)
	assert.Contains(t, p.Detail, "jNQXAC9IVRw")
}
