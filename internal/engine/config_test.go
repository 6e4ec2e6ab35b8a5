package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	c := Config{ExampleURLs: []string{""}}.WithDefaults()

	assert.Equal(t, "8000", c.Port)
	assert.Equal(t, "*", c.CORSOrigin)
	assert.Equal(t, "en", c.Language)
	assert.Equal(t, "en-US", c.RegionalLanguage)
	assert.Equal(t, "en", c.TargetLanguage)
	assert.Equal(t, DefaultExampleURLs, c.ExampleURLs)
	assert.Equal(t, 15*time.Second, c.FetchTimeout)
	require.NotNil(t, c.HTTPClient)
	assert.Equal(t, 15*time.Second, c.HTTPClient.Timeout)
	assert.Nil(t, c.BrowserClient)
}

func TestConfigWithDefaultsKeepsValues(t *testing.T) {
	c := Config{
		Port:           "9000",
		Language:       "de",
		TargetLanguage: "fr",
		ExampleURLs:    []string{"https://youtu.be/jNQXAC9IVRw", " "},
		FetchTimeout:   3 * time.Second,
	}.WithDefaults()

	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, "de", c.Language)
	assert.Equal(t, "fr", c.TargetLanguage)
	assert.Equal(t, []string{"https://youtu.be/jNQXAC9IVRw"}, c.ExampleURLs)
	assert.Equal(t, 3*time.Second, c.HTTPClient.Timeout)
}

func TestConfigLanguages(t *testing.T) {
	assert.Equal(t, []string{"en", "en-US"}, Config{}.WithDefaults().Languages())
	assert.Equal(t, []string{"de", "de-AT", "en"},
		Config{Language: "de", RegionalLanguage: "de-AT", TargetLanguage: "en"}.Languages())
	assert.Empty(t, Config{}.Languages())
}
