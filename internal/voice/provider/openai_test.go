package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProvider_ListVoices(t *testing.T) {
	provider := NewOpenAIProvider("test-key")
	assert.Equal(t, "openai", provider.Name())

	voices, err := provider.ListVoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, voices, 6)
	assert.Equal(t, "alloy", voices[0].ID)
}

func TestOpenAIProvider_Synthesize(t *testing.T) {
	t.Run("maps options to request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/audio/speech", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var body openAISpeechRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "tts-1", body.Model)
			assert.Equal(t, "nova", body.Voice)
			assert.Equal(t, "mp3", body.ResponseFormat)
			assert.Equal(t, 0.9, body.Speed)

			w.WriteHeader(http.StatusOK)
			w.Write([]byte("audio"))
		}))
		defer server.Close()

		provider := NewOpenAIProvider("test-key")
		provider.baseURL = server.URL

		// an ElevenLabs model name from shared settings must not leak through
		reader, err := provider.Synthesize(context.Background(), "Hello", SynthesizeOptions{
			Voice: "nova",
			Speed: 0.9,
			Model: ElevenLabsDefaultModel,
		})
		require.NoError(t, err)
		defer reader.Close()

		data, _ := io.ReadAll(reader)
		assert.Equal(t, "audio", string(data))
	})

	t.Run("parses error body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": {"message": "Incorrect API key", "type": "invalid_request_error", "code": "invalid_api_key"}}`))
		}))
		defer server.Close()

		provider := NewOpenAIProvider("bad")
		provider.baseURL = server.URL

		_, err := provider.Synthesize(context.Background(), "Hello", SynthesizeOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Incorrect API key")
	})
}

func TestOpenAIProviderFromConfig(t *testing.T) {
	_, err := OpenAIProviderFromConfig(Config{})
	assert.Error(t, err)

	p, err := OpenAIProviderFromConfig(Config{APIKey: "k", BaseURL: "https://proxy.example.com/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "https://proxy.example.com/v1", p.baseURL)
	assert.True(t, p.IsAvailable(context.Background()))
}
