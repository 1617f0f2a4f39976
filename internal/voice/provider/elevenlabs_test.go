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

func TestNewElevenLabsProvider(t *testing.T) {
	provider := NewElevenLabsProvider("test-api-key")

	assert.NotNil(t, provider)
	assert.Equal(t, "test-api-key", provider.apiKey)
	assert.Equal(t, ElevenLabsBaseURL, provider.baseURL)
	assert.Equal(t, "elevenlabs", provider.Name())
}

func TestElevenLabsProvider_ListVoices(t *testing.T) {
	t.Run("successful voice listing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/voices", r.URL.Path)
			assert.Equal(t, "test-api-key", r.Header.Get("xi-api-key"))

			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{
				"voices": [
					{"voice_id": "voice1", "name": "Judy", "labels": {"language": "en", "gender": "female"}, "available_for_tts": true},
					{"voice_id": "voice2", "name": "Hidden", "available_for_tts": false},
					{"voice_id": "voice3", "name": "Plain"}
				]
			}`))
		}))
		defer server.Close()

		provider := NewElevenLabsProvider("test-api-key")
		provider.baseURL = server.URL

		voices, err := provider.ListVoices(context.Background())
		require.NoError(t, err)
		require.Len(t, voices, 2)
		assert.Equal(t, Voice{ID: "voice1", Name: "Judy", Language: "en", Gender: "female"}, voices[0])
		assert.Equal(t, "multilingual", voices[1].Language)
	})

	t.Run("handles API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": {"status": "invalid_api_key"}}`))
		}))
		defer server.Close()

		provider := NewElevenLabsProvider("test-api-key")
		provider.baseURL = server.URL

		_, err := provider.ListVoices(context.Background())
		assert.Error(t, err)
	})
}

func TestElevenLabsProvider_Synthesize(t *testing.T) {
	t.Run("returns error for empty text", func(t *testing.T) {
		provider := NewElevenLabsProvider("test-api-key")

		_, err := provider.Synthesize(context.Background(), "", SynthesizeOptions{})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "text cannot be empty")
	})

	t.Run("sends flash model and voice settings", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/text-to-speech/judy-voice", r.URL.Path)
			assert.Equal(t, "mp3_44100_128", r.URL.Query().Get("output_format"))
			assert.Equal(t, "test-api-key", r.Header.Get("xi-api-key"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body ElevenLabsTTSRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Hello world", body.Text)
			assert.Equal(t, ElevenLabsDefaultModel, body.ModelID)
			assert.Equal(t, 0.5, body.VoiceSettings.Stability)
			assert.Equal(t, 0.75, body.VoiceSettings.SimilarityBoost)
			assert.Equal(t, 0.0, body.VoiceSettings.Style)
			assert.True(t, body.VoiceSettings.UseSpeakerBoost)
			assert.Equal(t, 0.9, body.VoiceSettings.Speed)

			w.WriteHeader(http.StatusOK)
			w.Write([]byte("mock audio data"))
		}))
		defer server.Close()

		provider := NewElevenLabsProvider("test-api-key")
		provider.baseURL = server.URL

		reader, err := provider.Synthesize(context.Background(), "Hello world", SynthesizeOptions{
			Voice:           "judy-voice",
			Speed:           0.9,
			UseSpeakerBoost: true,
		})
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, "mock audio data", string(data))
	})

	t.Run("uses default voice", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/text-to-speech/"+ElevenLabsDefaultVoice, r.URL.Path)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("audio"))
		}))
		defer server.Close()

		provider := NewElevenLabsProvider("test-api-key")
		provider.baseURL = server.URL

		reader, err := provider.Synthesize(context.Background(), "Test", SynthesizeOptions{})
		require.NoError(t, err)
		reader.Close()
	})

	t.Run("handles API error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"detail": {"message": "voice not found"}}`))
		}))
		defer server.Close()

		provider := NewElevenLabsProvider("test-api-key")
		provider.baseURL = server.URL

		_, err := provider.Synthesize(context.Background(), "Test", SynthesizeOptions{Voice: "missing"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "voice not found")
		assert.Contains(t, err.Error(), "400")
	})
}

func TestElevenLabsProvider_IsAvailable(t *testing.T) {
	t.Run("no key", func(t *testing.T) {
		provider := NewElevenLabsProvider("")
		assert.False(t, provider.IsAvailable(context.Background()))
	})

	t.Run("key accepted", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"voices": []}`))
		}))
		defer server.Close()

		provider := NewElevenLabsProvider("key")
		provider.baseURL = server.URL
		assert.True(t, provider.IsAvailable(context.Background()))
	})
}

func TestConvertToElevenLabsFormat(t *testing.T) {
	tests := map[string]string{
		"":     "mp3_44100_128",
		"mp3":  "mp3_44100_128",
		"MP3":  "mp3_44100_128",
		"wav":  "pcm_44100",
		"pcm":  "pcm_44100",
		"ulaw": "ulaw_8000",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, convertToElevenLabsFormat(in), in)
	}
}

func TestElevenLabsProvider_OutputFormat(t *testing.T) {
	p := NewElevenLabsProvider("key")
	tests := map[string]string{
		"":     "mp3",
		"mp3":  "mp3",
		"wav":  "pcm",
		"WAVE": "pcm",
		"pcm":  "pcm",
		"ulaw": "ulaw",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, p.OutputFormat(in), in)
	}

	var _ FormatReporter = p
}

func TestClampElevenLabsSpeed(t *testing.T) {
	assert.Equal(t, 1.0, clampElevenLabsSpeed(0))
	assert.Equal(t, 0.7, clampElevenLabsSpeed(0.3))
	assert.Equal(t, 0.9, clampElevenLabsSpeed(0.9))
	assert.Equal(t, 1.2, clampElevenLabsSpeed(3))
}

func TestElevenLabsError_String(t *testing.T) {
	tests := []struct {
		name     string
		detail   interface{}
		expected string
	}{
		{"string detail", "bad key", "ElevenLabs API Error: bad key"},
		{"object detail", map[string]interface{}{"message": "quota exceeded"}, "ElevenLabs API Error: quota exceeded"},
		{"list detail", []interface{}{map[string]interface{}{"msg": "field required"}}, "ElevenLabs API Error: field required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ElevenLabsError{Detail: tt.detail}.String())
		})
	}
}

func TestElevenLabsProviderFromConfig(t *testing.T) {
	_, err := ElevenLabsProviderFromConfig(Config{})
	assert.Error(t, err)

	p, err := ElevenLabsProviderFromConfig(Config{APIKey: "k", BaseURL: "http://localhost:9999/v1/"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/v1", p.baseURL)
}
