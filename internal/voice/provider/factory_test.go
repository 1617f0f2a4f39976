package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListProviders(t *testing.T) {
	providers := NewFactory().ListProviders()

	assert.Len(t, providers, 4)
	assert.Contains(t, providers, "elevenlabs")
	assert.Contains(t, providers, "polly")
	assert.Contains(t, providers, "gcp")
	assert.Contains(t, providers, "openai")
}

func TestCreateProvider_UnknownProvider(t *testing.T) {
	_, err := NewFactory().CreateProvider(context.Background(), Config{Provider: "unknown"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestCreateProvider_ElevenLabs(t *testing.T) {
	factory := NewFactory()

	t.Run("fails without API key", func(t *testing.T) {
		t.Setenv("ELEVENLABS_API_KEY", "")

		_, err := factory.CreateProvider(context.Background(), Config{Provider: "elevenlabs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key not found")
	})

	t.Run("empty name selects elevenlabs", func(t *testing.T) {
		p, err := factory.CreateProvider(context.Background(), Config{APIKey: "key"})
		require.NoError(t, err)
		assert.Equal(t, "elevenlabs", p.Name())
	})

	t.Run("falls back to environment", func(t *testing.T) {
		t.Setenv("ELEVENLABS_API_KEY", "env-key")

		p, err := factory.CreateProvider(context.Background(), Config{Provider: "elevenlabs"})
		require.NoError(t, err)
		assert.Equal(t, "env-key", p.(*ElevenLabsProvider).apiKey)
	})
}

func TestCreateProvider_OpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	_, err := NewFactory().CreateProvider(context.Background(), Config{Provider: "openai"})
	assert.Error(t, err)

	p, err := NewFactory().CreateProvider(context.Background(), Config{Provider: "openai", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())
}
