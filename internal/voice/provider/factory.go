package provider

import (
	"context"
	"fmt"
	"os"
)

// DefaultFactory is the default provider factory
type DefaultFactory struct{}

// NewFactory creates a new provider factory
func NewFactory() *DefaultFactory {
	return &DefaultFactory{}
}

// CreateProvider creates a provider instance by name
func (f *DefaultFactory) CreateProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", "elevenlabs":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ELEVENLABS_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ElevenLabs API key not found in settings or ELEVENLABS_API_KEY environment variable")
		}
		return ElevenLabsProviderFromConfig(cfg)
	case "polly":
		if cfg.Region == "" {
			cfg.Region = os.Getenv("AWS_REGION")
		}
		return PollyProviderFromConfig(ctx, cfg)
	case "openai":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		return OpenAIProviderFromConfig(cfg)
	case "gcp":
		if cfg.ProjectID == "" {
			cfg.ProjectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
		}
		return GCPProviderFromConfig(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// ListProviders returns available provider names
func (f *DefaultFactory) ListProviders() []string {
	return []string{"elevenlabs", "polly", "gcp", "openai"}
}
