package provider

import (
	"context"
	"io"
)

// Provider defines the interface for TTS providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ListVoices returns available voices for this provider
	ListVoices(ctx context.Context) ([]Voice, error)

	// Synthesize generates audio from text and returns an audio stream
	Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error)

	// IsAvailable checks if the provider is available (can be used)
	IsAvailable(ctx context.Context) bool
}

// FormatReporter is implemented by providers whose audio encoding differs
// from the requested format name
type FormatReporter interface {
	OutputFormat(requested string) string
}

// Voice represents a voice option
type Voice struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Language    string `json:"language"`
	Gender      string `json:"gender,omitempty"`
	Description string `json:"description,omitempty"`
}

// SynthesizeOptions contains options for text synthesis
type SynthesizeOptions struct {
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed,omitempty"`    // Speed multiplier
	Format   string  `json:"format,omitempty"`   // Output format (mp3, wav, pcm, ogg)
	Language string  `json:"language,omitempty"` // Language code
	Model    string  `json:"model,omitempty"`

	// ElevenLabs voice settings
	Stability       float64 `json:"stability,omitempty"`
	SimilarityBoost float64 `json:"similarityBoost,omitempty"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"useSpeakerBoost,omitempty"`

	// Polly / GCP options
	Engine     string `json:"engine,omitempty"`
	SampleRate string `json:"sampleRate,omitempty"`
}

// Config selects and configures one provider
type Config struct {
	Provider  string `json:"provider"`
	APIKey    string `json:"apiKey,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Region    string `json:"region,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
	Voice     string `json:"voice,omitempty"`
	Language  string `json:"language,omitempty"`
	Engine    string `json:"engine,omitempty"`
}
