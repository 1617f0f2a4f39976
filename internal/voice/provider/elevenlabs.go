package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	ElevenLabsBaseURL        = "https://api.elevenlabs.io/v1"
	ElevenLabsTTSEndpoint    = "/text-to-speech"
	ElevenLabsVoicesEndpoint = "/voices"

	// ElevenLabsDefaultModel is the low latency model used for chat replies
	ElevenLabsDefaultModel = "eleven_flash_v2_5"
	// ElevenLabsDefaultVoice is the pre-built "Rachel" voice
	ElevenLabsDefaultVoice = "21m00Tcm4TlvDq8ikWAM"
)

// ElevenLabsProvider implements the Provider interface for the ElevenLabs TTS API v1
type ElevenLabsProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewElevenLabsProvider creates a new ElevenLabs TTS provider
func NewElevenLabsProvider(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:  apiKey,
		baseURL: ElevenLabsBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Name returns the provider name
func (p *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

type elevenLabsVoice struct {
	VoiceID         string            `json:"voice_id"`
	Name            string            `json:"name"`
	Category        string            `json:"category"`
	Labels          map[string]string `json:"labels"`
	Description     string            `json:"description"`
	AvailableForTTS *bool             `json:"available_for_tts"`
}

type elevenLabsVoicesResponse struct {
	Voices []elevenLabsVoice `json:"voices"`
}

// VoiceSettings mirrors the voice_settings object of the TTS request
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

// ElevenLabsTTSRequest is the request body for synthesis
type ElevenLabsTTSRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// ListVoices returns the voices of the account
func (p *ElevenLabsProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+ElevenLabsVoicesEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make voices request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs voices API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var voicesResp elevenLabsVoicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&voicesResp); err != nil {
		return nil, fmt.Errorf("failed to decode voices response: %w", err)
	}

	voices := make([]Voice, 0, len(voicesResp.Voices))
	for _, v := range voicesResp.Voices {
		if v.AvailableForTTS != nil && !*v.AvailableForTTS {
			continue
		}
		language := "multilingual"
		if lang, ok := v.Labels["language"]; ok && lang != "" {
			language = lang
		}
		voices = append(voices, Voice{
			ID:          v.VoiceID,
			Name:        v.Name,
			Language:    language,
			Gender:      v.Labels["gender"],
			Description: v.Description,
		})
	}

	log.Debug().Int("voice_count", len(voices)).Msg("ElevenLabs voices retrieved")
	return voices, nil
}

// Synthesize converts text with the given voice and returns an MP3 (or PCM) stream
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, options SynthesizeOptions) (io.ReadCloser, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voice := options.Voice
	if voice == "" {
		voice = ElevenLabsDefaultVoice
	}
	model := options.Model
	if model == "" {
		model = ElevenLabsDefaultModel
	}
	outputFormat := convertToElevenLabsFormat(options.Format)

	settings := VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0,
		UseSpeakerBoost: options.UseSpeakerBoost,
		Speed:           clampElevenLabsSpeed(options.Speed),
	}
	if options.Stability > 0 {
		settings.Stability = options.Stability
	}
	if options.SimilarityBoost > 0 {
		settings.SimilarityBoost = options.SimilarityBoost
	}
	if options.Style > 0 {
		settings.Style = options.Style
	}

	payload, err := json.Marshal(ElevenLabsTTSRequest{
		Text:          text,
		ModelID:       model,
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s%s/%s?output_format=%s",
		p.baseURL, ElevenLabsTTSEndpoint, url.PathEscape(voice), url.QueryEscape(outputFormat))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", p.apiKey)

	log.Debug().
		Str("voice", voice).
		Str("model", model).
		Str("format", outputFormat).
		Float64("speed", settings.Speed).
		Msg("Making ElevenLabs TTS request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)

		var errorResp ElevenLabsError
		if json.Unmarshal(body, &errorResp) == nil && errorResp.Detail != nil {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, errorResp.String())
		}
		return nil, fmt.Errorf("ElevenLabs API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return resp.Body, nil
}

// IsAvailable checks the key by listing voices
func (p *ElevenLabsProvider) IsAvailable(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, p.baseURL+ElevenLabsVoicesEndpoint, nil)
	if err != nil {
		return false
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

// ElevenLabsProviderFromConfig creates an ElevenLabs provider from configuration
func ElevenLabsProviderFromConfig(cfg Config) (*ElevenLabsProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required for ElevenLabs provider")
	}

	p := NewElevenLabsProvider(cfg.APIKey)
	if cfg.BaseURL != "" {
		p.baseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return p, nil
}

// convertToElevenLabsFormat maps common format names to output_format values
func convertToElevenLabsFormat(format string) string {
	switch strings.ToLower(format) {
	case "wav", "wave", "pcm":
		return "pcm_44100"
	case "ulaw":
		return "ulaw_8000"
	default:
		return "mp3_44100_128"
	}
}

// OutputFormat names the encoding returned for a requested format. wav is
// served as headerless 16-bit mono PCM at 44.1 kHz.
func (p *ElevenLabsProvider) OutputFormat(requested string) string {
	switch convertToElevenLabsFormat(requested) {
	case "pcm_44100":
		return "pcm"
	case "ulaw_8000":
		return "ulaw"
	default:
		return "mp3"
	}
}

// clampElevenLabsSpeed keeps speed in the range the API accepts
func clampElevenLabsSpeed(speed float64) float64 {
	switch {
	case speed <= 0:
		return 1.0
	case speed < 0.7:
		return 0.7
	case speed > 1.2:
		return 1.2
	default:
		return speed
	}
}

// ElevenLabsError represents an error from ElevenLabs API
type ElevenLabsError struct {
	Detail interface{} `json:"detail"`
}

func (e ElevenLabsError) String() string {
	switch detail := e.Detail.(type) {
	case string:
		return fmt.Sprintf("ElevenLabs API Error: %s", detail)
	case map[string]interface{}:
		if msg, ok := detail["message"].(string); ok {
			return fmt.Sprintf("ElevenLabs API Error: %s", msg)
		}
		return fmt.Sprintf("ElevenLabs API Error: %v", detail)
	case []interface{}:
		if len(detail) > 0 {
			if first, ok := detail[0].(map[string]interface{}); ok {
				if msg, ok := first["msg"].(string); ok {
					return fmt.Sprintf("ElevenLabs API Error: %s", msg)
				}
			}
		}
		return fmt.Sprintf("ElevenLabs API Error: %v", detail)
	default:
		return fmt.Sprintf("ElevenLabs API Error: %v", detail)
	}
}
