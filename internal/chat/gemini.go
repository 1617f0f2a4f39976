package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash-001"

// ContentGenerator is the subset of the genai models service we use
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements Generator on top of the Gemini API
type GeminiGenerator struct {
	models ContentGenerator
	model  string
}

// NewGeminiGenerator creates a generator backed by the Gemini developer API
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return NewGeminiGeneratorWithClient(client.Models, model), nil
}

// NewGeminiGeneratorWithClient wraps an existing models service
func NewGeminiGeneratorWithClient(models ContentGenerator, model string) *GeminiGenerator {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{models: models, model: model}
}

// Model returns the model name requests are sent to
func (g *GeminiGenerator) Model() string {
	return g.model
}

// Generate sends the turns and returns the reply text.
// Errors are classified so the client can decide whether to retry.
func (g *GeminiGenerator) Generate(ctx context.Context, turns []Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		role := genai.Role(genai.RoleUser)
		if turn.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	log.Debug().
		Str("model", g.model).
		Int("turns", len(contents)).
		Msg("Making Gemini generate request")

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Text(), nil
}

// classifyGeminiError wraps err with its failure class. Status codes are
// preferred; unknown error types fall back to message matching.
func classifyGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr, err)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyAPIError(*apiErrPtr, err)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Permanent(err)
	}
	return &ProviderFailure{Class: Classify(err), Err: err}
}

func classifyAPIError(apiErr genai.APIError, err error) error {
	switch {
	case apiErr.Code == http.StatusServiceUnavailable,
		apiErr.Code == http.StatusTooManyRequests,
		apiErr.Status == "UNAVAILABLE",
		apiErr.Status == "RESOURCE_EXHAUSTED":
		return Transient(err)
	default:
		return Permanent(err)
	}
}
