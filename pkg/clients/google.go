package clients

import (
	"context"
	"fmt"
	"os"

	"github.com/tmc/langchaingo/llms/googleai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-3-flash-preview"

// GoogleAI builds a langchaingo model backed by the Gemini API. The API key
// falls back to GOOGLE_API_KEY when empty.
func GoogleAI(ctx context.Context, model, apiKey string) (*googleai.GoogleAI, error) {
	if model == "" {
		model = DefaultModel
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no Google API key configured")
	}

	llm, err := googleai.New(ctx, googleai.WithAPIKey(apiKey), googleai.WithDefaultModel(model))
	if err != nil {
		return nil, fmt.Errorf("failed to init Gemini client: %w", err)
	}
	return llm, nil
}
