// Package ai provides the optional text-generation capability backed by
// Gemini on Vertex AI. Callers depend on the classify.Generator interface,
// never on this concrete client, so a missing GOOGLE_CLOUD_PROJECT simply
// leaves the capability nil.
package ai

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/example/jobtracker/internal/config"
)

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiFromConfig returns (nil, nil) when no project is configured,
// which disables every AI feature without failing startup.
func NewGeminiFromConfig(ctx context.Context, cfg config.Config) (*GeminiClient, error) {
	if cfg.GeminiProject == "" {
		return nil, nil
	}
	client, err := genai.NewClient(ctx, cfg.GeminiProject, cfg.GeminiLocation)
	if err != nil {
		return nil, fmt.Errorf("create vertex ai client: %w", err)
	}

	model := client.GenerativeModel(cfg.GeminiModel)
	model.SetTemperature(0.2)
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(2048)

	return &GeminiClient{client: client, model: model}, nil
}

// Generate sends one prompt and returns the concatenated text parts.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates returned")
	}

	var result string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			result += string(text)
		}
	}
	return result, nil
}

func (g *GeminiClient) Close() error { return g.client.Close() }
