package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type GeminiEngine struct {
	config ChatConfig
	client *genai.Client
}

func NewGemini(ctx context.Context, config ChatConfig) (*GeminiEngine, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if config.Name == "" {
		config.Name = "gemini/" + config.Model
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEngine{config: config, client: client}, nil
}

func (e *GeminiEngine) Name() string {
	return e.config.Name
}

func (e *GeminiEngine) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(e.config.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.config.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty response from Gemini API", ErrMalformed)
	}
	return text, nil
}
