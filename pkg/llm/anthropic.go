package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicEngine struct {
	config ChatConfig
	client anthropic.Client
}

func NewAnthropic(config ChatConfig) (*AnthropicEngine, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 2048
	}
	if config.Name == "" {
		config.Name = "anthropic/" + config.Model
	}

	// retries are owned by the pool
	client := anthropic.NewClient(
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	)

	return &AnthropicEngine{config: config, client: client}, nil
}

func (e *AnthropicEngine) Name() string {
	return e.config.Name
}

func (e *AnthropicEngine) Generate(ctx context.Context, req Request) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(e.config.Model),
		MaxTokens: int64(e.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if e.config.Temperature > 0 {
		params.Temperature = anthropic.Float(e.config.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from Claude API", ErrMalformed)
	}

	return text.String(), nil
}
