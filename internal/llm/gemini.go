package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type geminiProvider struct {
	client *genai.Client
	model  string
}

func newGemini(ctx context.Context, apiKey, model string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &geminiProvider{client: client, model: model}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error) {
	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if opts != nil {
		if opts.Temperature != nil {
			t := *opts.Temperature
			cfg.Temperature = &t
		}
		if opts.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(opts.MaxTokens)
		}
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		cfg,
	)
	if err != nil {
		return "", fmt.Errorf("gemini completion: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates: %w", ErrEmptyCompletion)
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			return part.Text, nil
		}
	}
	return "", fmt.Errorf("gemini returned no text content: %w", ErrEmptyCompletion)
}
