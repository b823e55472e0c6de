package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiBackend calls the Gemini API directly.
type geminiBackend struct {
	client *genai.Client
	model  string
}

func newGeminiBackend(ctx context.Context, cfg Config) (*geminiBackend, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &geminiBackend{client: client, model: cfg.Model}, nil
}

func (b *geminiBackend) complete(ctx context.Context, req Request) (string, error) {
	temp := req.Temperature
	conf := &genai.GenerateContentConfig{Temperature: &temp}
	if req.Schema != nil {
		conf.ResponseMIMEType = "application/json"
	}

	resp, err := b.client.Models.GenerateContent(ctx, b.model, genai.Text(req.Prompt), conf)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return resp.Text(), nil
}

func (b *geminiBackend) ping(ctx context.Context) error {
	_, err := b.client.Models.Get(ctx, b.model, nil)
	return err
}
