package ai

import (
	"context"
	"fmt"

	"tax-document-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiEmbedder generates embedding vectors via Google Generative AI
// (text-embedding-004 by default).
type GeminiEmbedder struct {
	cfg *config.Config
}

func NewGeminiEmbedder(cfg *config.Config) *GeminiEmbedder {
	return &GeminiEmbedder{cfg: cfg}
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(e.cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	defer client.Close()

	model := client.EmbeddingModel(e.cfg.EmbeddingsModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("no embedding returned")
	}

	// genai SDK returns []float32 for Embedding.Values
	return resp.Embedding.Values, nil
}
