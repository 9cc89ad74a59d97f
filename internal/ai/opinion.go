package ai

import (
	"context"
	"fmt"
	"strings"

	"tax-document-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const opinionMaxInputChars = 8000

// GeminiAnalyst produces the free-text expert assessment for a
// document. The analysis service falls back to a deterministic mock
// opinion when this fails or no key is configured.
type GeminiAnalyst struct {
	cfg *config.Config
}

func NewGeminiAnalyst(cfg *config.Config) *GeminiAnalyst {
	return &GeminiAnalyst{cfg: cfg}
}

func (a *GeminiAnalyst) GenerateOpinion(ctx context.Context, documentType, text string) (string, error) {
	if a.cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("missing GEMINI_API_KEY for analysis")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.cfg.GeminiAPIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	if len(text) > opinionMaxInputChars {
		text = text[:opinionMaxInputChars]
	}

	model := client.GenerativeModel(a.cfg.AnalysisModel)
	model.SetTemperature(0.2)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text("Du bist ein Steuerexperte. Bewerte das folgende Dokument kurz und sachlich auf Deutsch: steuerliche Relevanz, empfohlene Ablage, Hinweise.")},
	}

	resp, err := model.GenerateContent(ctx,
		genai.Text(fmt.Sprintf("Dokumenttyp: %s\n\nInhalt:\n%s", documentType, text)),
	)
	if err != nil {
		return "", fmt.Errorf("opinion generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no opinion returned")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	opinion := strings.TrimSpace(sb.String())
	if opinion == "" {
		return "", fmt.Errorf("empty opinion returned")
	}
	return opinion, nil
}
