package ai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"tax-document-platform/internal/config"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// VisionOCR runs optical character recognition over image bytes using a
// Gemini vision model. Calls are rate limited process-wide.
type VisionOCR struct {
	cfg     *config.Config
	limiter *rate.Limiter
}

func NewVisionOCR(cfg *config.Config) *VisionOCR {
	perMin := cfg.OCRRequestsPerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &VisionOCR{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin),
	}
}

// Recognize returns the text visible in the image. languageHints lists
// expected languages (e.g. "de", "en") and is advisory only.
func (o *VisionOCR) Recognize(ctx context.Context, data []byte, languageHints []string) (string, error) {
	if o.cfg.GeminiAPIKey == "" {
		return "", fmt.Errorf("missing GEMINI_API_KEY for OCR")
	}
	if err := o.limiter.Wait(ctx); err != nil {
		return "", err
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(o.cfg.GeminiAPIKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(o.cfg.OCRModel)
	model.SetTemperature(0.1)

	prompt := "Extract all visible text from this image exactly as it appears. " +
		"Do not summarize or interpret. Return only the recognized text."
	if len(languageHints) > 0 {
		prompt += " Expected languages: " + strings.Join(languageHints, ", ") + "."
	}

	resp, err := model.GenerateContent(ctx,
		genai.ImageData(imageFormat(data), data),
		genai.Text(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("ocr generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no text recognized")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}

// imageFormat maps sniffed content types to the format tag genai expects.
func imageFormat(data []byte) string {
	switch http.DetectContentType(data) {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpeg"
	}
}
