package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// remoteExtractResponse is the wire format of the extraction service.
type remoteExtractResponse struct {
	Success       bool   `json:"success"`
	Filename      string `json:"filename"`
	Pages         int    `json:"pages"`
	TextLength    int    `json:"text_length"`
	ExtractedText string `json:"extracted_text"`
	Error         string `json:"error,omitempty"`
	Suggestion    string `json:"suggestion,omitempty"`
}

// RemoteExtractor calls the standalone PDF extraction service over HTTP.
// Calls run behind a circuit breaker so a dead service stops costing the
// full timeout on every upload.
type RemoteExtractor struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewRemoteExtractor(baseURL string, timeout time.Duration) *RemoteExtractor {
	return &RemoteExtractor{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "pdf-extraction-service",
			Timeout: 30 * time.Second,
		}),
	}
}

// Extract posts the PDF bytes and returns the extracted text.
func (c *RemoteExtractor) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doExtract(ctx, data, filename)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *RemoteExtractor) doExtract(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file data: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/extract", &buf)
	if err != nil {
		return "", fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("extraction service returned status %d: %s", resp.StatusCode, string(body))
	}

	var extractResp remoteExtractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extractResp); err != nil {
		return "", fmt.Errorf("failed to decode extraction response: %w", err)
	}
	if !extractResp.Success {
		return "", fmt.Errorf("extraction service failed: %s", extractResp.Error)
	}

	return extractResp.ExtractedText, nil
}

// IsHealthy checks the extraction service health endpoint.
func (c *RemoteExtractor) IsHealthy(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}
