package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/config"
	"github.com/go-resty/resty/v2"
)

// OCRService extracts on-screen text through an external OCR HTTP service
// (a Tesseract-compatible endpoint). When no endpoint is configured every
// call reports ErrExtractionFailed and the ingestion worker degrades the
// record to an empty OCR text.
type OCRService struct {
	client   *resty.Client
	endpoint string
	language string
	enabled  bool
}

// NewOCRService creates a new OCR service client.
func NewOCRService(cfg *config.OCRConfig) *OCRService {
	if cfg == nil || cfg.Endpoint == "" {
		return &OCRService{enabled: false}
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(30 * time.Second)

	language := cfg.Language
	if language == "" {
		language = "eng"
	}

	return &OCRService{
		client:   client,
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		language: language,
		enabled:  true,
	}
}

type ocrRequest struct {
	Image    string `json:"image"` // base64-encoded image bytes
	Format   string `json:"format"`
	Language string `json:"language"`
}

type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// ExtractText runs OCR on the image and returns the recognized text with
// whitespace collapsed. Returns ErrExtractionFailed (wrapped) on any failure.
func (s *OCRService) ExtractText(ctx context.Context, imageData []byte, format string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("%w: no OCR endpoint configured", ErrExtractionFailed)
	}

	req := ocrRequest{
		Image:    base64.StdEncoding.EncodeToString(imageData),
		Format:   format,
		Language: s.language,
	}

	var resp ocrResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != "" {
			return "", fmt.Errorf("%w: HTTP %d: %s", ErrExtractionFailed, httpResp.StatusCode(), resp.Error)
		}
		return "", fmt.Errorf("%w: HTTP %d", ErrExtractionFailed, httpResp.StatusCode())
	}

	if resp.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrExtractionFailed, resp.Error)
	}

	// Collapse runs of whitespace the recognizer tends to emit
	return strings.Join(strings.Fields(resp.Text), " "), nil
}
