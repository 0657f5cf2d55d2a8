package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gargarushee/VisualMemorySearch/internal/config"
	"github.com/gargarushee/VisualMemorySearch/internal/prompts"
	"github.com/go-resty/resty/v2"
)

// VLMService generates visual descriptions using an OpenAI-compatible
// vision model endpoint. Without an API key the service is disabled and
// every call reports ErrDescriptionUnavailable.
type VLMService struct {
	client   *resty.Client
	model    string
	endpoint string
	enabled  bool
}

// NewVLMService creates a new VLM service client.
func NewVLMService(cfg *config.VLMConfig) *VLMService {
	if cfg == nil || cfg.APIKey == "" {
		return &VLMService{enabled: false}
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(60 * time.Second)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &VLMService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/chat/completions",
		enabled:  true,
	}
}

// GetModel returns the model name being used.
func (s *VLMService) GetModel() string {
	return s.model
}

// OpenAI-compatible Chat Completion API request/response structures
type openAIRequest struct {
	Model     string          `json:"model"`
	Messages  []openAIMessage `json:"messages"`
	MaxTokens int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string for system, []interface{} for user with images
}

type openAITextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIImageContent struct {
	Type     string         `json:"type"`
	ImageURL openAIImageURL `json:"image_url"`
}

type openAIImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// DescribeImage generates a search-oriented description for a screenshot.
// Returns ErrDescriptionUnavailable (wrapped) on any failure, including a
// missing API key.
func (s *VLMService) DescribeImage(ctx context.Context, imageData []byte, format string) (string, error) {
	if !s.enabled {
		return "", fmt.Errorf("%w: no API key configured", ErrDescriptionUnavailable)
	}

	mimeType := mimeTypeForFormat(format)
	base64Image := base64.StdEncoding.EncodeToString(imageData)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64Image)

	req := openAIRequest{
		Model: s.model,
		Messages: []openAIMessage{
			{
				Role:    "system",
				Content: prompts.VLMSystemPrompt,
			},
			{
				Role: "user",
				Content: []interface{}{
					openAITextContent{
						Type: "text",
						Text: prompts.VLMUserPrompt,
					},
					openAIImageContent{
						Type: "image_url",
						ImageURL: openAIImageURL{
							URL:    dataURL,
							Detail: "auto", // auto gives better text recognition
						},
					},
				},
			},
		},
		MaxTokens: 300,
	}

	var resp openAIResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		Post(s.endpoint)

	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDescriptionUnavailable, err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("%w: HTTP %d: %s", ErrDescriptionUnavailable, httpResp.StatusCode(), resp.Error.Message)
		}
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrDescriptionUnavailable, httpResp.StatusCode(), string(httpResp.Body()))
	}

	if resp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrDescriptionUnavailable, resp.Error.Message)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response (status %d)", ErrDescriptionUnavailable, httpResp.StatusCode())
	}

	return resp.Choices[0].Message.Content, nil
}

func mimeTypeForFormat(format string) string {
	switch format {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
