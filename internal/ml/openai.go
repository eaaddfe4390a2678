package ml

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat completions endpoint
type OpenAIConfig struct {
	BaseConfig
	APIKey      string  `json:"api_key"`
	BaseURL     string  `json:"base_url"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Load loads the OpenAI configuration
func (c *OpenAIConfig) Load() error {
	if err := c.LoadConfig(c.ConfigPath, "openai", c); err != nil {
		return err
	}

	// Fall back to environment variables if not set
	c.APIKey = envOr(c.APIKey, "OPENAI_API_KEY", "")
	c.BaseURL = envOr(c.BaseURL, "OPENAI_BASE_URL", "https://api.openai.com/v1")
	c.Model = envOr(c.Model, "OPENAI_MODEL", "gpt-5.1")
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	return nil
}

// OpenAIModel implements the Model interface over HTTP
type OpenAIModel struct {
	config     OpenAIConfig
	httpClient *http.Client
}

// OpenAIModelFactory implements ModelFactory for OpenAI-compatible models
type OpenAIModelFactory struct {
	config OpenAIConfig
}

// NewOpenAIModelFactory creates a new OpenAI model factory
func NewOpenAIModelFactory(config OpenAIConfig) *OpenAIModelFactory {
	return &OpenAIModelFactory{config: config}
}

// CreateModel creates a new OpenAI model instance
func (f *OpenAIModelFactory) CreateModel() (Model, error) {
	return NewOpenAIModel(f.config, nil), nil
}

// NewOpenAIModel builds a model; a nil client gets a default with a 60s timeout.
func NewOpenAIModel(config OpenAIConfig, client *http.Client) *OpenAIModel {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &OpenAIModel{config: config, httpClient: client}
}

// Load checks that the endpoint can be addressed
func (m *OpenAIModel) Load(ctx context.Context) error {
	if m.config.BaseURL == "" {
		return fmt.Errorf("openai base url is not set")
	}
	if m.config.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	return nil
}

func (m *OpenAIModel) SupportsVision() bool {
	return true
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// Analyze posts the image as a data URL together with the recognition prompt
func (m *OpenAIModel) Analyze(ctx context.Context, imageData []byte, mimeType string) (Reply, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))

	payload := chatRequest{
		Model: m.config.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: RecognitionPrompt},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
			},
		}},
		Temperature: m.config.Temperature,
		MaxTokens:   m.config.MaxTokens,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(m.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return Reply{}, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.config.APIKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Reply{}, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, Truncate(string(body), MaxRawDiagnostic))
	}

	return DecodeReply(body), nil
}
