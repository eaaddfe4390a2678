package ml

import (
	"context"
	"fmt"
)

// Model represents a vision-capable model that can describe a food image
type Model interface {
	// Load initializes the model with its configuration
	Load(ctx context.Context) error
	// SupportsVision reports whether Analyze can look at images at all
	SupportsVision() bool
	// Analyze sends one image with the recognition prompt and returns the raw reply
	Analyze(ctx context.Context, imageData []byte, mimeType string) (Reply, error)
}

// ModelFactory creates a new model instance based on configuration
type ModelFactory interface {
	// CreateModel creates a new model instance
	CreateModel() (Model, error)
}

// NewModel creates a new model instance based on the model type. configPath points
// at an optional per-model JSON file; environment variables fill the gaps.
func NewModel(modelType, configPath string) (Model, error) {
	var factory ModelFactory

	switch modelType {
	case "openai":
		config := OpenAIConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load OpenAI config: %w", err)
		}
		factory = NewOpenAIModelFactory(config)
	case "google":
		config := GoogleConfig{
			BaseConfig: BaseConfig{
				ConfigPath: configPath,
			},
		}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load Google config: %w", err)
		}
		factory = NewGoogleModelFactory(config)
	case "disabled":
		factory = DisabledModelFactory{}
	default:
		return nil, fmt.Errorf("unsupported model type: %s", modelType)
	}
	return factory.CreateModel()
}
