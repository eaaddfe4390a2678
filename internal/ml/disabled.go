package ml

import (
	"context"
	"errors"
)

// ErrVisionDisabled is returned by DisabledModel.Analyze.
var ErrVisionDisabled = errors.New("vision recognition is disabled")

// DisabledModel stands in when no vision-capable model is configured
type DisabledModel struct{}

// DisabledModelFactory implements ModelFactory for DisabledModel
type DisabledModelFactory struct{}

// CreateModel creates a new disabled model instance
func (DisabledModelFactory) CreateModel() (Model, error) {
	return DisabledModel{}, nil
}

// Load has nothing to initialize
func (DisabledModel) Load(ctx context.Context) error {
	return nil
}

func (DisabledModel) SupportsVision() bool {
	return false
}

func (DisabledModel) Analyze(ctx context.Context, imageData []byte, mimeType string) (Reply, error) {
	return Reply{}, ErrVisionDisabled
}
