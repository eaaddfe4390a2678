// Package recognition turns model replies about a food photo into normalized
// nutrition records.
package recognition

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/franckalain/foodmonster/internal/ml"
	"github.com/franckalain/foodmonster/internal/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

// Recognizer asks a model about an image file and normalizes the answer.
// It is safe for concurrent use; calls for different images do not wait on each other.
type Recognizer struct {
	model   ml.Model
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *Recognizer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Recognizer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New creates a Recognizer over model.
func New(model ml.Model, opts ...Option) *Recognizer {
	r := &Recognizer{
		model:   model,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Recognize identifies the food in the image at imagePath. It never returns an
// error: every problem becomes a Failure result, and there are no retries.
func (r *Recognizer) Recognize(ctx context.Context, imagePath string) models.RecognitionResult {
	if !r.model.SupportsVision() {
		r.logger.Debug("vision disabled, skipping recognition", zap.String("path", imagePath))
		return VisionDisabledResult()
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return models.Failed(models.KindRecognitionTransport, fmt.Sprintf("failed to read image: %v", err), "")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.model.Analyze(ctx, imageData, DetectMIMEType(imagePath, imageData))
	if err != nil {
		r.logger.Warn("recognition call failed",
			zap.String("path", imagePath),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return models.Failed(models.KindRecognitionTransport, err.Error(), "")
	}

	result := NormalizeReply(reply)
	if result.OK() {
		r.logger.Debug("food recognized",
			zap.String("path", imagePath),
			zap.String("food", result.Success.FoodName),
			zap.Float64("calories", result.Success.TotalNutrition.Calories),
			zap.Duration("elapsed", time.Since(start)),
		)
	} else {
		r.logger.Info("recognition failed",
			zap.String("path", imagePath),
			zap.String("kind", string(result.Failure.Kind)),
			zap.String("error", result.Failure.Error),
			zap.Stringer("shape", reply.Shape),
		)
	}
	return result
}

// DetectMIMEType guesses the image type from the file extension, then from content.
func DetectMIMEType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(t, "image/") {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	if t := http.DetectContentType(data); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
