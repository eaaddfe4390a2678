// Package upload accepts image bytes, recognizes the food and records the result.
package upload

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/franckalain/foodmonster/internal/models"
	"go.uber.org/zap"
)

// Recognizer identifies the food in a stored image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) models.RecognitionResult
}

// Repository is the metadata document the service writes to.
type Repository interface {
	Load(ctx context.Context) (models.Store, error)
	Insert(ctx context.Context, id string, record models.ImageRecord) error
	Get(ctx context.Context, id string) (models.ImageRecord, bool, error)
}

// Service orchestrates uploads. Uploads run concurrently; only the metadata
// update is serialized, inside the repository.
type Service struct {
	images     ImageStore
	recognizer Recognizer
	repo       Repository
	ids        IDGenerator
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the default timestamp naming.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Service) { s.ids = ids }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService wires the upload pipeline.
func NewService(images ImageStore, recognizer Recognizer, repo Repository, opts ...Option) *Service {
	s := &Service{
		images:     images,
		recognizer: recognizer,
		repo:       repo,
		ids:        TimestampIDs{},
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleUpload stores the image, recognizes it and records the outcome.
// A failed recognition still produces a stored record; only an invalid content
// type or a storage error fails the upload.
func (s *Service) HandleUpload(ctx context.Context, data []byte, originalName, contentType string) (*models.Upload, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, models.NewError(models.KindInvalidContentType, "upload",
			fmt.Errorf("content type %q is not an image", contentType))
	}

	id := s.ids.NewID(s.now(), originalName)
	path, err := s.images.Save(id, data)
	if err != nil {
		s.logger.Error("failed to store image", zap.String("id", id), zap.Error(err))
		return nil, models.NewError(models.KindStoreIO, "store image", err)
	}

	result := s.recognizer.Recognize(ctx, path)

	// The record is built only once the image file is complete.
	record := models.NewImageRecord(originalName, s.now(), int64(len(data)), contentType, result)
	if err := s.repo.Insert(ctx, id, record); err != nil {
		s.logger.Error("failed to record upload", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("image uploaded",
		zap.String("id", id),
		zap.String("original_name", originalName),
		zap.Int("size", len(data)),
		zap.Bool("recognized", result.OK()),
	)
	return &models.Upload{Filename: id, Record: record}, nil
}

// Get returns the record for an uploaded image.
func (s *Service) Get(ctx context.Context, id string) (models.ImageRecord, bool, error) {
	return s.repo.Get(ctx, id)
}

// List returns every upload, oldest first.
func (s *Service) List(ctx context.Context) ([]models.Upload, error) {
	store, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Upload, 0, len(store))
	for id, rec := range store {
		out = append(out, models.Upload{Filename: id, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Record.UploadTime, out[j].Record.UploadTime
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].Filename < out[j].Filename
	})
	return out, nil
}

// ImagePath resolves a stored image, but only for identifiers present in the store.
func (s *Service) ImagePath(ctx context.Context, id string) (string, models.ImageRecord, bool, error) {
	rec, ok, err := s.repo.Get(ctx, id)
	if err != nil || !ok {
		return "", models.ImageRecord{}, false, err
	}
	path, err := s.images.Path(id)
	if err != nil {
		return "", models.ImageRecord{}, false, nil
	}
	return path, rec, true, nil
}
