package database

import (
	"context"
	"fmt"
	"sync"

	"github.com/franckalain/foodmonster/internal/models"
	"go.uber.org/zap"
)

// Backend persists the whole image metadata document.
type Backend interface {
	// Load returns the persisted store. A backend with no state yet returns an
	// empty store and establishes empty persisted state.
	Load(ctx context.Context) (models.Store, error)
	// Save replaces the entire persisted document with store.
	Save(ctx context.Context, store models.Store) error
	Close() error
}

// Open creates the backend named by kind ("json", "sqlite" or "bolt") at path.
func Open(kind, path string) (Backend, error) {
	switch kind {
	case "", "json":
		return NewJSONFileBackend(path)
	case "sqlite":
		return NewSQLiteBackend(path)
	case "bolt":
		return NewBoltBackend(path)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", kind)
	}
}

// Put returns a copy of store with record set under id. store is not modified.
func Put(store models.Store, id string, record models.ImageRecord) models.Store {
	out := make(models.Store, len(store)+1)
	for k, v := range store {
		out[k] = v
	}
	out[id] = record
	return out
}

// Repository is the handle every operation uses to reach the metadata document.
// It serializes load-modify-save sequences so concurrent uploads never lose a write.
type Repository struct {
	backend Backend
	logger  *zap.Logger
	mu      sync.Mutex
}

// NewRepository wraps backend.
func NewRepository(backend Backend, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{backend: backend, logger: logger}
}

// Load returns the current document.
func (r *Repository) Load(ctx context.Context) (models.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, err := r.backend.Load(ctx)
	if err != nil {
		return nil, models.NewError(models.KindStoreIO, "load metadata", err)
	}
	return store, nil
}

// Save overwrites the document with store.
func (r *Repository) Save(ctx context.Context, store models.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.Save(ctx, store); err != nil {
		return models.NewError(models.KindStoreIO, "save metadata", err)
	}
	return nil
}

// Insert adds record under id as one load, put, save sequence.
func (r *Repository) Insert(ctx context.Context, id string, record models.ImageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	store, err := r.backend.Load(ctx)
	if err != nil {
		return models.NewError(models.KindStoreIO, "load metadata", err)
	}
	if err := r.backend.Save(ctx, Put(store, id, record)); err != nil {
		return models.NewError(models.KindStoreIO, "save metadata", err)
	}
	r.logger.Debug("metadata record stored",
		zap.String("id", id),
		zap.Int("records", len(store)+1),
	)
	return nil
}

// Get returns the record stored under id.
func (r *Repository) Get(ctx context.Context, id string) (models.ImageRecord, bool, error) {
	store, err := r.Load(ctx)
	if err != nil {
		return models.ImageRecord{}, false, err
	}
	rec, ok := store[id]
	return rec, ok, nil
}

// Close closes the underlying backend.
func (r *Repository) Close() error {
	return r.backend.Close()
}
