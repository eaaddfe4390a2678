package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/franckalain/foodmonster/internal/models"
)

// metadataFileMode is the mode of the document after every save.
const metadataFileMode = 0644

// JSONFileBackend keeps the document as one indented JSON object on disk.
type JSONFileBackend struct {
	path string
}

// NewJSONFileBackend prepares a backend at path, creating its directory.
func NewJSONFileBackend(path string) (*JSONFileBackend, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("error creating metadata directory: %w", err)
		}
	}
	return &JSONFileBackend{path: path}, nil
}

// Path returns the document location.
func (b *JSONFileBackend) Path() string {
	return b.path
}

// Load reads the document, writing an empty one first if none exists.
func (b *JSONFileBackend) Load(ctx context.Context) (models.Store, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		store := models.Store{}
		if err := b.Save(ctx, store); err != nil {
			return nil, err
		}
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading metadata file: %w", err)
	}

	store := models.Store{}
	if len(bytes.TrimSpace(data)) == 0 {
		return store, nil
	}
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("error parsing metadata file: %w", err)
	}
	return store, nil
}

// Save writes the whole document to a temp file and renames it into place.
func (b *JSONFileBackend) Save(ctx context.Context, store models.Store) error {
	if store == nil {
		store = models.Store{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(store); err != nil {
		return fmt.Errorf("error encoding metadata: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error creating temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(metadataFileMode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error setting metadata file mode: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("error writing metadata: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error closing metadata file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("error replacing metadata file: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (b *JSONFileBackend) Close() error {
	return nil
}
