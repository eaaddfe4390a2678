package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for filenames that resolve outside the image directory.
var ErrInvalidPath = errors.New("invalid image path")

// ImageStore keeps uploaded image bytes.
type ImageStore interface {
	// Save writes data under id and fails if id already exists.
	Save(id string, data []byte) (path string, err error)
	// Path resolves id to a file inside the store.
	Path(id string) (string, error)
}

// DiskImages stores images as files in one directory.
type DiskImages struct {
	dir string
}

// NewDiskImages creates dir if needed.
func NewDiskImages(dir string) (*DiskImages, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskImages{dir: abs}, nil
}

// Dir returns the absolute image directory.
func (d *DiskImages) Dir() string {
	return d.dir
}

// Path resolves id, rejecting names that escape the directory.
func (d *DiskImages) Path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.ContainsRune(id, '\\') {
		return "", ErrInvalidPath
	}
	p := filepath.Join(d.dir, id)
	rel, err := filepath.Rel(d.dir, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", ErrInvalidPath
	}
	return p, nil
}

// Save writes data with exclusive create. A partially written file is removed.
func (d *DiskImages) Save(id string, data []byte) (string, error) {
	p, err := d.Path(id)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(p)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(p)
		return "", fmt.Errorf("failed to close image file: %w", err)
	}
	return p, nil
}
