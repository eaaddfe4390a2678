package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator names a newly uploaded image.
type IDGenerator interface {
	NewID(now time.Time, originalName string) string
}

// TimestampIDs names images YYYYMMDD_HHMMSS_ffffff plus the original extension.
// Two uploads in the same microsecond with the same extension collide; the
// exclusive image write turns that into an error instead of an overwrite.
type TimestampIDs struct{}

func (TimestampIDs) NewID(now time.Time, originalName string) string {
	return timestamp(now) + extension(originalName)
}

// TimestampUUIDIDs appends a random token to the timestamp so names never collide.
type TimestampUUIDIDs struct{}

func (TimestampUUIDIDs) NewID(now time.Time, originalName string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return timestamp(now) + "_" + token + extension(originalName)
}

// NewIDGenerator returns the generator for strategy ("timestamp" or "timestamp_uuid").
func NewIDGenerator(strategy string) (IDGenerator, error) {
	switch strategy {
	case "", "timestamp":
		return TimestampIDs{}, nil
	case "timestamp_uuid":
		return TimestampUUIDIDs{}, nil
	default:
		return nil, fmt.Errorf("unsupported id strategy: %s", strategy)
	}
}

func timestamp(t time.Time) string {
	return t.Format("20060102_150405") + fmt.Sprintf("_%06d", t.Nanosecond()/1000)
}

// extension keeps the original suffix, dropping anything that could escape the upload dir.
func extension(originalName string) string {
	ext := filepath.Ext(filepath.Base(strings.ReplaceAll(originalName, "\\", "/")))
	if strings.ContainsAny(ext, "/\\\x00") || len(ext) > 16 {
		return ""
	}
	return ext
}
