package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the calendar date format used for upload dates and queries.
const DateLayout = "2006-01-02"

// ImageRecord is the metadata kept for one uploaded image.
type ImageRecord struct {
	OriginalName string            `json:"original_name"`
	UploadTime   time.Time         `json:"upload_time"`
	UploadDate   string            `json:"upload_date"` // YYYY-MM-DD, local date of UploadTime
	FileSize     int64             `json:"file_size"`   // in bytes
	ContentType  string            `json:"content_type"`
	Recognition  RecognitionResult `json:"recognition"`
}

// NewImageRecord builds a record, deriving the upload date from uploadTime.
func NewImageRecord(originalName string, uploadTime time.Time, size int64, contentType string, rec RecognitionResult) ImageRecord {
	return ImageRecord{
		OriginalName: originalName,
		UploadTime:   uploadTime,
		UploadDate:   uploadTime.Format(DateLayout),
		FileSize:     size,
		ContentType:  contentType,
		Recognition:  rec,
	}
}

// timestampLayouts are tried in order; layouts without a zone are read as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp reads an ISO-8601 upload time, with or without a UTC offset.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid upload time %q", s)
}

// UnmarshalJSON accepts records written before recognition was stored: a
// missing or null recognition becomes MissingRecognition, a naive upload_time
// is read as local time, and a missing upload_date is derived from it.
func (r *ImageRecord) UnmarshalJSON(data []byte) error {
	type plain ImageRecord
	var raw struct {
		plain
		UploadTime  *string         `json:"upload_time"`
		Recognition json.RawMessage `json:"recognition"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	rec := ImageRecord(raw.plain)
	rec.UploadTime = time.Time{}
	if raw.UploadTime != nil && *raw.UploadTime != "" {
		t, err := ParseTimestamp(*raw.UploadTime)
		if err != nil {
			return err
		}
		rec.UploadTime = t
	}
	if rec.UploadDate == "" && !rec.UploadTime.IsZero() {
		rec.UploadDate = rec.UploadTime.Format(DateLayout)
	}

	rec.Recognition = MissingRecognition()
	if len(raw.Recognition) > 0 {
		if err := json.Unmarshal(raw.Recognition, &rec.Recognition); err != nil {
			return err
		}
	}
	*r = rec
	return nil
}

// Store maps image identifiers to their records.
type Store map[string]ImageRecord

// Upload is what the orchestrator hands back after an image was accepted.
type Upload struct {
	Filename string      `json:"filename"`
	Record   ImageRecord `json:"record"`
}

// FoodSummary describes one recognized food inside a DailyTotal.
type FoodSummary struct {
	Filename         string          `json:"filename"`
	FoodName         string          `json:"food_name"`
	UploadTime       time.Time       `json:"upload_time"`
	EstimatedWeightG float64         `json:"estimated_weight_g"`
	TotalNutrition   NutritionVector `json:"total_nutrition"`
}

// DailyTotal is the nutrition consumed on one calendar date.
type DailyTotal struct {
	Date           string          `json:"date"`
	FoodsCount     int             `json:"foods_count"`
	TotalNutrition NutritionVector `json:"total_nutrition"`
	Foods          []FoodSummary   `json:"foods"`
}
