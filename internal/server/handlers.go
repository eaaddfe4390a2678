package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/franckalain/foodmonster/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type imageSummary struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	UploadTime   time.Time `json:"upload_time"`
	FileSize     int64     `json:"file_size"`
	FoodName     string    `json:"food_name,omitempty"`
	Recognized   bool      `json:"recognized"`
	DownloadURL  string    `json:"download_url"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Food Monster Backend API",
		"version": Version,
		"endpoints": map[string]string{
			"upload":         "POST /api/upload",
			"get_image":      "GET /api/image/{filename}",
			"list_images":    "GET /api/images",
			"get_metadata":   "GET /api/image/{filename}/metadata",
			"daily_total":    "GET /api/nutrition/daily/{date}",
			"weekly_summary": "GET /api/nutrition/weekly",
			"websocket":      "GET /ws",
			"mcp":            "POST /mcp",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	// The upload finishes even if the client goes away mid-recognition.
	ctx := context.WithoutCancel(r.Context())
	up, err := s.uploads.HandleUpload(ctx, data, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		s.respondUploadError(w, err)
		return
	}
	s.hub.Broadcast("image_uploaded", up)

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "success",
		"filename":    up.Filename,
		"upload_time": up.Record.UploadTime,
		"file_size":   up.Record.FileSize,
		"recognition": up.Record.Recognition,
		"message":     "image uploaded",
	})
}

func (s *Server) respondUploadError(w http.ResponseWriter, err error) {
	switch models.KindOf(err) {
	case models.KindInvalidContentType:
		s.respondError(w, http.StatusBadRequest, "only image files are accepted")
	default:
		s.logger.Error("upload failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "upload failed: "+err.Error())
	}
}

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	uploads, err := s.uploads.List(r.Context())
	if err != nil {
		s.logger.Error("list images failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	images := make([]imageSummary, 0, len(uploads))
	for _, up := range uploads {
		images = append(images, summarize(up))
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"count":  len(images),
		"images": images,
	})
}

func summarize(up models.Upload) imageSummary {
	sum := imageSummary{
		Filename:     up.Filename,
		OriginalName: up.Record.OriginalName,
		UploadTime:   up.Record.UploadTime,
		FileSize:     up.Record.FileSize,
		Recognized:   up.Record.Recognition.OK(),
		DownloadURL:  "/api/image/" + up.Filename,
	}
	if sum.Recognized {
		sum.FoodName = up.Record.Recognition.Success.FoodName
	}
	return sum
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	path, rec, ok, err := s.uploads.ImagePath(r.Context(), filename)
	if err != nil {
		s.logger.Error("get image failed", zap.String("filename", filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	contentType := rec.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	http.ServeFile(w, r, path)
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	rec, ok, err := s.uploads.Get(r.Context(), filename)
	if err != nil {
		s.logger.Error("get metadata failed", zap.String("filename", filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "image not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"filename": filename,
		"metadata": rec,
	})
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	total, err := s.reporter.Daily(r.Context(), chi.URLParam(r, "date"))
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, total)
}

func (s *Server) handleWeekly(w http.ResponseWriter, r *http.Request) {
	days, err := s.reporter.Weekly(r.Context())
	if err != nil {
		s.respondQueryError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"days":   days,
	})
}

func (s *Server) respondQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrStoreIO) {
		s.logger.Error("nutrition query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondError(w, http.StatusBadRequest, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(data); err != nil {
			s.logger.Error("failed to encode response", zap.Error(err))
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"detail": message})
}
