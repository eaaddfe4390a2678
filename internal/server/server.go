// Package server exposes uploads and nutrition queries over HTTP, websocket and MCP.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/franckalain/foodmonster/internal/nutrition"
	"github.com/franckalain/foodmonster/internal/upload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Version is reported by the API index.
const Version = "1.0.0"

// Options tunes the HTTP surface.
type Options struct {
	Addr           string
	StaticDir      string
	MaxUploadBytes int64
}

// Server is the HTTP server for the food recognition API.
type Server struct {
	uploads  *upload.Service
	reporter *nutrition.Reporter
	hub      *Hub
	tools    map[string]toolHandler
	opts     Options
	logger   *zap.Logger
	server   *http.Server
}

// New creates a server with the given dependencies.
func New(uploads *upload.Service, reporter *nutrition.Reporter, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 20 << 20
	}
	s := &Server{
		uploads:  uploads,
		reporter: reporter,
		hub:      NewHub(logger),
		opts:     opts,
		logger:   logger,
	}
	s.tools = s.registerTools()
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)
	r.Post("/mcp", s.handleMCP)

	r.Route("/api", func(r chi.Router) {
		r.Post("/upload", s.handleUpload)
		r.Get("/images", s.handleListImages)
		r.Get("/image/{filename}", s.handleGetImage)
		r.Get("/image/{filename}/metadata", s.handleGetMetadata)
		r.Get("/nutrition/daily", s.handleDaily)
		r.Get("/nutrition/daily/{date}", s.handleDaily)
		r.Get("/nutrition/weekly", s.handleWeekly)
	})

	if s.opts.StaticDir != "" {
		if info, err := os.Stat(s.opts.StaticDir); err == nil && info.IsDir() {
			fs := http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir)))
			r.Get("/static/*", fs.ServeHTTP)
		}
	}
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", s.opts.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop disconnects websocket clients and gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)
