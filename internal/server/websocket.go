package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one websocket connection. gorilla connections allow a single
// concurrent writer, so every write goes through mu.
type client struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(msg interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Hub tracks connected websocket clients, keyed by a random id.
type Hub struct {
	clients sync.Map
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{logger: logger}
}

func (h *Hub) add(conn *websocket.Conn) *client {
	c := &client{id: uuid.New().String(), conn: conn}
	h.clients.Store(c.id, c)
	return c
}

func (h *Hub) remove(c *client) {
	h.clients.Delete(c.id)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	n := 0
	h.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Broadcast sends a typed message to every client.
func (h *Hub) Broadcast(messageType string, data any) {
	msg := map[string]any{"type": messageType, "data": data}
	h.clients.Range(func(key, value any) bool {
		c := value.(*client)
		if err := c.send(msg); err != nil {
			h.logger.Debug("broadcast failed", zap.String("client", c.id), zap.Error(err))
		}
		return true
	})
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.clients.Range(func(key, value any) bool {
		value.(*client).conn.Close()
		h.clients.Delete(key)
		return true
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := s.hub.add(conn)
	defer s.hub.remove(c)
	s.logger.Debug("websocket client connected", zap.String("client", c.id))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("error reading message", zap.String("client", c.id), zap.Error(err))
			}
			return
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &msg); err != nil || msg.Type == "" {
			s.sendError(c, "Invalid message format")
			continue
		}
		s.handleWebSocketMessage(r.Context(), c, msg.Type, msg.Data)
	}
}

type wsUploadData struct {
	Image       string `json:"image"` // base64
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type wsDateData struct {
	Date string `json:"date"`
}

func (s *Server) handleWebSocketMessage(ctx context.Context, c *client, messageType string, data json.RawMessage) {
	switch messageType {
	case "upload":
		// Recognition is slow; queries on the same connection keep flowing.
		go s.handleWSUpload(ctx, c, data)
	case "get_daily":
		var req wsDateData
		if len(data) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				s.sendError(c, "Invalid date")
				return
			}
		}
		total, err := s.reporter.Daily(ctx, req.Date)
		if err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.sendMessage(c, "daily_total", total)
	case "get_weekly":
		days, err := s.reporter.Weekly(ctx)
		if err != nil {
			s.sendError(c, err.Error())
			return
		}
		s.sendMessage(c, "weekly_summary", days)
	default:
		s.sendError(c, "Unknown message type")
	}
}

func (s *Server) handleWSUpload(ctx context.Context, c *client, data json.RawMessage) {
	var req wsUploadData
	if err := json.Unmarshal(data, &req); err != nil || req.Image == "" {
		s.sendError(c, "Invalid image data")
		return
	}
	imageData, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		s.sendError(c, "Invalid image format")
		return
	}
	if req.ContentType == "" {
		req.ContentType = http.DetectContentType(imageData)
	}

	up, err := s.uploads.HandleUpload(context.WithoutCancel(ctx), imageData, req.Filename, req.ContentType)
	if err != nil {
		s.logger.Info("websocket upload rejected", zap.String("client", c.id), zap.Error(err))
		s.sendError(c, err.Error())
		return
	}
	s.sendMessage(c, "upload_result", up)
	s.hub.Broadcast("image_uploaded", up)
}

func (s *Server) sendMessage(c *client, messageType string, data any) {
	if err := c.send(map[string]any{"type": messageType, "data": data}); err != nil {
		s.logger.Debug("error sending message", zap.String("client", c.id), zap.Error(err))
	}
}

func (s *Server) sendError(c *client, message string) {
	if err := c.send(map[string]any{"type": "error", "message": message}); err != nil {
		s.logger.Debug("error sending error message", zap.String("client", c.id), zap.Error(err))
	}
}
