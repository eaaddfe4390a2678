package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"go.uber.org/zap"
)

// DailyTotalParams are the arguments of the daily_total tool.
type DailyTotalParams struct {
	Date string `json:"date,omitempty" description:"Date to total (YYYY-MM-DD), defaults to today"`
}

// ListImagesParams are the arguments of the list_images tool.
type ListImagesParams struct {
	Limit int `json:"limit,omitempty" description:"Maximum number of images to return, newest first"`
}

func (s *Server) registerTools() map[string]toolHandler {
	return map[string]toolHandler{
		"daily_total":    s.toolDailyTotal,
		"weekly_summary": s.toolWeeklySummary,
		"list_images":    s.toolListImages,
	}
}

// extractParams converts the request arguments into target
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	return nil
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("unknown tool: %s", request.Name))
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		s.logger.Info("tool call failed", zap.String("tool", request.Name), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) toolDailyTotal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params DailyTotalParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	total, err := s.reporter.Daily(ctx, params.Date)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(total)
}

func (s *Server) toolWeeklySummary(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	days, err := s.reporter.Weekly(ctx)
	if err != nil {
		return nil, err
	}
	return createJSONResponse(days)
}

func (s *Server) toolListImages(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListImagesParams
	if err := extractParams(req, &params); err != nil {
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	uploads, err := s.uploads.List(ctx)
	if err != nil {
		return nil, err
	}

	images := make([]imageSummary, 0, len(uploads))
	for i := len(uploads) - 1; i >= 0; i-- {
		if params.Limit > 0 && len(images) == params.Limit {
			break
		}
		images = append(images, summarize(uploads[i]))
	}
	return createJSONResponse(images)
}

func createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
