package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/meeraclinic/clinic-ai-platform/internal/conversation"
	"github.com/meeraclinic/clinic-ai-platform/pkg/logging"
)

// TurnResolver resolves one text-mode conversation turn.
type TurnResolver interface {
	ResolveTurn(ctx context.Context, message, responseID string) (*conversation.TurnResult, error)
}

// ChatHandler serves the text-mode conversation endpoint.
type ChatHandler struct {
	resolver TurnResolver
	logger   *logging.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(resolver TurnResolver, logger *logging.Logger) *ChatHandler {
	if resolver == nil {
		panic("handlers: resolver cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{resolver: resolver, logger: logger}
}

type chatRequest struct {
	Message    string `json:"message"`
	ResponseID string `json:"responseId"`
}

type chatResponse struct {
	Content    string `json:"content"`
	ResponseID string `json:"responseId,omitempty"`
}

// Chat handles POST /api/chat.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Message is required"})
		return
	}

	result, err := h.resolver.ResolveTurn(r.Context(), req.Message, req.ResponseID)
	if err != nil {
		if conversation.IsUnknownConversation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Unknown or expired responseId"})
			return
		}
		h.logger.Error("chat turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, chatResponse{
			Content: "⚠️ Sorry, something went wrong. Please try again.",
		})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Content:    result.Content,
		ResponseID: result.ResponseID,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
