package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
)

// ChatHandler serves chat requests against a job's context
type ChatHandler struct {
	chat   interfaces.ChatService
	logger arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat interfaces.ChatService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		chat:   chat,
		logger: logger,
	}
}

type chatRequest struct {
	Message string `json:"message"`
	Mode    string `json:"mode"`
}

// ChatByJobHandler handles POST /api/chat/job/{id} with a JSON body
// carrying the message and optional mode (defaults to rag)
func (h *ChatHandler) ChatByJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/chat/job/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, models.NewValidationError("job id is required"))
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, models.NewValidationError("invalid request body: %v", err))
		return
	}

	mode, err := models.ParseChatMode(req.Mode)
	if err != nil {
		WriteError(w, err)
		return
	}

	resp, err := h.chat.Chat(r.Context(), jobID, req.Message, mode)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Str("mode", string(mode)).Msg("Chat request failed")
		WriteError(w, err)
		return
	}

	WriteData(w, resp)
}
