package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/evaluation"
)

// EvaluateHandler serves evaluation runs against a job
type EvaluateHandler struct {
	engine      *evaluation.Engine
	defaultMode models.ChatMode
	logger      arbor.ILogger
}

// NewEvaluateHandler creates a new evaluation handler
func NewEvaluateHandler(engine *evaluation.Engine, defaultMode models.ChatMode, logger arbor.ILogger) *EvaluateHandler {
	return &EvaluateHandler{
		engine:      engine,
		defaultMode: defaultMode,
		logger:      logger,
	}
}

type evaluateRequest struct {
	Mode string `json:"mode"`
}

// EvaluateByJobHandler handles POST /api/evaluate/job/{id}. The body is
// optional; when it carries no mode the configured default applies.
func (h *EvaluateHandler) EvaluateByJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/evaluate/job/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, models.NewValidationError("job id is required"))
		return
	}

	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		WriteError(w, models.NewValidationError("invalid request body: %v", err))
		return
	}

	mode := h.defaultMode
	if req.Mode != "" {
		parsed, err := models.ParseChatMode(req.Mode)
		if err != nil {
			WriteError(w, err)
			return
		}
		mode = parsed
	}

	h.logger.Info().Str("job_id", jobID).Str("mode", string(mode)).Msg("Evaluation started")

	result, err := h.engine.Evaluate(r.Context(), jobID, mode)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Evaluation failed")
		WriteError(w, err)
		return
	}

	WriteData(w, result)
}
