package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/finetune"
)

// FineTuneHandler serves fine-tune start and status requests
type FineTuneHandler struct {
	orchestrator *finetune.Orchestrator
	logger       arbor.ILogger
}

// NewFineTuneHandler creates a new fine-tune handler
func NewFineTuneHandler(orchestrator *finetune.Orchestrator, logger arbor.ILogger) *FineTuneHandler {
	return &FineTuneHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type fineTuneRequest struct {
	JobID string `json:"job_id"`
}

// StartHandler handles POST /api/finetune/job with a JSON body naming
// the job. Dataset build and submission happen in the background; the
// response carries the job with its updated fine-tune status.
func (h *FineTuneHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req fineTuneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, models.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.JobID == "" {
		WriteError(w, models.NewValidationError("job_id is required"))
		return
	}

	job, err := h.orchestrator.Start(r.Context(), req.JobID)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_id", req.JobID).Msg("Fine-tune start rejected")
		WriteError(w, err)
		return
	}

	WriteData(w, job)
}

// StatusHandler handles GET /api/finetune/job/{id}. It refreshes the
// job's fine-tune state from the provider before responding, so a
// client poll always sees the freshest status.
func (h *FineTuneHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/finetune/job/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, models.NewValidationError("job id is required"))
		return
	}

	job, err := h.orchestrator.Poll(r.Context(), jobID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteData(w, job)
}
