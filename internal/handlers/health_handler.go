package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/common"
	"github.com/ternarybob/echodoc/internal/interfaces"
)

// HealthHandler serves liveness and version endpoints
type HealthHandler struct {
	llm    interfaces.LLMService
	logger arbor.ILogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(llm interfaces.LLMService, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{
		llm:    llm,
		logger: logger,
	}
}

// HealthHandler handles GET /api/health
func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	status := "healthy"
	providerOK := true
	if err := h.llm.HealthCheck(r.Context()); err != nil {
		h.logger.Warn().Err(err).Msg("Provider health check failed")
		status = "degraded"
		providerOK = false
	}

	WriteData(w, map[string]interface{}{
		"status":   status,
		"provider": providerOK,
		"version":  common.GetVersion(),
	})
}

// VersionHandler handles GET /api/version
func (h *HealthHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteData(w, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetFullVersion(),
	})
}
