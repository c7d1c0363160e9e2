package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/echodoc/internal/interfaces"
	"github.com/ternarybob/echodoc/internal/models"
	"github.com/ternarybob/echodoc/internal/services/ingest"
)

// maxUploadBytes caps one upload batch at 64 MB
const maxUploadBytes = 64 << 20

// JobHandler serves job creation, retrieval, and activity logs
type JobHandler struct {
	pipeline *ingest.Pipeline
	storage  interfaces.StorageManager
	logger   arbor.ILogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(pipeline *ingest.Pipeline, storage interfaces.StorageManager, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		pipeline: pipeline,
		storage:  storage,
		logger:   logger,
	}
}

// UploadHandler handles POST /api/upload. Accepts a multipart form with
// a job_name field and one or more files; responds with the created job
// while ingestion continues in the background.
func (h *JobHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteError(w, models.NewValidationError("invalid multipart form: %v", err))
		return
	}

	jobName := r.FormValue("job_name")

	var files []ingest.UploadedFile
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			file, err := header.Open()
			if err != nil {
				WriteError(w, models.NewValidationError("failed to open file %q: %v", header.Filename, err))
				return
			}
			content, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				WriteError(w, models.NewValidationError("failed to read file %q: %v", header.Filename, err))
				return
			}
			files = append(files, ingest.UploadedFile{Name: header.Filename, Content: content})
		}
	}

	job, err := h.pipeline.CreateJob(r.Context(), jobName, files)
	if err != nil {
		h.logger.Warn().Err(err).Str("job_name", jobName).Msg("Upload rejected")
		WriteError(w, err)
		return
	}

	h.logger.Info().Str("job_id", job.ID).Str("job_name", jobName).Int("files", len(files)).Msg("Upload accepted")
	WriteData(w, job)
}

// ListJobsHandler handles GET /api/jobs
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobs, err := h.storage.Jobs().ListJobs(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteData(w, jobs)
}

// GetJobHandler handles GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, models.NewValidationError("job id is required"))
		return
	}

	job, err := h.storage.Jobs().GetJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteData(w, job)
}

// GetLogsHandler handles GET /api/logs/{id}, returning the job's
// activity trail ordered oldest first
func (h *JobHandler) GetLogsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/api/logs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, models.NewValidationError("job id is required"))
		return
	}

	// 404 for unknown jobs rather than an empty trail
	if _, err := h.storage.Jobs().GetJob(r.Context(), jobID); err != nil {
		WriteError(w, err)
		return
	}

	logs, err := h.storage.JobLogs().GetLogs(r.Context(), jobID)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteData(w, map[string]interface{}{
		"job_id": jobID,
		"logs":   logs,
	})
}
