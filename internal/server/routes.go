package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Upload and job management
	mux.HandleFunc("/api/upload", s.app.JobHandler.UploadHandler)   // POST - multipart job_name + files
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)   // GET - list all jobs
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler)    // GET /{id}
	mux.HandleFunc("/api/logs/", s.app.JobHandler.GetLogsHandler)   // GET /{id} - job activity trail

	// Chat
	mux.HandleFunc("/api/chat/job/", s.app.ChatHandler.ChatByJobHandler) // POST /{id}

	// Fine-tuning
	mux.HandleFunc("/api/finetune/job", s.app.FineTuneHandler.StartHandler)    // POST - start run
	mux.HandleFunc("/api/finetune/job/", s.app.FineTuneHandler.StatusHandler)  // GET /{id} - poll status

	// Evaluation
	mux.HandleFunc("/api/evaluate/job/", s.app.EvaluateHandler.EvaluateByJobHandler) // POST /{id}

	// System
	mux.HandleFunc("/api/health", s.app.HealthHandler.HealthHandler)
	mux.HandleFunc("/api/version", s.app.HealthHandler.VersionHandler)

	return mux
}
