package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/echodoc/internal/models"
)

// APIResponse is the uniform response envelope
type APIResponse struct {
	Data         interface{} `json:"data"`
	ErrorMessage string      `json:"errorMessage"`
	Success      bool        `json:"success"`
	Errors       []string    `json:"errors"`
}

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteFailure(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(payload)
}

// WriteData writes a successful envelope around data
func WriteData(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, APIResponse{
		Data:    data,
		Success: true,
		Errors:  []string{},
	})
}

// WriteFailure writes a failed envelope with the given message
func WriteFailure(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, APIResponse{
		ErrorMessage: message,
		Success:      false,
		Errors:       []string{message},
	})
}

// WriteError maps an error's kind to an HTTP status and writes the
// failed envelope
func WriteError(w http.ResponseWriter, err error) error {
	return WriteFailure(w, statusForError(err), err.Error())
}

// statusForError maps error kinds to HTTP status codes
func statusForError(err error) int {
	switch models.KindOf(err) {
	case models.ErrKindValidation:
		return http.StatusBadRequest
	case models.ErrKindNotFound:
		return http.StatusNotFound
	case models.ErrKindIllegalTransition, models.ErrKindNotIndexed:
		return http.StatusConflict
	case models.ErrKindCapability:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
