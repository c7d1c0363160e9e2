package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/echodoc/internal/models"
)

func TestWriteDataEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteData(rec, map[string]string{"id": "job-1"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Empty(t, resp.ErrorMessage)
	assert.NotNil(t, resp.Errors)
	assert.Len(t, resp.Errors, 0)
}

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", models.NewValidationError("bad input"), http.StatusBadRequest},
		{"not found", models.NewNotFoundError("job missing"), http.StatusNotFound},
		{"illegal transition", models.NewIllegalTransitionError("processing", "not ready"), http.StatusConflict},
		{"not indexed", models.NewNotIndexedError("no index"), http.StatusConflict},
		{"capability", models.NewCapabilityError(errors.New("quota"), "embedding failed"), http.StatusBadGateway},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.status, rec.Code)

			var resp APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.ErrorMessage)
			assert.Equal(t, []string{resp.ErrorMessage}, resp.Errors)
		})
	}
}

func TestRequireMethodRejectsMismatch(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)

	ok := RequireMethod(rec, req, http.MethodPost)

	assert.False(t, ok)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequireMethodAcceptsMatch(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)

	ok := RequireMethod(rec, req, http.MethodGet)

	assert.True(t, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
}
