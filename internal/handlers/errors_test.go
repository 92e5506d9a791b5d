package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinichistory/internal/apperr"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	original := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = original })
	return &buf
}

func TestRespondWithErrorWritesStatusAndBody(t *testing.T) {
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 418, "Teapot", "", nil)

	assert.Equal(t, 418, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Teapot"}`, recorder.Body.String())
}

func TestRespondWithErrorLogsMessage(t *testing.T) {
	buf := captureLog(t)
	recorder := httptest.NewRecorder()

	respondWithError(recorder, 500, "Internal server error", "", errors.New("boom"))

	assert.Contains(t, buf.String(), "Internal server error")
	assert.Contains(t, buf.String(), "boom")
}

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", apperr.Validation("Email is required"), 400, `{"error":"Email is required"}`},
		{"not found", fmt.Errorf("wrapped: %w", apperr.NotFound("User not found")), 404, `{"error":"User not found"}`},
		{"conflict", apperr.Conflict("User already exists"), 409, `{"error":"User already exists"}`},
		{"internal hides cause", apperr.Internal("Failed", errors.New("dsn password=hunter2")), 500, `{"error":"Internal server error"}`},
		{"plain error", errors.New("driver exploded"), 500, `{"error":"Internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captureLog(t)
			recorder := httptest.NewRecorder()
			respondAppError(recorder, tt.err)
			assert.Equal(t, tt.status, recorder.Code)
			assert.JSONEq(t, tt.body, recorder.Body.String())
		})
	}
}

func TestDecodeJSONRejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{not json"))
	var dst map[string]any
	err := decodeJSON(req, &dst)
	require.Error(t, err)
	assert.Equal(t, 400, apperr.Status(err))
}
