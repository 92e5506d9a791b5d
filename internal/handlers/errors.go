package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"clinichistory/internal/apperr"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Error().Err(err).Int("status", status).Msg(logMsg)
	}

	respondJSON(w, status, errorResponse{Error: userMsg})
}

// respondAppError maps an error from the service layer onto its status and
// client message. Causes of internal errors are logged, never returned.
func respondAppError(w http.ResponseWriter, err error) {
	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		respondWithError(w, status, apperr.Message(err), "", err)
		return
	}
	respondWithError(w, status, apperr.Message(err), "", nil)
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperr.Validation(ErrInvalidJSON)
	}
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(dst); err != nil {
		return apperr.Validation(ErrInvalidJSON)
	}
	return nil
}
