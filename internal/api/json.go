package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ding-dong-qiang/blockchain-storage-system/internal/common"
)

const maxBodyBytes = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusOf maps a service error to its HTTP status. Remote failures wrap
// the backend's own error, so ErrRemoteSync is matched before ErrNotFound:
// a bundle missing at the gateway is a 502, not a missing file.
func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrDecryption), errors.Is(err, common.ErrIntegrity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrRemoteSync):
		return http.StatusBadGateway
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateTitle):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v and runs its validation.
func decode(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", common.ErrValidation)
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	return nil
}
