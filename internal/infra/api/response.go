package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"essaygenius/internal/domain"
	"essaygenius/internal/usecase"
)

// detailEnvelope is the error shape clients branch on.
type detailEnvelope struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailEnvelope{Detail: detail})
}

// writeError maps domain sentinels to status codes; anything unrecognized is
// a 500 with a generic message so internals never leak.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientCredits):
		writeDetail(w, http.StatusPaymentRequired, usecase.InsufficientCreditsMessage)
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrLockHeld):
		writeDetail(w, http.StatusConflict, "A generation job is already running. Please wait for it to finish.")
	default:
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
