package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sheikh-saqib/banking-ledger-core/internal/models"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error, code int) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// statusFor maps ledger failures to HTTP status codes. Anything unrecognised
// is a failure underneath the ledger.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSameAccount),
		errors.Is(err, models.ErrUnknownAccountType):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrStorage):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrDuplicateAccount):
		return http.StatusConflict
	case errors.Is(err, models.ErrLimitExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
