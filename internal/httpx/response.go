package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/engineerapp/backoffice/internal/errs"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	var body []byte
	var err error
	if payload != nil {
		body, err = json.Marshal(payload)
		if err != nil {
			// best-effort error response; avoid writing partial JSON
			http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
			return
		}
	} else {
		body = []byte("null")
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		// nothing we can do at this point
		_ = err
	}
}

func JSONError(w http.ResponseWriter, status int, msg string, details any) {
	JSON(w, status, ErrorResponse{Error: msg, Details: details})
}

// Fail translates a typed errs error into its HTTP status; anything else is a 500.
func Fail(w http.ResponseWriter, err error) {
	var e *errs.Error
	if !errors.As(err, &e) {
		JSONError(w, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	JSON(w, StatusFor(e.Kind), ErrorResponse{Error: string(e.Kind), Message: e.Message, Details: e.Context})
}

// StatusFor maps typed error kinds onto HTTP statuses.
func StatusFor(k errs.Kind) int {
	switch k {
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindInsufficientStock, errs.KindInvalidInput, errs.KindLimitExceeded:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
