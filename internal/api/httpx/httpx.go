package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
)

// Envelope is the body of every successful response.
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Token   string `json:"token,omitempty"`
}

type APIError struct {
	Status  bool   `json:"status"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteOK(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Status: true, Message: msg, Data: data})
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details any) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidInput, apperr.KindConflict, apperr.KindExpired:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthorized, apperr.KindInvalidToken:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteAppError writes err with the status of its kind. Internal causes are
// logged and never sent to the client.
func WriteAppError(w http.ResponseWriter, r *http.Request, err error) {
	WriteAppErrorStatus(w, r, err, 0)
}

// WriteAppErrorStatus is WriteAppError with a status override; zero keeps the default.
func WriteAppErrorStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	ae := apperr.From(err)
	if status == 0 {
		status = StatusFor(ae.Kind)
	}
	msg := ae.Message
	if ae.Kind == apperr.KindInternal {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		if msg == "" {
			msg = "internal server error"
		}
	}
	var details any
	if len(ae.Fields) > 0 {
		details = ae.Fields
	}
	WriteError(w, status, string(ae.Kind), msg, details)
}
