package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:   http.StatusUnprocessableEntity,
		apperr.KindInvalidInput: http.StatusBadRequest,
		apperr.KindConflict:     http.StatusBadRequest,
		apperr.KindExpired:      http.StatusBadRequest,
		apperr.KindNotFound:     http.StatusNotFound,
		apperr.KindUnauthorized: http.StatusUnauthorized,
		apperr.KindInvalidToken: http.StatusUnauthorized,
		apperr.KindForbidden:    http.StatusForbidden,
		apperr.KindInternal:     http.StatusInternalServerError,
	}
	for k, want := range cases {
		assert.Equal(t, want, StatusFor(k), string(k))
	}
}

func TestWriteAppError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	WriteAppError(rec, req, errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status)
	assert.Equal(t, "internal server error", body.Error)
	assert.Equal(t, "internal_error", body.Code)
	assert.NotContains(t, rec.Body.String(), "password authentication")
}

func TestWriteAppError_ValidationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	WriteAppError(rec, req, apperr.Validation(apperr.FieldError{Field: "email", Msg: "Email is required"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"status":false,"error":"validation failed","code":"validation_failed",
		"details":[{"field":"email","msg":"Email is required"}]}`, rec.Body.String())
}

func TestWriteAppErrorStatus_Override(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/x", nil)
	WriteAppErrorStatus(rec, req, apperr.NotFound("Account does not exist"), http.StatusForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, http.StatusCreated, "done", map[string]int{"n": 1})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"status":true,"message":"done","data":{"n":1}}`, rec.Body.String())
}
