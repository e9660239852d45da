package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/api/httpx"
	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/middleware"
)

const maxJSONBody = 1 << 20

// decodeJSON reads a JSON body into dst. Malformed bodies are InvalidInput.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.InvalidInput("request body is empty")
		}
		return apperr.Wrap(err, apperr.KindInvalidInput, "invalid JSON body")
	}
	return nil
}

// identity returns the caller attached by the auth middleware, writing 401 if absent.
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteAppError(w, r, apperr.Unauthorized("Invalid::No token in header"))
	}
	return id, ok
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// parseDate accepts RFC 3339 timestamps and plain dates. Empty input is nil.
func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperr.Validation(apperr.FieldError{Field: field, Msg: "must be a date (YYYY-MM-DD or RFC 3339)"})
}
