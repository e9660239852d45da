// internal/api/handlers/auth.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/crowdfund-backend/internal/api/httpx"
	"github.com/baharkarakas/crowdfund-backend/internal/api/validate"
	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/services"
)

type AuthHandler struct {
	Users *services.UserService
	// ExposeResetLink returns the reset link in the response body; off in prod.
	ExposeResetLink bool
}

func NewAuthHandler(us *services.UserService, exposeResetLink bool) *AuthHandler {
	return &AuthHandler{Users: us, ExposeResetLink: exposeResetLink}
}

type signupReq struct {
	Firstname string `json:"firstname" validate:"required" msg:"Firstname is required"`
	Lastname  string `json:"lastname" validate:"required" msg:"Lastname is required"`
	Email     string `json:"email" validate:"required,email" msg:"Email is required"`
	Password  string `json:"password" validate:"required" msg:"Password is required"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	res, err := h.Users.Signup(r.Context(), services.SignupInput{
		Firstname: req.Firstname, Lastname: req.Lastname, Email: req.Email, Password: req.Password,
	})
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	msg := "User signup successful"
	if res.Notified {
		msg += " Check your mail"
	}
	httpx.WriteJSON(w, http.StatusCreated, httpx.Envelope{Status: true, Message: msg, Token: res.Token})
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email" msg:"Email is required"`
	Password string `json:"password" validate:"required" msg:"Password is required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	tok, err := h.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status := 0
		if apperr.KindOf(err) == apperr.KindNotFound {
			status = http.StatusForbidden
		}
		httpx.WriteAppErrorStatus(w, r, err, status)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Status: true, Message: "Login successful", Token: tok})
}

// Me returns the authenticated user's record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	u, err := h.Users.Me(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "", u)
}

func (h *AuthHandler) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	u, err := h.Users.ConfirmAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Account confirmed", u)
}

type emailReq struct {
	Email string `json:"email" validate:"required,email" msg:"Email is required"`
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	link, err := h.Users.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	var data any
	if h.ExposeResetLink && link != "" {
		data = link
	}
	httpx.WriteOK(w, http.StatusCreated, services.MsgResetRequested, data)
}

type resetReq struct {
	PasswordResetToken string `json:"passwordResetToken" validate:"required" msg:"Token is required"`
	NewPassword        string `json:"newPassword" validate:"required" msg:"New password is required"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	id, err := h.Users.ResetPassword(r.Context(), req.PasswordResetToken, req.NewPassword)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusCreated, "Password updated successfully", map[string]string{"id": id})
}

// ToggleAdmin flips the admin role of the user with the given email.
func (h *AuthHandler) ToggleAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	var req emailReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	roles, err := h.Users.ToggleAdminRole(r.Context(), caller.UserID, req.Email)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusCreated, "User role updated", roles)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListUsers(r.Context(), models.UserFilter{ID: r.URL.Query().Get("id")})
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Status: true, Data: users})
}

func (h *AuthHandler) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	n, err := h.Users.DeleteUsers(r.Context(), caller.UserID, models.UserFilter{ID: r.URL.Query().Get("id")})
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Users deleted", map[string]int{"deleted": n})
}

// AuditLogs lists audit entries, optionally narrowed by entity_type and entity_id.
func (h *AuthHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	logs, err := h.Users.AuditTrail(r.Context(), models.AuditFilter{
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	})
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Status: true, Data: logs})
}
