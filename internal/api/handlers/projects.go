package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/crowdfund-backend/internal/api/httpx"
	"github.com/baharkarakas/crowdfund-backend/internal/api/validate"
	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/services"
)

const maxUpload = 10 << 20

type ProjectHandler struct {
	Projects *services.ProjectService
	Budgets  *services.BudgetService
}

func NewProjectHandler(ps *services.ProjectService, bs *services.BudgetService) *ProjectHandler {
	return &ProjectHandler{Projects: ps, Budgets: bs}
}

type createProjectForm struct {
	Title       string `json:"title" validate:"required" msg:"Title is required"`
	Caption     string `json:"caption" validate:"required" msg:"Project caption is required"`
	Description string `json:"description" validate:"required" msg:"Project description is required"`
	DueDate     string `json:"due_date" validate:"required" msg:"A due date is required"`
}

// Create handles a multipart form with the image in the projectImage file field.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		httpx.WriteAppError(w, r, apperr.Wrap(err, apperr.KindInvalidInput, "Could not process file"))
		return
	}
	form := createProjectForm{
		Title:       r.FormValue("title"),
		Caption:     r.FormValue("caption"),
		Description: r.FormValue("description"),
		DueDate:     r.FormValue("due_date"),
	}
	if err := validate.Struct(form); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	due, err := parseDate("due_date", form.DueDate)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}

	in := services.CreateProjectInput{
		Title:       form.Title,
		Caption:     form.Caption,
		Description: form.Description,
		DueDate:     due,
	}
	file, hdr, err := r.FormFile("projectImage")
	if err == nil {
		defer file.Close()
		in.Image = &services.ImageUpload{
			Filename:    hdr.Filename,
			ContentType: hdr.Header.Get("Content-Type"),
			Body:        file,
		}
	}

	p, err := h.Projects.Create(r.Context(), id.UserID, in)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusCreated, "New project created", p)
}

type updateProjectReq struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req updateProjectReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	due, err := parseDate("due_date", req.DueDate)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	p, err := h.Projects.Update(r.Context(), id.UserID, r.URL.Query().Get("id"), services.ProjectPatch{
		Title:       req.Title,
		Slug:        req.Slug,
		Caption:     req.Caption,
		Description: req.Description,
		DueDate:     due,
	})
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Project updated successfully", p)
}

func projectFilter(r *http.Request) models.ProjectFilter {
	q := r.URL.Query()
	return models.ProjectFilter{ID: q.Get("id"), Slug: q.Get("slug")}
}

// List returns the caller's projects; admins pass admin=true to see everyone's.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("admin"))
	ps, err := h.Projects.List(r.Context(), id, projectFilter(r), all)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, httpx.Envelope{Status: true, Data: ps})
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.Projects.Delete(r.Context(), projectFilter(r))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Projects deleted", removed)
}

type setBudgetReq struct {
	Budget json.RawMessage `json:"budget"`
}

// SetBudget replaces the whole budget. The body must carry a "budget" array.
func (h *ProjectHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req setBudgetReq
	if err := decodeJSON(r, &req); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	raw := bytes.TrimSpace(req.Budget)
	if len(raw) == 0 || raw[0] != '[' {
		httpx.WriteAppError(w, r, apperr.Validation(apperr.FieldError{Field: "budget", Msg: "Budget is required"}))
		return
	}
	var items []models.BudgetItemInput
	if err := json.Unmarshal(raw, &items); err != nil {
		httpx.WriteAppError(w, r, apperr.Wrap(err, apperr.KindInvalidInput, "Invalid data supplied"))
		return
	}
	p, err := h.Budgets.SetBudget(r.Context(), chi.URLParam(r, "id"), id.UserID, items)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Project budget updated successfully", p)
}

func (h *ProjectHandler) UpdateLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var patch models.LineItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	budget, err := h.Budgets.UpdateLineItem(r.Context(), chi.URLParam(r, "projectId"), id.UserID, chi.URLParam(r, "budgetId"), patch)
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Project budget updated successfully", budget)
}

func (h *ProjectHandler) RemoveLineItem(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	budget, err := h.Budgets.RemoveLineItem(r.Context(), chi.URLParam(r, "projectId"), id.UserID, chi.URLParam(r, "budgetId"))
	if err != nil {
		httpx.WriteAppError(w, r, err)
		return
	}
	httpx.WriteOK(w, http.StatusOK, "Budget item removed", budget)
}
