package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
	"github.com/baharkarakas/crowdfund-backend/internal/storage"
)

type ImageStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (models.ProjectImage, error)
	Delete(ctx context.Context, key string) error
}

type ProjectService struct {
	store  repo.Store
	images ImageStore
	log    *slog.Logger
}

func NewProjectService(store repo.Store, images ImageStore, log *slog.Logger) *ProjectService {
	if log == nil {
		log = slog.Default()
	}
	return &ProjectService{store: store, images: images, log: log}
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

type CreateProjectInput struct {
	Title       string
	Caption     string
	Description string
	DueDate     *time.Time
	Image       *ImageUpload
}

func (s *ProjectService) Create(ctx context.Context, ownerID string, in CreateProjectInput) (models.Project, error) {
	if in.Image == nil || in.Image.Body == nil {
		return models.Project{}, apperr.InvalidInput("No file found")
	}
	slug := models.Slugify(in.Title)
	if slug == "" {
		return models.Project{}, apperr.Validation(apperr.FieldError{Field: "title", Msg: "Title is required"})
	}

	projects := s.store.Repos().Projects
	existing, err := projects.List(ctx, models.ProjectFilter{Slug: slug})
	if err != nil {
		return models.Project{}, storeErr(err, nil)
	}
	if len(existing) > 0 {
		return models.Project{}, apperr.Conflict("A project with this title already exists")
	}

	img, err := s.images.Upload(ctx, storage.ImageKey(slug, ownerID, in.Image.Filename), in.Image.Body, in.Image.ContentType)
	if err != nil {
		return models.Project{}, apperr.Internal(err, "Internal Server error in uploading project image")
	}

	p := models.Project{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Slug:        slug,
		Caption:     strings.TrimSpace(in.Caption),
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate,
		Image:       img,
		Budget:      []models.BudgetLineItem{},
	}
	if err := projects.Create(ctx, &p); err != nil {
		if derr := s.images.Delete(ctx, img.ID); derr != nil {
			s.log.Warn("orphaned project image", "key", img.ID, "err", derr)
		}
		if errors.Is(err, repo.ErrDuplicate) {
			return models.Project{}, apperr.Conflict("A project with this title already exists")
		}
		return models.Project{}, storeErr(err, nil)
	}
	return p, nil
}

// ProjectPatch holds optional changes; empty fields are left alone.
type ProjectPatch struct {
	Title       string
	Slug        string
	Caption     string
	Description string
	DueDate     *time.Time
}

// Update applies patch to a project owned by ownerID.
func (s *ProjectService) Update(ctx context.Context, ownerID, projectID string, patch ProjectPatch) (models.Project, error) {
	if strings.TrimSpace(projectID) == "" {
		return models.Project{}, apperr.InvalidInput("No id, Invalid request")
	}
	projects := s.store.Repos().Projects
	p, err := projects.GetByID(ctx, projectID)
	if err != nil {
		return models.Project{}, storeErr(err, apperr.NotFound("No project was found"))
	}
	if p.OwnerID != ownerID {
		return models.Project{}, apperr.Forbidden("You can only update your project")
	}

	if t := strings.TrimSpace(patch.Title); t != "" {
		p.Title = t
	}
	if patch.Slug != "" {
		p.Slug = models.Slugify(patch.Slug)
	}
	if c := strings.TrimSpace(patch.Caption); c != "" {
		p.Caption = c
	}
	if d := strings.TrimSpace(patch.Description); d != "" {
		p.Description = d
	}
	if patch.DueDate != nil {
		p.DueDate = patch.DueDate
	}
	if err := projects.Update(ctx, &p); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return models.Project{}, apperr.Conflict("Slug already in use")
		}
		return models.Project{}, storeErr(err, nil)
	}
	return p, nil
}

// List returns the caller's projects. An admin asking for all gets every project.
func (s *ProjectService) List(ctx context.Context, who auth.Identity, f models.ProjectFilter, all bool) ([]models.Project, error) {
	if !(all && who.IsAdmin()) {
		f.OwnerID = who.UserID
	}
	out, err := s.store.Repos().Projects.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return out, nil
}

// Delete removes matching projects and their images. An empty filter is refused.
func (s *ProjectService) Delete(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	if f == (models.ProjectFilter{}) {
		return nil, apperr.InvalidInput("No id, Invalid request")
	}
	removed, err := s.store.Repos().Projects.Delete(ctx, f)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	removeImages(ctx, s.images, s.log, removed)
	return removed, nil
}
