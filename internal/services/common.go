package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/notify"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
)

// Notifier is the dispatch side of notify.Dispatcher.
type Notifier interface {
	Dispatch(ctx context.Context, m notify.Message, policy notify.Policy) (notify.Outcome, error)
}

type Clock func() time.Time

// storeErr maps repository failures: ErrNotFound becomes notFound, anything else
// is hidden behind a generic Internal error.
func storeErr(err error, notFound *apperr.Error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) && notFound != nil {
		return notFound
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Internal(err, "internal server error")
}

// record appends an audit entry through logs, normally the transaction's own repo.
func record(ctx context.Context, logs repo.AuditLogs, entityType, entityID, action, actorID string, details map[string]any) error {
	return logs.Create(ctx, &models.AuditLog{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Details:    details,
	})
}

// removeImages deletes the stored images of projects. Failures are logged only.
func removeImages(ctx context.Context, images ImageStore, log *slog.Logger, projects []models.Project) {
	for _, p := range projects {
		if p.Image.ID == "" {
			continue
		}
		if err := images.Delete(ctx, p.Image.ID); err != nil {
			log.Warn("delete project image", "project_id", p.ID, "key", p.Image.ID, "err", err)
		}
	}
}
