package repository

import (
	"context"
	"errors"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByResetToken(ctx context.Context, token string) (models.User, error)
	List(ctx context.Context, f models.UserFilter) ([]models.User, error)
	// Update saves every mutable field of u.
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id string) error
}

type Projects interface {
	Create(ctx context.Context, p *models.Project) error
	GetByID(ctx context.Context, id string) (models.Project, error)
	List(ctx context.Context, f models.ProjectFilter) ([]models.Project, error)
	Update(ctx context.Context, p *models.Project) error
	// Delete removes every project matching f and returns what was removed.
	Delete(ctx context.Context, f models.ProjectFilter) ([]models.Project, error)
	// DeleteByOwner removes every project of ownerID and returns them.
	DeleteByOwner(ctx context.Context, ownerID string) ([]models.Project, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l *models.AuditLog) error
	// List returns matching entries, newest first.
	List(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, error)
}

// Repos is a set of repositories bound to one connection or transaction.
type Repos struct {
	Users     Users
	Projects  Projects
	AuditLogs AuditLogs
}

// Store is the document store the services run against.
type Store interface {
	Repos() Repos
	// WithinTx runs fn against repositories bound to a single transaction.
	// fn's error rolls the transaction back. The Repos passed to fn must not be
	// used after fn returns.
	WithinTx(ctx context.Context, fn func(Repos) error) error
}
