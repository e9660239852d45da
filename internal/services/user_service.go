package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/auth"
	"github.com/baharkarakas/crowdfund-backend/internal/config"
	"github.com/baharkarakas/crowdfund-backend/internal/metrics"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/notify"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
)

const (
	MsgResetRequested = "Thank you! If we find a matching data, we will sent password reset instructions to it"
	msgAccountMissing = "Account does not exist"
)

type UserService struct {
	store  repo.Store
	tokens *auth.TokenManager
	mail   Notifier
	images ImageStore
	c      config.Config
	log    *slog.Logger
	now    Clock
}

func NewUserService(store repo.Store, tm *auth.TokenManager, mail Notifier, images ImageStore, c config.Config, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{store: store, tokens: tm, mail: mail, images: images, c: c, log: log, now: time.Now}
}

type SignupInput struct {
	Firstname string
	Lastname  string
	Email     string
	Password  string
}

type SignupResult struct {
	User  models.User
	Token string
	// Notified is false when the confirmation email could not even be queued.
	Notified bool
}

func (s *UserService) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	users := s.store.Repos().Users
	email := models.NormalizeEmail(in.Email)

	_, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return SignupResult{}, apperr.Conflict("Record exist, please login")
	case !errors.Is(err, repo.ErrNotFound):
		return SignupResult{}, storeErr(err, nil)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return SignupResult{}, apperr.Internal(err, "Failed to hash password")
	}
	u := models.User{
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Email:        email,
		PasswordHash: hash,
		ProfileImage: models.GravatarURL(email),
		Roles:        models.DefaultRoles(),
		Active:       true,
	}
	if err := users.Create(ctx, &u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return SignupResult{}, apperr.Conflict("Record exist, please login")
		}
		return SignupResult{}, storeErr(err, nil)
	}

	token, _, err := s.tokens.Issue(auth.Identity{UserID: u.ID, Roles: u.Roles}, s.c.ConfirmTokenTTL)
	if err != nil {
		return SignupResult{}, apperr.Internal(err, "Failed to generate token")
	}
	metrics.SignupsTotal.Inc()

	res := SignupResult{User: u, Token: token}
	link := s.c.ClientURL + "/auth/" + u.ID + "/account-confirmation"
	msg, err := notify.AccountConfirmation(u.Email, u.Firstname, link)
	if err != nil {
		s.log.Error("render confirmation email", "user_id", u.ID, "err", err)
		return res, nil
	}
	out, _ := s.mail.Dispatch(ctx, msg, notify.BestEffort)
	res.Notified = out != notify.Dropped
	return res, nil
}

// Login returns a session token for valid credentials.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.store.Repos().Users.GetByEmail(ctx, models.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("not_found").Inc()
		}
		return "", storeErr(err, apperr.NotFound(msgAccountMissing))
	}
	if err := auth.VerifyPassword(password, u.PasswordHash); err != nil {
		metrics.LoginsTotal.WithLabelValues("bad_password").Inc()
		return "", apperr.Unauthorized(msgAccountMissing)
	}
	token, _, err := s.tokens.Issue(auth.Identity{UserID: u.ID, Roles: u.Roles}, s.c.SessionTokenTTL)
	if err != nil {
		return "", apperr.Internal(err, "Failed to generate token")
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return token, nil
}

func (s *UserService) Me(ctx context.Context, id string) (models.User, error) {
	u, err := s.store.Repos().Users.GetByID(ctx, id)
	return u, storeErr(err, apperr.NotFound("User not found"))
}

// ConfirmAccount marks the user confirmed. Any caller who knows the id can do this.
func (s *UserService) ConfirmAccount(ctx context.Context, id string) (models.User, error) {
	if strings.TrimSpace(id) == "" {
		return models.User{}, apperr.InvalidInput("No id, Invalid request")
	}
	users := s.store.Repos().Users
	u, err := users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, storeErr(err, apperr.NotFound("User not found"))
	}
	u.Confirmed = true
	if err := users.Update(ctx, &u); err != nil {
		return models.User{}, storeErr(err, nil)
	}
	return u, nil
}

// RequestPasswordReset stores a fresh reset token and mails the link. An unknown
// email returns an empty link and no error. A failed send is reported.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	users := s.store.Repos().Users
	u, err := users.GetByEmail(ctx, models.NormalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storeErr(err, nil)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return "", apperr.Internal(err, "Failed to generate reset token")
	}
	exp := s.now().Add(s.c.ResetTokenTTL)
	u.PasswordResetToken = token
	u.ResetTokenExpiry = &exp
	if err := users.Update(ctx, &u); err != nil {
		return "", apperr.Internal(err, "Failed to update password reset token")
	}

	link := s.c.ClientURL + "/auth/reset-password/" + token
	msg, err := notify.PasswordReset(u.Email, u.Firstname, link)
	if err != nil {
		return "", apperr.Internal(err, "Failed to send password reset email")
	}
	if _, err := s.mail.Dispatch(ctx, msg, notify.Required); err != nil {
		return "", apperr.Internal(err, "Failed to send password reset email")
	}
	return link, nil
}

// ResetPassword sets a new password for the holder of token. The token is not
// cleared and stays usable until it expires.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	users := s.store.Repos().Users
	u, err := users.GetByResetToken(ctx, token)
	if err != nil {
		return "", storeErr(err, apperr.Unauthorized("Request invalid. Unauthorized to reset password"))
	}
	if u.ResetTokenExpiry == nil || !s.now().Before(*u.ResetTokenExpiry) {
		return "", apperr.New(apperr.KindExpired, "Request invalid. You are using expired link")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return "", apperr.Internal(err, "Failed to hash password")
	}
	u.PasswordHash = hash
	if err := users.Update(ctx, &u); err != nil {
		return "", apperr.Internal(err, "Failed to save user")
	}

	msg, err := notify.PasswordResetSuccess(u.Email, u.Firstname, s.c.ClientURL+"/login")
	if err != nil {
		s.log.Error("render reset success email", "user_id", u.ID, "err", err)
		return u.ID, nil
	}
	_, _ = s.mail.Dispatch(ctx, msg, notify.BestEffort)
	return u.ID, nil
}

// ToggleAdminRole adds the admin role if absent and removes it otherwise. The
// change is audited against actorID.
func (s *UserService) ToggleAdminRole(ctx context.Context, actorID, email string) (models.RoleSet, error) {
	var roles models.RoleSet
	err := s.store.WithinTx(ctx, func(r repo.Repos) error {
		u, err := r.Users.GetByEmail(ctx, models.NormalizeEmail(email))
		if err != nil {
			return storeErr(err, apperr.Unauthorized("Unauthorized to update role"))
		}
		if u.Roles == nil {
			u.Roles = models.NewRoleSet()
		}
		u.Roles.Toggle(models.RoleAdmin)
		if err := r.Users.Update(ctx, &u); err != nil {
			return err
		}
		roles = u.Roles
		return record(ctx, r.AuditLogs, models.EntityUser, u.ID, models.ActionRoleToggled, actorID,
			map[string]any{"admin": u.Roles.Has(models.RoleAdmin)})
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return roles, nil
}

func (s *UserService) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	users, err := s.store.Repos().Users.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// DeleteUsers removes every matching user together with the projects they own,
// all in one transaction with one audit entry per user. Images of the removed
// projects are deleted after the commit. An empty filter is refused.
func (s *UserService) DeleteUsers(ctx context.Context, actorID string, f models.UserFilter) (int, error) {
	if f == (models.UserFilter{}) {
		return 0, apperr.InvalidInput("No id, Invalid request")
	}
	var (
		deleted  int
		orphaned []models.Project
	)
	err := s.store.WithinTx(ctx, func(r repo.Repos) error {
		deleted, orphaned = 0, nil
		users, err := r.Users.List(ctx, f)
		if err != nil {
			return err
		}
		for _, u := range users {
			removed, err := r.Projects.DeleteByOwner(ctx, u.ID)
			if err != nil {
				return err
			}
			if err := r.Users.Delete(ctx, u.ID); err != nil {
				return err
			}
			ids := make([]string, 0, len(removed))
			for _, p := range removed {
				ids = append(ids, p.ID)
			}
			if err := record(ctx, r.AuditLogs, models.EntityUser, u.ID, models.ActionUserDeleted, actorID,
				map[string]any{"email": u.Email, "projects": ids}); err != nil {
				return err
			}
			orphaned = append(orphaned, removed...)
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, storeErr(err, nil)
	}
	s.log.Info("users deleted", "actor_id", actorID, "users", deleted, "projects", len(orphaned))
	removeImages(ctx, s.images, s.log, orphaned)
	return deleted, nil
}

// AuditTrail lists audit entries, newest first.
func (s *UserService) AuditTrail(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, error) {
	logs, err := s.store.Repos().AuditLogs.List(ctx, f)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return logs, nil
}
