package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	"github.com/baharkarakas/crowdfund-backend/internal/notify"
)

func signup(t *testing.T, f *fixture, email string) SignupResult {
	t.Helper()
	res, err := f.users.Signup(context.Background(), SignupInput{
		Firstname: "Ada", Lastname: "Lovelace", Email: email, Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return res
}

func TestSignup_CreatesUnconfirmedUserAndQueuesMail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	res := signup(t, f, " Ada@Example.com ")
	assert.NotEmpty(t, res.Token)
	assert.True(t, res.Notified)

	stored, err := f.store.Repos().Users.GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.Confirmed)
	assert.Equal(t, "ada@example.com", stored.Email)
	assert.True(t, stored.Roles.Has(models.RoleUser))
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.ProfileImage, "https://s.gravatar.com/avatar/"))

	id, err := f.tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)

	require.Len(t, f.mail.calls, 1)
	assert.Equal(t, notify.BestEffort, f.mail.calls[0].policy)
	assert.Contains(t, f.mail.calls[0].msg.HTML, "http://client.test/auth/"+res.User.ID+"/account-confirmation")
}

func TestSignup_MailDroppedStillSucceeds(t *testing.T) {
	f := newFixture()
	f.mail.dropBE = true
	res := signup(t, f, "ada@example.com")
	assert.NotEmpty(t, res.Token)
	assert.False(t, res.Notified)
}

func TestSignup_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	signup(t, f, "ada@example.com")

	_, err := f.users.Signup(ctx, SignupInput{Email: "ADA@example.com", Password: "x"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	all, err := f.users.ListUsers(ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res := signup(t, f, "ada@example.com")

	tok, err := f.users.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	id, err := f.tokens.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
	assert.Equal(t, []string{"user"}, id.Roles.Strings())

	_, err = f.users.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	_, err = f.users.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMeAndConfirmAccount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	res := signup(t, f, "ada@example.com")

	u, err := f.users.ConfirmAccount(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, u.Confirmed)

	me, err := f.users.Me(ctx, res.User.ID)
	require.NoError(t, err)
	assert.True(t, me.Confirmed)

	_, err = f.users.ConfirmAccount(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = f.users.ConfirmAccount(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRequestPasswordReset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	signup(t, f, "ada@example.com")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.users.now = func() time.Time { return base }

	link, err := f.users.RequestPasswordReset(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Empty(t, link)

	link, err = f.users.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://client.test/auth/reset-password/"))

	u, err := f.store.Repos().Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Len(t, u.PasswordResetToken, 40)
	require.NotNil(t, u.ResetTokenExpiry)
	assert.Equal(t, base.Add(time.Hour), *u.ResetTokenExpiry)

	last := f.mail.calls[len(f.mail.calls)-1]
	assert.Equal(t, notify.Required, last.policy)
	assert.Equal(t, "Password Reset", last.msg.Subject)
}

func TestRequestPasswordReset_MailFailureIsReported(t *testing.T) {
	f := newFixture()
	signup(t, f, "ada@example.com")
	f.mail.failReq = errSMTP

	_, err := f.users.RequestPasswordReset(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, apperr.ErrInternal)
	assert.ErrorIs(t, err, errSMTP)
}

func TestResetPassword_ExpiryBoundaries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	signup(t, f, "ada@example.com")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.users.now = func() time.Time { return base }

	_, err := f.users.RequestPasswordReset(ctx, "ada@example.com")
	require.NoError(t, err)
	u, err := f.store.Repos().Users.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	token := u.PasswordResetToken
	expiry := base.Add(time.Hour)

	for _, at := range []time.Time{expiry, expiry.Add(time.Nanosecond), expiry.Add(24 * time.Hour)} {
		f.users.now = func() time.Time { return at }
		_, err := f.users.ResetPassword(ctx, token, "new-pass")
		assert.ErrorIs(t, err, apperr.ErrExpired, "at %s", at)
	}

	f.users.now = func() time.Time { return expiry }
	_, err = f.users.ResetPassword(ctx, "unknown-token", "new-pass")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.users.ResetPassword(ctx, "", "new-pass")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	f.users.now = func() time.Time { return expiry.Add(-time.Nanosecond) }
	id, err := f.users.ResetPassword(ctx, token, "new-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)

	_, err = f.users.Login(ctx, "ada@example.com", "new-pass")
	assert.NoError(t, err)

	// The token is not cleared after use.
	_, err = f.users.ResetPassword(ctx, token, "newer-pass")
	assert.NoError(t, err)

	last := f.mail.calls[len(f.mail.calls)-1]
	assert.Equal(t, notify.BestEffort, last.policy)
	assert.Equal(t, "Password Reset Successfully", last.msg.Subject)
}

func TestToggleAdminRole_IsOwnInverse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	signup(t, f, "ada@example.com")

	roles, err := f.users.ToggleAdminRole(ctx, "admin-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "user"}, roles.Strings())

	roles, err = f.users.ToggleAdminRole(ctx, "admin-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles.Strings())

	_, err = f.users.ToggleAdminRole(ctx, "admin-1", "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestDeleteUsers_CascadesToOwnedProjects(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := signup(t, f, "ada@example.com").User
	bob := signup(t, f, "bob@example.com").User

	projects := f.store.Repos().Projects
	require.NoError(t, projects.Create(ctx, &models.Project{OwnerID: ada.ID, Slug: "a1"}))
	require.NoError(t, projects.Create(ctx, &models.Project{OwnerID: ada.ID, Slug: "a2"}))
	require.NoError(t, projects.Create(ctx, &models.Project{OwnerID: bob.ID, Slug: "b1"}))

	n, err := f.users.DeleteUsers(ctx, "admin-1", models.UserFilter{ID: ada.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := f.store.Repos().Projects.List(ctx, models.ProjectFilter{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, bob.ID, left[0].OwnerID)

	_, err = f.users.Me(ctx, ada.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteUsers_NoProjectsLeavesProjectsAlone(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := signup(t, f, "ada@example.com").User
	bob := signup(t, f, "bob@example.com").User
	require.NoError(t, f.store.Repos().Projects.Create(ctx, &models.Project{OwnerID: bob.ID, Slug: "b1"}))

	n, err := f.users.DeleteUsers(ctx, "admin-1", models.UserFilter{ID: ada.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, err := f.store.Repos().Projects.List(ctx, models.ProjectFilter{})
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestDeleteUsers_RefusesEmptyFilter(t *testing.T) {
	f := newFixture()
	signup(t, f, "ada@example.com")
	_, err := f.users.DeleteUsers(context.Background(), "admin-1", models.UserFilter{})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestToggleAdminRole_IsAudited(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := signup(t, f, "ada@example.com").User

	_, err := f.users.ToggleAdminRole(ctx, "admin-1", "ada@example.com")
	require.NoError(t, err)

	logs, err := f.users.AuditTrail(ctx, models.AuditFilter{EntityType: models.EntityUser, EntityID: ada.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionRoleToggled, logs[0].Action)
	assert.Equal(t, "admin-1", logs[0].ActorID)
	assert.Equal(t, true, logs[0].Details["admin"])

	_, err = f.users.ToggleAdminRole(ctx, "admin-1", "nobody@example.com")
	require.Error(t, err)
	all, err := f.users.AuditTrail(ctx, models.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteUsers_AuditsAndRemovesImages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := signup(t, f, "ada@example.com").User

	projects := f.store.Repos().Projects
	withImage := models.Project{OwnerID: ada.ID, Slug: "a1", Image: models.ProjectImage{ID: "project-images/a1-" + ada.ID + ".png"}}
	require.NoError(t, projects.Create(ctx, &withImage))
	require.NoError(t, projects.Create(ctx, &models.Project{OwnerID: ada.ID, Slug: "a2"}))

	n, err := f.users.DeleteUsers(ctx, "admin-1", models.UserFilter{ID: ada.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{withImage.Image.ID}, f.images.deleted)

	logs, err := f.users.AuditTrail(ctx, models.AuditFilter{EntityID: ada.ID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ActionUserDeleted, logs[0].Action)
	assert.Equal(t, "admin-1", logs[0].ActorID)
	ids, ok := logs[0].Details["projects"].([]string)
	require.True(t, ok)
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, withImage.ID)
}

func TestDeleteUsers_ImageFailureDoesNotFailDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ada := signup(t, f, "ada@example.com").User
	f.images.delErr = errors.New("s3 down")
	require.NoError(t, f.store.Repos().Projects.Create(ctx, &models.Project{
		OwnerID: ada.ID, Slug: "a1", Image: models.ProjectImage{ID: "k1"},
	}))

	n, err := f.users.DeleteUsers(ctx, "admin-1", models.UserFilter{ID: ada.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"k1"}, f.images.deleted)
}
