// internal/repository/postgres/users_repo.go
package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
)

type usersRepo struct{ db DBTX }

const userColumns = `id, firstname, lastname, email, password_hash, profile_image, roles, active, confirmed,
	confirmation_token, password_reset_token, reset_token_expiry, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var (
		u     models.User
		roles []string
	)
	err := row.Scan(&u.ID, &u.Firstname, &u.Lastname, &u.Email, &u.PasswordHash, &u.ProfileImage, &roles,
		&u.Active, &u.Confirmed, &u.ConfirmationToken, &u.PasswordResetToken, &u.ResetTokenExpiry,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, mapErr(err)
	}
	u.Roles = models.RoleSetFromStrings(roles)
	return u, nil
}

func (r *usersRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO users(id, firstname, lastname, email, password_hash, profile_image, roles, active, confirmed,
		                   confirmation_token, password_reset_token, reset_token_expiry)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING created_at, updated_at`,
		u.ID, u.Firstname, u.Lastname, u.Email, u.PasswordHash, u.ProfileImage, u.Roles.Strings(), u.Active,
		u.Confirmed, u.ConfirmationToken, u.PasswordResetToken, u.ResetTokenExpiry,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.User{}, repo.ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email))
}

func (r *usersRepo) GetByResetToken(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, repo.ErrNotFound
	}
	return scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE password_reset_token=$1`, token))
}

func (r *usersRepo) List(ctx context.Context, f models.UserFilter) ([]models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if f.ID != "" {
		if _, err := uuid.Parse(f.ID); err != nil {
			return nil, nil
		}
		q += ` WHERE id=$1`
		args = append(args, f.ID)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *usersRepo) Update(ctx context.Context, u *models.User) error {
	err := r.db.QueryRow(ctx,
		`UPDATE users SET firstname=$2, lastname=$3, email=$4, password_hash=$5, profile_image=$6, roles=$7,
		        active=$8, confirmed=$9, confirmation_token=$10, password_reset_token=$11,
		        reset_token_expiry=$12, updated_at=now()
		  WHERE id=$1
		  RETURNING updated_at`,
		u.ID, u.Firstname, u.Lastname, u.Email, u.PasswordHash, u.ProfileImage, u.Roles.Strings(), u.Active,
		u.Confirmed, u.ConfirmationToken, u.PasswordResetToken, u.ResetTokenExpiry,
	).Scan(&u.UpdatedAt)
	return mapErr(err)
}

func (r *usersRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}
