package postgres

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
)

type projectsRepo struct{ db DBTX }

const projectColumns = `id, owner_id, title, slug, caption, description, due_date, image_url, image_id,
	budget, amount, approved, completed, created_at, updated_at`

func scanProject(row pgx.Row) (models.Project, error) {
	var (
		p      models.Project
		budget []byte
	)
	err := row.Scan(&p.ID, &p.OwnerID, &p.Title, &p.Slug, &p.Caption, &p.Description, &p.DueDate,
		&p.Image.URL, &p.Image.ID, &budget, &p.Amount, &p.Approved, &p.Completed, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, mapErr(err)
	}
	p.Budget = []models.BudgetLineItem{}
	if len(budget) > 0 {
		if err := json.Unmarshal(budget, &p.Budget); err != nil {
			return models.Project{}, err
		}
	}
	return p, nil
}

func encodeBudget(items []models.BudgetLineItem) ([]byte, error) {
	if items == nil {
		items = []models.BudgetLineItem{}
	}
	return json.Marshal(items)
}

func (r *projectsRepo) Create(ctx context.Context, p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	budget, err := encodeBudget(p.Budget)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO projects(id, owner_id, title, slug, caption, description, due_date, image_url, image_id,
		                      budget, amount, approved, completed)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Title, p.Slug, p.Caption, p.Description, p.DueDate, p.Image.URL, p.Image.ID,
		budget, p.Amount, p.Approved, p.Completed,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return mapErr(err)
}

func (r *projectsRepo) GetByID(ctx context.Context, id string) (models.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return models.Project{}, repo.ErrNotFound
	}
	return scanProject(r.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id))
}

// where renders f as a WHERE clause. ok is false when an id is not a valid uuid,
// in which case nothing can match.
func where(f models.ProjectFilter) (clause string, args []any, ok bool) {
	var conds []string
	add := func(col, v string) {
		args = append(args, v)
		conds = append(conds, col+"=$"+strconv.Itoa(len(args)))
	}
	if f.ID != "" {
		if _, err := uuid.Parse(f.ID); err != nil {
			return "", nil, false
		}
		add("id", f.ID)
	}
	if f.OwnerID != "" {
		if _, err := uuid.Parse(f.OwnerID); err != nil {
			return "", nil, false
		}
		add("owner_id", f.OwnerID)
	}
	if f.Slug != "" {
		add("slug", f.Slug)
	}
	if len(conds) == 0 {
		return "", nil, true
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

func (r *projectsRepo) List(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	clause, args, ok := where(f)
	if !ok {
		return []models.Project{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+projectColumns+` FROM projects`+clause+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func collectProjects(rows pgx.Rows) ([]models.Project, error) {
	out := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *projectsRepo) Update(ctx context.Context, p *models.Project) error {
	budget, err := encodeBudget(p.Budget)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx,
		`UPDATE projects SET title=$2, slug=$3, caption=$4, description=$5, due_date=$6, image_url=$7, image_id=$8,
		        budget=$9, amount=$10, approved=$11, completed=$12, updated_at=now()
		  WHERE id=$1
		  RETURNING updated_at`,
		p.ID, p.Title, p.Slug, p.Caption, p.Description, p.DueDate, p.Image.URL, p.Image.ID,
		budget, p.Amount, p.Approved, p.Completed,
	).Scan(&p.UpdatedAt)
	return mapErr(err)
}

func (r *projectsRepo) Delete(ctx context.Context, f models.ProjectFilter) ([]models.Project, error) {
	clause, args, ok := where(f)
	if !ok {
		return []models.Project{}, nil
	}
	rows, err := r.db.Query(ctx, `DELETE FROM projects`+clause+` RETURNING `+projectColumns, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProjects(rows)
}

func (r *projectsRepo) DeleteByOwner(ctx context.Context, ownerID string) ([]models.Project, error) {
	if ownerID == "" {
		return []models.Project{}, nil
	}
	return r.Delete(ctx, models.ProjectFilter{OwnerID: ownerID})
}
