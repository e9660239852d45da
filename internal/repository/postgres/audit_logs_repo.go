package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/crowdfund-backend/internal/models"
)

type auditLogsRepo struct{ db DBTX }

func (r *auditLogsRepo) Create(ctx context.Context, l *models.AuditLog) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	details := l.Details
	if details == nil {
		details = map[string]any{}
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO audit_logs(id, entity_type, entity_id, action, actor_id, details)
		 VALUES($1,$2,$3,$4,$5,$6)
		 RETURNING created_at`,
		l.ID, l.EntityType, l.EntityID, l.Action, l.ActorID, details,
	).Scan(&l.CreatedAt)
	return mapErr(err)
}

func (r *auditLogsRepo) List(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, entity_type, entity_id, action, actor_id, details, created_at
		   FROM audit_logs
		  WHERE ($1 = '' OR entity_type = $1) AND ($2 = '' OR entity_id = $2)
		  ORDER BY created_at DESC, id`,
		f.EntityType, f.EntityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action, &l.ActorID, &l.Details, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
