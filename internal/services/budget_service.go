package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/baharkarakas/crowdfund-backend/internal/apperr"
	"github.com/baharkarakas/crowdfund-backend/internal/metrics"
	"github.com/baharkarakas/crowdfund-backend/internal/models"
	repo "github.com/baharkarakas/crowdfund-backend/internal/repository"
)

// BudgetService maintains a project's line items and derived amount. Only the
// project owner may change a budget.
type BudgetService struct {
	store repo.Store
	// keepStaleAmount leaves amount untouched when a line item is removed.
	keepStaleAmount bool
	newID           func() string
}

func NewBudgetService(store repo.Store, keepStaleAmount bool) *BudgetService {
	return &BudgetService{store: store, keepStaleAmount: keepStaleAmount, newID: uuid.NewString}
}

func (s *BudgetService) owned(ctx context.Context, projects repo.Projects, projectID, ownerID string) (models.Project, error) {
	p, err := projects.GetByID(ctx, projectID)
	if err != nil {
		return models.Project{}, storeErr(err, apperr.NotFound("No project was found"))
	}
	if p.OwnerID != ownerID {
		return models.Project{}, apperr.Forbidden("You can only update your project")
	}
	return p, nil
}

func budgetInputErr(err error) error {
	var fe *models.BudgetFieldError
	if errors.As(err, &fe) {
		return &apperr.Error{
			Kind:    apperr.KindInvalidInput,
			Message: "Invalid data supplied",
			Fields:  []apperr.FieldError{{Field: fe.Field, Msg: fe.Error()}},
			Err:     err,
		}
	}
	return apperr.Wrap(err, apperr.KindInvalidInput, "Invalid data supplied")
}

func budgetDetails(p models.Project, extra map[string]any) map[string]any {
	d := map[string]any{"amount": p.Amount, "items": len(p.Budget)}
	for k, v := range extra {
		d[k] = v
	}
	return d
}

// SetBudget replaces the whole budget of a project.
func (s *BudgetService) SetBudget(ctx context.Context, projectID, ownerID string, items []models.BudgetItemInput) (models.Project, error) {
	var out models.Project
	err := s.store.WithinTx(ctx, func(r repo.Repos) error {
		p, err := s.owned(ctx, r.Projects, projectID, ownerID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return apperr.InvalidInput("Invalid data supplied")
		}
		lines, err := models.BuildLineItems(items, s.newID)
		if err != nil {
			return budgetInputErr(err)
		}
		p.ReplaceBudget(lines)
		if err := r.Projects.Update(ctx, &p); err != nil {
			return err
		}
		out = p
		return record(ctx, r.AuditLogs, models.EntityProject, p.ID, models.ActionBudgetSet, ownerID, budgetDetails(p, nil))
	})
	if err != nil {
		return models.Project{}, storeErr(err, nil)
	}
	metrics.BudgetMutationsTotal.WithLabelValues("set").Inc()
	return out, nil
}

// UpdateLineItem merges patch into one line item and returns the whole budget.
func (s *BudgetService) UpdateLineItem(ctx context.Context, projectID, ownerID, itemID string, patch models.LineItemPatch) ([]models.BudgetLineItem, error) {
	var budget []models.BudgetLineItem
	err := s.store.WithinTx(ctx, func(r repo.Repos) error {
		p, err := s.owned(ctx, r.Projects, projectID, ownerID)
		if err != nil {
			return err
		}
		found, err := p.PatchLineItem(itemID, patch)
		if err != nil {
			return budgetInputErr(err)
		}
		if !found {
			return apperr.NotFound("No budget item was found")
		}
		if err := r.Projects.Update(ctx, &p); err != nil {
			return err
		}
		budget = p.Budget
		return record(ctx, r.AuditLogs, models.EntityProject, p.ID, models.ActionBudgetItemUpdated, ownerID,
			budgetDetails(p, map[string]any{"item_id": itemID}))
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}
	metrics.BudgetMutationsTotal.WithLabelValues("update").Inc()
	return budget, nil
}

// RemoveLineItem deletes one line item and returns what is left. Removing an
// absent id succeeds and leaves the items as they were.
func (s *BudgetService) RemoveLineItem(ctx context.Context, projectID, ownerID, itemID string) ([]models.BudgetLineItem, error) {
	var budget []models.BudgetLineItem
	err := s.store.WithinTx(ctx, func(r repo.Repos) error {
		p, err := s.owned(ctx, r.Projects, projectID, ownerID)
		if err != nil {
			return err
		}
		removed := p.RemoveLineItem(itemID, s.keepStaleAmount)
		if err := r.Projects.Update(ctx, &p); err != nil {
			return err
		}
		budget = p.Budget
		return record(ctx, r.AuditLogs, models.EntityProject, p.ID, models.ActionBudgetItemRemoved, ownerID,
			budgetDetails(p, map[string]any{"item_id": itemID, "removed": removed}))
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}
	metrics.BudgetMutationsTotal.WithLabelValues("remove").Inc()
	return budget, nil
}
