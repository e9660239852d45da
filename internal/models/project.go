package models

import (
	"regexp"
	"strings"
	"time"
)

type ProjectImage struct {
	URL string `json:"url"`
	ID  string `json:"id"`
}

type Project struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner"`
	Title       string           `json:"title"`
	Slug        string           `json:"slug"`
	Caption     string           `json:"caption"`
	Description string           `json:"description"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	Image       ProjectImage     `json:"projectImage"`
	Budget      []BudgetLineItem `json:"budget"`
	Amount      float64          `json:"amount"`
	Approved    bool             `json:"approved"`
	Completed   bool             `json:"completed"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProjectFilter narrows project queries. Empty fields are ignored.
type ProjectFilter struct {
	ID      string
	Slug    string
	OwnerID string
}

func (f ProjectFilter) Match(p Project) bool {
	if f.ID != "" && f.ID != p.ID {
		return false
	}
	if f.Slug != "" && f.Slug != p.Slug {
		return false
	}
	if f.OwnerID != "" && f.OwnerID != p.OwnerID {
		return false
	}
	return true
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify lowercases and trims s and replaces each run of whitespace with "-".
func Slugify(s string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(strings.ToLower(s)), "-")
}

// ReplaceBudget swaps in a whole new budget, recomputes amount and withdraws approval.
func (p *Project) ReplaceBudget(items []BudgetLineItem) {
	p.Budget = items
	p.Amount = SumLineTotals(items)
	p.Approved = false
}

// PatchLineItem applies patch to the item with id and re-sums the amount over the whole
// budget. It reports false, leaving p untouched, when no item matches.
func (p *Project) PatchLineItem(id string, patch LineItemPatch) (bool, error) {
	for i := range p.Budget {
		if p.Budget[i].ID != id {
			continue
		}
		if err := patch.Apply(&p.Budget[i]); err != nil {
			return false, err
		}
		p.Amount = SumLineTotals(p.Budget)
		p.Approved = false
		return true, nil
	}
	return false, nil
}

// RemoveLineItem drops the item with id; an absent id leaves the budget as it was.
// With keepStaleAmount the amount is not re-summed.
func (p *Project) RemoveLineItem(id string, keepStaleAmount bool) bool {
	kept := make([]BudgetLineItem, 0, len(p.Budget))
	removed := false
	for _, li := range p.Budget {
		if li.ID == id {
			removed = true
			continue
		}
		kept = append(kept, li)
	}
	p.Budget = kept
	if !keepStaleAmount {
		p.Amount = SumLineTotals(kept)
	}
	p.Approved = false
	return removed
}
