package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

type BudgetLineItem struct {
	ID        string  `json:"id"`
	ItemName  string  `json:"item_name"`
	UnitCost  float64 `json:"unit_cost"`
	Quantity  int64   `json:"quantity"`
	LineTotal float64 `json:"line_total"`
	Comment   string  `json:"comment,omitempty"`
}

func (li *BudgetLineItem) recompute() {
	li.LineTotal = li.UnitCost * float64(li.Quantity)
}

// Numeric is a request value that may arrive as a JSON number or a numeric string.
type Numeric string

var ErrNotNumeric = errors.New("not a number")

func (n *Numeric) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
		return nil
	}
	*n = Numeric(b)
	return nil
}

func (n Numeric) Present() bool { return n != "" }

func (n Numeric) Float() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	return f, nil
}

// Int truncates toward zero, so "2.9" is 2.
func (n Numeric) Int() (int64, error) {
	f, err := n.Float()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// BudgetItemInput is one element of a full budget replacement.
type BudgetItemInput struct {
	ItemName string  `json:"item_name"`
	UnitCost Numeric `json:"unit_cost"`
	Quantity Numeric `json:"quantity"`
	Comment  string  `json:"comment"`
}

// LineItemPatch is a partial update. Absent, empty and zero values mean "no change",
// so a field cannot be set to zero or cleared through a patch.
type LineItemPatch struct {
	ItemName string  `json:"item_name"`
	UnitCost Numeric `json:"unit_cost"`
	Quantity Numeric `json:"quantity"`
	Comment  string  `json:"comment"`
}

// BudgetFieldError points at the offending item and field of a budget input.
type BudgetFieldError struct {
	Index int
	Field string
}

func (e *BudgetFieldError) Error() string {
	return "budget[" + strconv.Itoa(e.Index) + "]." + e.Field + " must be numeric"
}

// BuildLineItems converts inputs into line items with fresh ids and computed totals.
func BuildLineItems(in []BudgetItemInput, newID func() string) ([]BudgetLineItem, error) {
	items := make([]BudgetLineItem, 0, len(in))
	for i, it := range in {
		q, err := it.Quantity.Int()
		if err != nil {
			return nil, &BudgetFieldError{Index: i, Field: "quantity"}
		}
		c, err := it.UnitCost.Float()
		if err != nil {
			return nil, &BudgetFieldError{Index: i, Field: "unit_cost"}
		}
		li := BudgetLineItem{
			ID:       newID(),
			ItemName: strings.TrimSpace(it.ItemName),
			UnitCost: c,
			Quantity: q,
			Comment:  strings.TrimSpace(it.Comment),
		}
		li.recompute()
		items = append(items, li)
	}
	return items, nil
}

// SumLineTotals is the derived project amount for items.
func SumLineTotals(items []BudgetLineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.LineTotal
	}
	return total
}

// Apply merges p into li and recomputes the line total. Invalid numbers leave li untouched.
func (p LineItemPatch) Apply(li *BudgetLineItem) error {
	next := *li
	if s := strings.TrimSpace(p.ItemName); s != "" {
		next.ItemName = s
	}
	if p.UnitCost.Present() {
		c, err := p.UnitCost.Float()
		if err != nil {
			return &BudgetFieldError{Field: "unit_cost"}
		}
		if c != 0 {
			next.UnitCost = c
		}
	}
	if p.Quantity.Present() {
		q, err := p.Quantity.Int()
		if err != nil {
			return &BudgetFieldError{Field: "quantity"}
		}
		if q != 0 {
			next.Quantity = q
		}
	}
	if s := strings.TrimSpace(p.Comment); s != "" {
		next.Comment = s
	}
	next.recompute()
	*li = next
	return nil
}
