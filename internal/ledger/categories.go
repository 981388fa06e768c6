package ledger

import (
	"context"
	"strings"

	"expensebuddy/internal/core"
)

// AddCategory appends a category. Names are unique ignoring case.
func (e *Engine) AddCategory(ctx context.Context, name, color string, appliesTo core.CategoryScope) (core.Category, error) {
	var out core.Category
	err := e.mutate(ctx, "add category", func(s *core.Snapshot) error {
		c := core.Category{
			ID:        e.newID(),
			Name:      strings.TrimSpace(name),
			Color:     color,
			AppliesTo: appliesTo,
		}
		if err := c.Validate(); err != nil {
			return validationf("%v", err)
		}
		if existing, ok := findCategory(s, c.Name); ok {
			return validationf("category %q already exists", existing.Name)
		}
		s.Categories = append(s.Categories, c)
		out = c
		return nil
	})
	return out, err
}

// DeleteCategory removes category id. Transactions and budgets that name it
// are left in place and keep reporting under the old name.
func (e *Engine) DeleteCategory(ctx context.Context, id string) (core.Category, error) {
	var out core.Category
	err := e.mutate(ctx, "delete category", func(s *core.Snapshot) error {
		for i, c := range s.Categories {
			if c.ID == id {
				out = c
				s.Categories = append(s.Categories[:i], s.Categories[i+1:]...)
				return nil
			}
		}
		return notFound("category", id)
	})
	return out, err
}
