package ledger

import (
	"context"
	"strings"

	"expensebuddy/internal/core"
)

type GoalDraft struct {
	Title         string     `json:"title"`
	TargetAmount  core.Money `json:"targetAmount"`
	CurrentAmount core.Money `json:"currentAmount"`
	Deadline      core.Date  `json:"deadline"`
}

type GoalPatch struct {
	Title         *string     `json:"title,omitempty"`
	TargetAmount  *core.Money `json:"targetAmount,omitempty"`
	CurrentAmount *core.Money `json:"currentAmount,omitempty"`
	Deadline      *core.Date  `json:"deadline,omitempty"`
}

// AddGoal stores a new savings goal at the head of the list.
func (e *Engine) AddGoal(ctx context.Context, d GoalDraft) (core.Goal, error) {
	var out core.Goal
	err := e.mutate(ctx, "add goal", func(s *core.Snapshot) error {
		g := core.Goal{
			ID:            e.newID(),
			Title:         strings.TrimSpace(d.Title),
			TargetAmount:  d.TargetAmount,
			CurrentAmount: d.CurrentAmount,
			Deadline:      d.Deadline,
			CreatedAt:     e.now(),
		}
		if err := g.Validate(); err != nil {
			return validationf("%v", err)
		}
		s.Goals = append([]core.Goal{g}, s.Goals...)
		out = g
		return nil
	})
	return out, err
}

// UpdateGoal replaces the non-nil fields of goal id. Reaching the target
// through the update raises a success alert.
func (e *Engine) UpdateGoal(ctx context.Context, id string, p GoalPatch) (core.Goal, *core.Alert, error) {
	var (
		out   core.Goal
		alert *core.Alert
	)
	err := e.mutate(ctx, "update goal", func(s *core.Snapshot) error {
		idx := findGoal(s, id)
		if idx < 0 {
			return notFound("goal", id)
		}
		old := s.Goals[idx]
		g := old
		if p.Title != nil {
			g.Title = strings.TrimSpace(*p.Title)
		}
		if p.TargetAmount != nil {
			g.TargetAmount = *p.TargetAmount
		}
		if p.CurrentAmount != nil {
			g.CurrentAmount = *p.CurrentAmount
		}
		if p.Deadline != nil {
			g.Deadline = *p.Deadline
		}
		if err := g.Validate(); err != nil {
			return validationf("%v", err)
		}
		s.Goals[idx] = g
		alert = e.checkGoalReached(s, old, g)
		out = g
		return nil
	})
	return out, alert, err
}

func (e *Engine) DeleteGoal(ctx context.Context, id string) error {
	return e.mutate(ctx, "delete goal", func(s *core.Snapshot) error {
		idx := findGoal(s, id)
		if idx < 0 {
			return notFound("goal", id)
		}
		s.Goals = append(s.Goals[:idx], s.Goals[idx+1:]...)
		return nil
	})
}

// AddFundsToGoal increments the saved amount of goal id.
func (e *Engine) AddFundsToGoal(ctx context.Context, id string, amount core.Money) (core.Goal, *core.Alert, error) {
	var (
		out   core.Goal
		alert *core.Alert
	)
	err := e.mutate(ctx, "add funds to goal", func(s *core.Snapshot) error {
		if err := amount.Validate(); err != nil {
			return validationf("amount must be positive")
		}
		idx := findGoal(s, id)
		if idx < 0 {
			return notFound("goal", id)
		}
		old := s.Goals[idx]
		s.Goals[idx].CurrentAmount = old.CurrentAmount.Add(amount)
		out = s.Goals[idx]
		alert = e.checkGoalReached(s, old, out)
		return nil
	})
	return out, alert, err
}

func (e *Engine) checkGoalReached(s *core.Snapshot, before, after core.Goal) *core.Alert {
	if before.Reached() || !after.Reached() {
		return nil
	}
	return e.raiseAlert(s, core.SeveritySuccess, "Congratulations! You've reached your goal: "+after.Title)
}

func findGoal(s *core.Snapshot, id string) int {
	for i, g := range s.Goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}
