package ledger

import (
	"context"

	"expensebuddy/internal/core"
)

func (e *Engine) raiseAlert(s *core.Snapshot, sev core.Severity, msg string) *core.Alert {
	a := core.Alert{
		ID:        e.newID(),
		Message:   msg,
		Severity:  sev,
		CreatedAt: e.now(),
	}
	s.Alerts = append([]core.Alert{a}, s.Alerts...)
	return &a
}

// MarkAlertRead flags alert id as read.
func (e *Engine) MarkAlertRead(ctx context.Context, id string) error {
	return e.mutate(ctx, "mark alert read", func(s *core.Snapshot) error {
		idx := findAlert(s, id)
		if idx < 0 {
			return notFound("alert", id)
		}
		s.Alerts[idx].Read = true
		return nil
	})
}

// MarkAllAlertsRead flags every alert as read.
func (e *Engine) MarkAllAlertsRead(ctx context.Context) error {
	return e.mutate(ctx, "mark all alerts read", func(s *core.Snapshot) error {
		for i := range s.Alerts {
			s.Alerts[i].Read = true
		}
		return nil
	})
}

// DismissAlert removes alert id from the log.
func (e *Engine) DismissAlert(ctx context.Context, id string) error {
	return e.mutate(ctx, "dismiss alert", func(s *core.Snapshot) error {
		idx := findAlert(s, id)
		if idx < 0 {
			return notFound("alert", id)
		}
		s.Alerts = append(s.Alerts[:idx], s.Alerts[idx+1:]...)
		return nil
	})
}

func findAlert(s *core.Snapshot, id string) int {
	for i, a := range s.Alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}
