package ledger

import (
	"context"
	"strings"

	"expensebuddy/internal/core"
)

type UserPatch struct {
	FullName             *string     `json:"fullName,omitempty"`
	Email                *string     `json:"email,omitempty"`
	Theme                *core.Theme `json:"theme,omitempty"`
	NotificationsEnabled *bool       `json:"notificationsEnabled,omitempty"`
}

// SetUser signs the single user in, replacing any previous profile.
func (e *Engine) SetUser(ctx context.Context, u core.User) (core.User, error) {
	err := e.mutate(ctx, "set user", func(s *core.Snapshot) error {
		if u.ID == "" {
			u.ID = e.newID()
		}
		if u.Theme == "" {
			u.Theme = core.ThemeLight
		}
		u.FullName = strings.TrimSpace(u.FullName)
		u.Email = strings.TrimSpace(u.Email)
		if err := u.Validate(); err != nil {
			return validationf("%v", err)
		}
		s.User = &u
		return nil
	})
	if err != nil {
		return core.User{}, err
	}
	return u, nil
}

// UpdateUser edits the signed-in profile.
func (e *Engine) UpdateUser(ctx context.Context, p UserPatch) (core.User, error) {
	var out core.User
	err := e.mutate(ctx, "update user", func(s *core.Snapshot) error {
		if s.User == nil {
			return notFound("user", "current")
		}
		u := *s.User
		if p.FullName != nil {
			u.FullName = strings.TrimSpace(*p.FullName)
		}
		if p.Email != nil {
			u.Email = strings.TrimSpace(*p.Email)
		}
		if p.Theme != nil {
			u.Theme = *p.Theme
		}
		if p.NotificationsEnabled != nil {
			u.NotificationsEnabled = *p.NotificationsEnabled
		}
		if err := u.Validate(); err != nil {
			return validationf("%v", err)
		}
		s.User = &u
		out = u
		return nil
	})
	return out, err
}

// Logout forgets the user. Ledger data is kept.
func (e *Engine) Logout(ctx context.Context) error {
	return e.mutate(ctx, "logout", func(s *core.Snapshot) error {
		s.User = nil
		return nil
	})
}

// NotificationsEnabled reports whether alerts should be announced. With no
// user signed in alerts are always announced.
func (e *Engine) NotificationsEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.User == nil || e.state.User.NotificationsEnabled
}
