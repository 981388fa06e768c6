package http

import (
	"context"
	"net/http"

	"expensebuddy/internal/core"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
)

type categoryRequest struct {
	Name      string             `json:"name"`
	Color     string             `json:"color"`
	AppliesTo core.CategoryScope `json:"type"`
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats := s.ledger.Snapshot().Categories
	if cats == nil {
		cats = []core.Category{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	c, err := s.ledger.AddCategory(r.Context(), req.Name, req.Color, req.AppliesTo)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	c, err := s.ledger.DeleteCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.ledger.Snapshot().Alerts
	if alerts == nil {
		alerts = []core.Alert{}
	}
	if r.URL.Query().Get("unread") == "true" {
		unread := alerts[:0]
		for _, a := range alerts {
			if !a.Read {
				unread = append(unread, a)
			}
		}
		alerts = unread
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	s.alertCommand(w, r, s.ledger.MarkAlertRead)
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	s.alertCommand(w, r, s.ledger.DismissAlert)
}

func (s *Server) alertCommand(w http.ResponseWriter, r *http.Request, cmd func(ctx context.Context, id string) error) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if err := cmd(r.Context(), id); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.MarkAllAlertsRead(r.Context()); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u := s.ledger.Snapshot().User
	if u == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no user signed in", Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleSetUser(w http.ResponseWriter, r *http.Request) {
	var u core.User
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	out, err := s.ledger.SetUser(r.Context(), u)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var p ledger.UserPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	out, err := s.ledger.UpdateUser(r.Context(), p)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.Logout(r.Context()); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
