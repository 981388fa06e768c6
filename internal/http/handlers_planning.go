package http

import (
	"net/http"

	"expensebuddy/internal/core"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
)

type budgetRequest struct {
	MonthlyLimit core.Money `json:"monthlyLimit"`
}

type fundsRequest struct {
	Amount core.Money `json:"amount"`
}

type goalResponse struct {
	Goal  core.Goal   `json:"goal"`
	Alert *core.Alert `json:"alert,omitempty"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets := s.ledger.Snapshot().Budgets
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	category, err := pathParam(r, "category")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	b, err := s.ledger.SetBudgetLimit(r.Context(), category, req.MonthlyLimit)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRecalculateBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.RecalculateBudgets(r.Context())
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if budgets == nil {
		budgets = []core.Budget{}
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals := s.ledger.Snapshot().Goals
	if goals == nil {
		goals = []core.Goal{}
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	var d ledger.GoalDraft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	g, err := s.ledger.AddGoal(r.Context(), d)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, goalResponse{Goal: g})
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var p ledger.GoalPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	g, alert, err := s.ledger.UpdateGoal(r.Context(), id, p)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.metrics.observeAlert(alert)
	writeJSON(w, http.StatusOK, goalResponse{Goal: g, Alert: alert})
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	if err := s.ledger.DeleteGoal(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddFunds(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var req fundsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	g, alert, err := s.ledger.AddFundsToGoal(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.metrics.observeAlert(alert)
	writeJSON(w, http.StatusOK, goalResponse{Goal: g, Alert: alert})
}
