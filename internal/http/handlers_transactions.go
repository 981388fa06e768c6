package http

import (
	"net/http"

	"expensebuddy/internal/core"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
)

type transactionResponse struct {
	Transaction core.Transaction `json:"transaction"`
	Alert       *core.Alert      `json:"alert,omitempty"`
}

type suggestResponse struct {
	Category string `json:"category"`
	Found    bool   `json:"found"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Snapshot())
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	txs := s.ledger.Transactions(f)
	if txs == nil {
		txs = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	var d ledger.TransactionDraft
	if err := decodeJSON(r, &d); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	tx, alert, err := s.ledger.AddTransaction(r.Context(), d)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.metrics.observeAlert(alert)
	writeJSON(w, http.StatusCreated, transactionResponse{Transaction: tx, Alert: alert})
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	var p ledger.TransactionPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	tx, alert, err := s.ledger.UpdateTransaction(r.Context(), id, p)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	s.metrics.observeAlert(alert)
	writeJSON(w, http.StatusOK, transactionResponse{Transaction: tx, Alert: alert})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	tx, err := s.ledger.DeleteTransaction(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{Transaction: tx})
}

func (s *Server) handleSuggestCategory(w http.ResponseWriter, r *http.Request) {
	name, ok := s.ledger.SuggestCategory(r.URL.Query().Get("note"))
	writeJSON(w, http.StatusOK, suggestResponse{Category: name, Found: ok})
}
