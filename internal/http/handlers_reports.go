package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"expensebuddy/internal/core"
	"expensebuddy/internal/export"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
)

type summaryResponse struct {
	Totals            core.Totals           `json:"totals"`
	Averages          core.Averages         `json:"averages"`
	ByCategory        []core.CategoryAmount `json:"byCategory"`
	CurrentMonthSpend []core.CategoryAmount `json:"currentMonthSpend"`
	Count             int                   `json:"count"`
}

type monthlyResponse struct {
	Year   int                `json:"year"`
	Months []core.MonthTotals `json:"months"`
}

// serveCached writes the report stored under key, rendering it on a miss.
// Keys carry the write generation, so a render that overlaps a write is
// stored under a key no later request asks for.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, key string, render func(core.Snapshot) (cachedReport, error)) {
	key = strconv.FormatUint(s.reportGen.Load(), 10) + "|" + key
	rep, ok := s.reports.Get(key)
	if !ok {
		var err error
		rep, err = render(s.ledger.Snapshot())
		if err != nil {
			writeError(w, r, applog.OpExport, err)
			return
		}
		s.reports.Set(key, rep)
	}
	if rep.filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.filename))
	}
	w.Header().Set("Content-Type", rep.contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.body)
}

func jsonReport(v any) (cachedReport, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return cachedReport{}, err
	}
	return cachedReport{contentType: "application/json", body: append(body, '\n')}, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	now := s.now()
	s.serveCached(w, r, "summary@"+core.PeriodOf(now)+"?"+filterKey(f), func(snap core.Snapshot) (cachedReport, error) {
		txs := snap.Transactions
		byCat := ledger.ByCategory(txs, f)
		if byCat == nil {
			byCat = []core.CategoryAmount{}
		}
		spend := ledger.MonthSpend(txs, now)
		if spend == nil {
			spend = []core.CategoryAmount{}
		}
		return jsonReport(summaryResponse{
			Totals:            ledger.ComputeTotals(txs, f),
			Averages:          ledger.ComputeAverages(txs, f),
			ByCategory:        byCat,
			CurrentMonthSpend: spend,
			Count:             len(ledger.FilterTransactions(txs, f)),
		})
	})
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	year, err := parseYear(r, s.now().Year())
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	s.serveCached(w, r, "monthly?year="+strconv.Itoa(year), func(snap core.Snapshot) (cachedReport, error) {
		return jsonReport(monthlyResponse{Year: year, Months: ledger.MonthlyTotals(snap.Transactions, year)})
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, r, applog.OpExport, fmt.Errorf("%w: %v", errBadQuery, err))
		return
	}
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	s.serveCached(w, r, "export:"+string(format)+"?"+filterKey(f), func(snap core.Snapshot) (cachedReport, error) {
		var buf bytes.Buffer
		rep := export.Report{
			Transactions: ledger.FilterTransactions(snap.Transactions, f),
			Totals:       ledger.ComputeTotals(snap.Transactions, f),
			Period:       periodLabel(f),
		}
		if err := s.formatter.Write(&buf, format, rep); err != nil {
			return cachedReport{}, err
		}
		applog.FromContext(r.Context()).WithComponent(applog.ComponentExport).InfoContext(r.Context(), "Report rendered",
			applog.FieldOperation, applog.OpExport,
			"format", string(format),
			"rows", len(rep.Transactions))
		return cachedReport{contentType: format.ContentType(), filename: format.Filename(), body: buf.Bytes()}, nil
	})
}

func periodLabel(f ledger.Filter) string {
	switch {
	case f.From.IsEmpty() && f.To.IsEmpty():
		return "All time"
	case f.To.IsEmpty():
		return "Since " + f.From.String()
	case f.From.IsEmpty():
		return "Until " + f.To.String()
	default:
		return f.From.String() + " to " + f.To.String()
	}
}
