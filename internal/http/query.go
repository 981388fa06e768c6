package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"expensebuddy/internal/core"
	"expensebuddy/internal/ledger"
)

// errBadQuery marks malformed query or path parameters.
var errBadQuery = errors.New("invalid query parameter")

// parseFilter reads type (or kind), category, from and to.
func parseFilter(q url.Values) (ledger.Filter, error) {
	var f ledger.Filter

	kind := strings.TrimSpace(q.Get("type"))
	if kind == "" {
		kind = strings.TrimSpace(q.Get("kind"))
	}
	if kind != "" {
		k := core.TransactionKind(strings.ToLower(kind))
		if err := k.Validate(); err != nil {
			return f, fmt.Errorf("%w: type %q", errBadQuery, kind)
		}
		f.Kind = k
	}
	f.Category = strings.TrimSpace(q.Get("category"))

	for _, p := range []struct {
		name string
		dst  *core.Date
	}{{"from", &f.From}, {"to", &f.To}} {
		v := strings.TrimSpace(q.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return f, fmt.Errorf("%w: %s: %v", errBadQuery, p.name, err)
		}
		*p.dst = d
	}
	if !f.From.IsEmpty() && !f.To.IsEmpty() && f.To.Before(f.From.Time) {
		return f, fmt.Errorf("%w: to is before from", errBadQuery)
	}
	return f, nil
}

// filterKey is a stable cache key fragment for f.
func filterKey(f ledger.Filter) string {
	return fmt.Sprintf("type=%s&category=%s&from=%s&to=%s",
		f.Kind, strings.ToLower(f.Category), f.From, f.To)
}

// parseYear reads ?year=, defaulting to the current year.
func parseYear(r *http.Request, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("year"))
	if v == "" {
		return fallback, nil
	}
	y, err := strconv.Atoi(v)
	if err != nil || y < 1 || y > 9999 {
		return 0, fmt.Errorf("%w: year %q", errBadQuery, v)
	}
	return y, nil
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	v, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", errBadQuery, name)
	}
	return v, nil
}
