package ledger

import "strings"

// keywordHints maps a lower-case category name to note fragments that usually
// belong to it.
var keywordHints = []struct {
	category string
	keywords []string
}{
	{"food", []string{"swiggy", "zomato", "restaurant"}},
	{"transport", []string{"uber", "ola", "bus", "metro"}},
	{"shopping", []string{"amazon", "flipkart"}},
}

// SuggestCategory guesses a category from free-text notes. It only returns
// names of categories that exist in the ledger.
func (e *Engine) SuggestCategory(note string) (string, bool) {
	n := strings.ToLower(note)
	if strings.TrimSpace(n) == "" {
		return "", false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, h := range keywordHints {
		cat, ok := findCategory(&e.state, h.category)
		if !ok {
			continue
		}
		for _, kw := range h.keywords {
			if strings.Contains(n, kw) {
				return cat.Name, true
			}
		}
	}
	return "", false
}
