// Package memory keeps the ledger snapshot in process memory.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"expensebuddy/internal/core"
)

type Store struct {
	mu    sync.Mutex
	snap  core.Snapshot
	found bool
	saves int
}

// New returns an empty store. A nil or empty seed leaves category defaults to the engine.
func New(seed []core.Category) *Store {
	s := &Store{}
	if len(seed) > 0 {
		s.snap.Categories = append([]core.Category(nil), seed...)
		s.found = true
	}
	return s
}

// NewFromFiles seeds categories from base/seed_categories.txt when present.
// Each line is "Name,#RRGGBB,scope"; blank lines and # comments are skipped.
func NewFromFiles(base string) (*Store, error) {
	cats, err := readCategories(filepath.Join(base, "seed_categories.txt"))
	if err != nil {
		return nil, err
	}
	return New(cats), nil
}

func (s *Store) Load(_ context.Context) (core.Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), s.found, nil
}

func (s *Store) Save(ctx context.Context, snap core.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	s.found = true
	s.saves++
	return nil
}

// Saves reports how many snapshots were written.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func readCategories(path string) ([]core.Category, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	var (
		out  []core.Category
		seen = map[string]struct{}{}
		n    int
	)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%s:%d: expected name,color,scope", path, n)
		}
		c := core.Category{
			ID:        fmt.Sprintf("seed-%d", len(out)+1),
			Name:      strings.TrimSpace(parts[0]),
			Color:     strings.TrimSpace(parts[1]),
			AppliesTo: core.CategoryScope(strings.ToLower(strings.TrimSpace(parts[2]))),
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, n, err)
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return out, nil
}
