// Package memory is an in-memory SummaryWriter for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"envelope/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows []core.MonthSummary
}

func New() *Store {
	return &Store{}
}

// UpsertSummary stores the summary, replacing any existing row for the same
// period, and returns a synthetic row reference.
func (s *Store) UpsertSummary(_ context.Context, summary core.MonthSummary) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.rows {
		if existing.Year == summary.Year && existing.Month == summary.Month {
			s.rows[i] = summary
			return fmt.Sprintf("mem:%d", i+1), nil
		}
	}
	s.rows = append(s.rows, summary)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// Rows returns a copy of the stored summaries, in insertion order.
func (s *Store) Rows() []core.MonthSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.MonthSummary(nil), s.rows...)
}
