package memory

import (
	"context"
	"sync"

	ports "keuangan/internal/sheets"
)

// Store is an in-process TableWriter used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu     sync.Mutex
	rows   [][]string
	writes int
}

var _ ports.TableWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ReplaceTable keeps a copy of rows.
func (s *Store) ReplaceTable(_ context.Context, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = cloneRows(rows)
	s.writes++
	return nil
}

// Rows returns the last written table.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.rows)
}

// Writes returns how many times the table was replaced.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func cloneRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}
