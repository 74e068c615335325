package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"marketsync/internal/repository"
)

// Store is an in-process worksheet store used for dry runs and tests.
type Store struct {
	mu     sync.RWMutex
	sheets map[string][][]string
}

func NewStore() *Store {
	return &Store{sheets: map[string][][]string{}}
}

var (
	_ repository.WorksheetRepository = (*Store)(nil)
	_ repository.AtomicReplacer      = (*Store)(nil)
	_ repository.WorksheetAdmin      = (*Store)(nil)
)

// Seed replaces a whole worksheet, header row included.
func (s *Store) Seed(worksheet string, rows [][]string) {
	s.mu.Lock()
	s.sheets[strings.TrimSpace(worksheet)] = cloneRows(rows)
	s.mu.Unlock()
}

func (s *Store) Values(ctx context.Context, worksheet string) ([][]string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, ok := s.sheets[strings.TrimSpace(worksheet)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", repository.ErrWorksheetNotFound, worksheet)
	}
	return cloneRows(rows), nil
}

func (s *Store) Header(ctx context.Context, worksheet string) ([]string, error) {
	rows, err := s.Values(ctx, worksheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []string{}, nil
	}
	return rows[0], nil
}

func (s *Store) DeleteRows(ctx context.Context, worksheet string, start, end int) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(worksheet)
	rows, ok := s.sheets[name]
	if !ok {
		return fmt.Errorf("%w: %q", repository.ErrWorksheetNotFound, worksheet)
	}
	if err := repository.ValidateRange(start, end, len(rows)); err != nil {
		return fmt.Errorf("delete rows %d..%d of %q (%d rows): %w", start, end, worksheet, len(rows), err)
	}
	out := make([][]string, 0, len(rows)-(end-start+1))
	out = append(out, rows[:start-1]...)
	out = append(out, rows[end:]...)
	s.sheets[name] = out
	return nil
}

func (s *Store) AppendRow(ctx context.Context, worksheet string, values []string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(worksheet)
	rows, ok := s.sheets[name]
	if !ok {
		return fmt.Errorf("%w: %q", repository.ErrWorksheetNotFound, worksheet)
	}
	s.sheets[name] = append(rows, cloneRow(values))
	return nil
}

func (s *Store) ReplaceRows(ctx context.Context, worksheet string, rows [][]string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	name := strings.TrimSpace(worksheet)
	existing, ok := s.sheets[name]
	if !ok {
		return fmt.Errorf("%w: %q", repository.ErrWorksheetNotFound, worksheet)
	}
	out := make([][]string, 0, len(rows)+1)
	if len(existing) > 0 {
		out = append(out, existing[0])
	}
	out = append(out, cloneRows(rows)...)
	s.sheets[name] = out
	return nil
}

func (s *Store) EnsureWorksheet(ctx context.Context, worksheet string, header []string) error {
	_ = ctx
	name := strings.TrimSpace(worksheet)
	if name == "" {
		return fmt.Errorf("ensure worksheet: empty name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.sheets[name]
	if len(header) > 0 {
		if len(rows) == 0 {
			rows = [][]string{cloneRow(header)}
		} else {
			rows[0] = cloneRow(header)
		}
	}
	if rows == nil {
		rows = [][]string{}
	}
	s.sheets[name] = rows
	return nil
}

func (s *Store) ListWorksheets(ctx context.Context) ([]string, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.sheets))
	for name := range s.sheets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = cloneRow(r)
	}
	return out
}

func cloneRow(r []string) []string {
	out := make([]string, len(r))
	copy(out, r)
	return out
}
