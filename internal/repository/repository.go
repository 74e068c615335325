package repository

import (
	"context"
	"errors"
)

var (
	ErrWorksheetNotFound = errors.New("worksheet not found")
	ErrInvalidRowRange   = errors.New("invalid row range")
	ErrReadOnly          = errors.New("worksheet store opened read-only")
)

// WorksheetReader is the read half of the shared tabular store.
type WorksheetReader interface {
	// Values returns every row of the worksheet, header row first.
	Values(ctx context.Context, worksheet string) ([][]string, error)
	// Header returns row 1, or an empty slice for an empty worksheet.
	Header(ctx context.Context, worksheet string) ([]string, error)
}

// WorksheetWriter mutates worksheet rows. Row numbers are 1-based and
// inclusive; row 1 is the header.
type WorksheetWriter interface {
	DeleteRows(ctx context.Context, worksheet string, start, end int) error
	AppendRow(ctx context.Context, worksheet string, values []string) error
}

type WorksheetRepository interface {
	WorksheetReader
	WorksheetWriter
}

// AtomicReplacer is implemented by stores that can swap all data rows
// (everything below the header) in a single transaction.
type AtomicReplacer interface {
	ReplaceRows(ctx context.Context, worksheet string, rows [][]string) error
}

// WorksheetAdmin creates worksheets; used by import tooling and tests.
type WorksheetAdmin interface {
	EnsureWorksheet(ctx context.Context, worksheet string, header []string) error
	ListWorksheets(ctx context.Context) ([]string, error)
}

// ValidateRange checks a delete range against the current row count.
func ValidateRange(start, end, rowCount int) error {
	if start < 1 || end < start || end > rowCount {
		return ErrInvalidRowRange
	}
	return nil
}
