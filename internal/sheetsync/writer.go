// Package sheetsync replaces the data rows of a destination worksheet.
package sheetsync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"marketsync/internal/record"
	"marketsync/internal/repository"
	"marketsync/internal/selection"
)

var (
	ErrSyncWrite   = errors.New("sync write failed")
	ErrEmptyHeader = errors.New("destination worksheet has no header row")
)

type Writer struct {
	Repo   repository.WorksheetRepository
	Logger *zap.Logger
	// TwoPhase disables the atomic path even when the store supports it.
	TwoPhase bool
}

type Result struct {
	Header  []string `json:"header"`
	Cleared int      `json:"cleared"`
	Written int      `json:"written"`
	Atomic  bool     `json:"atomic"`
}

// Replace writes records below the header in the given order, one row per
// record, cells taken in header-column order. Without an atomic store a
// failure after the clear leaves the worksheet with the rows written so far;
// the returned Result says how far it got.
func (w *Writer) Replace(ctx context.Context, worksheet string, records []*record.Record) (Result, error) {
	var res Result
	if w == nil || w.Repo == nil {
		return res, fmt.Errorf("%w: no worksheet store", ErrSyncWrite)
	}
	log := w.logger().With(zap.String("worksheet", worksheet))

	header, err := w.Repo.Header(ctx, worksheet)
	if err != nil {
		return res, fmt.Errorf("%w: read header of %q: %w", ErrSyncWrite, worksheet, err)
	}
	if len(header) == 0 {
		return res, fmt.Errorf("%w: %q: %w", ErrSyncWrite, worksheet, ErrEmptyHeader)
	}
	res.Header = header

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Cells(header))
	}

	if atomic, ok := w.Repo.(repository.AtomicReplacer); ok && !w.TwoPhase {
		existing, err := w.dataRows(ctx, worksheet)
		if err != nil {
			return res, err
		}
		if err := atomic.ReplaceRows(ctx, worksheet, rows); err != nil {
			return res, fmt.Errorf("%w: replace rows of %q: %w", ErrSyncWrite, worksheet, err)
		}
		res.Atomic = true
		res.Cleared = existing
		res.Written = len(rows)
		log.Info("worksheet replaced",
			zap.Int("cleared", res.Cleared),
			zap.Int("written", res.Written),
		)
		return res, nil
	}

	cleared, err := w.clear(ctx, worksheet, log)
	if err != nil {
		return res, err
	}
	res.Cleared = cleared

	for i, row := range rows {
		if err := w.Repo.AppendRow(ctx, worksheet, row); err != nil {
			return res, fmt.Errorf("%w: append row %d of %d to %q: %w", ErrSyncWrite, i+1, len(rows), worksheet, err)
		}
		res.Written++
		log.Info("added market",
			zap.Int("n", i+1),
			zap.String("question", selection.Truncate(records[i].Question(), 60)),
		)
	}
	return res, nil
}

func (w *Writer) clear(ctx context.Context, worksheet string, log *zap.Logger) (int, error) {
	existing, err := w.dataRows(ctx, worksheet)
	if err != nil {
		return 0, err
	}
	if existing == 0 {
		log.Info("no existing markets to clear")
		return 0, nil
	}
	if err := w.Repo.DeleteRows(ctx, worksheet, 2, existing+1); err != nil {
		return 0, fmt.Errorf("%w: clear %d rows of %q: %w", ErrSyncWrite, existing, worksheet, err)
	}
	log.Info("cleared existing markets", zap.Int("cleared", existing))
	return existing, nil
}

func (w *Writer) dataRows(ctx context.Context, worksheet string) (int, error) {
	values, err := w.Repo.Values(ctx, worksheet)
	if err != nil {
		return 0, fmt.Errorf("%w: read %q: %w", ErrSyncWrite, worksheet, err)
	}
	if len(values) <= 1 {
		return 0, nil
	}
	return len(values) - 1, nil
}

func (w *Writer) logger() *zap.Logger {
	if w.Logger == nil {
		return zap.NewNop()
	}
	return w.Logger
}
