package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketsync/internal/config"
	"marketsync/internal/logger"
	"marketsync/internal/record"
	"marketsync/internal/selection"
	"marketsync/internal/sheet"
	"marketsync/internal/sheetsync"
	"marketsync/internal/source"
)

type SelectionService struct {
	Opener   StoreOpener
	Sheets   config.SheetsConfig
	Criteria selection.Criteria
	Logger   *zap.Logger
	// TwoPhaseSync forces delete-then-append even on stores with ReplaceRows.
	TwoPhaseSync bool
	Now          func() time.Time

	mu sync.Mutex
}

type RunOptions struct {
	// DryRun ranks and materializes without touching the destination.
	DryRun bool
}

type RunResult struct {
	RunID       string               `json:"run_id"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	DryRun      bool                 `json:"dry_run"`
	Destination string               `json:"destination"`
	Criteria    selection.Criteria   `json:"criteria"`
	Pool        int                  `json:"pool"`
	Qualified   int                  `json:"qualified"`
	Requested   int                  `json:"requested"`
	Partial     bool                 `json:"partial"`
	Markets     []*record.Record     `json:"markets"`
	Sync        *sheetsync.Result    `json:"sync,omitempty"`
	Selected    []selection.Selected `json:"-"`
}

// Run loads the candidate pool, ranks it and replaces the destination
// worksheet. Only one run executes at a time; a concurrent call gets
// ErrRunInProgress. Failures are returned as *StageError.
func (s *SelectionService) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.mu.Unlock()

	res := &RunResult{
		RunID:       uuid.NewString(),
		StartedAt:   s.now(),
		DryRun:      opts.DryRun,
		Destination: s.Sheets.Selected,
		Criteria:    s.Criteria,
		Requested:   s.Criteria.TopN,
	}
	log := logger.WithRun(s.Logger, res.RunID)
	log.Info("market selection starting",
		zap.Int("top_n", s.Criteria.TopN),
		zap.Float64("min_reward", s.Criteria.MinReward),
		zap.Float64("max_volatility", s.Criteria.MaxVolatility),
		zap.Float64("max_spread", s.Criteria.MaxSpread),
		zap.Float64("max_min_size", s.Criteria.MaxMinSize),
		zap.Bool("dry_run", opts.DryRun),
	)

	if err := s.Criteria.Validate(); err != nil {
		return res, stageErr(StageSelect, err)
	}
	if s.Opener == nil {
		return res, stageErr(StageConnect, errNotConfigured)
	}

	var (
		handle *sheet.Spreadsheet
		err    error
	)
	if opts.DryRun {
		handle, err = s.Opener.OpenForRead(ctx)
	} else {
		handle, err = s.Opener.Open(ctx, false)
	}
	if err != nil {
		return res, stageErr(StageConnect, err)
	}
	defer handle.Close()
	log.Info("connected to worksheet store", zap.Bool("read_only", handle.ReadOnly))

	loader := &source.Loader{Repo: handle.Repo, Logger: log}
	pool, err := loader.Load(ctx, s.Sheets.Volatility, source.MarketOptions())
	if err != nil {
		return res, stageErr(StageLoad, err)
	}
	res.Pool = pool.Len()

	ranked, err := selection.Rank(pool.Records, s.Criteria)
	res.Qualified = ranked.Qualified
	if err != nil {
		return res, stageErr(StageSelect, err)
	}
	res.Partial = ranked.Partial
	log.Info("markets filtered", zap.Int("pool", ranked.Pool), zap.Int("qualified", ranked.Qualified))
	if ranked.Partial {
		log.Warn("fewer markets available than requested",
			zap.Int("available", len(ranked.Markets)),
			zap.Int("requested", ranked.Requested),
		)
	}

	res.Selected = selection.Materialize(ranked.Markets, s.Criteria)
	res.Markets = selection.Records(res.Selected)

	if opts.DryRun {
		res.FinishedAt = s.now()
		log.Info("dry run complete, destination untouched", zap.Int("selected", len(res.Markets)))
		return res, nil
	}

	writer := &sheetsync.Writer{Repo: handle.Repo, Logger: log, TwoPhase: s.TwoPhaseSync}
	synced, err := writer.Replace(ctx, s.Sheets.Selected, res.Markets)
	res.Sync = &synced
	if err != nil {
		return res, stageErr(StageSync, err)
	}
	res.FinishedAt = s.now()
	log.Info("market selection complete",
		zap.Int("selected", synced.Written),
		zap.Int("cleared", synced.Cleared),
		zap.Bool("atomic", synced.Atomic),
	)
	return res, nil
}

func (s *SelectionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// WriteText prints the market summary followed by the outcome line.
func (r *RunResult) WriteText(w io.Writer) error {
	if len(r.Selected) > 0 {
		if err := selection.WriteSummary(w, fmt.Sprintf("Top %d Markets", len(r.Selected)), r.Selected); err != nil {
			return err
		}
	}
	if r.Partial {
		if _, err := fmt.Fprintf(w, "\nWarning: only %d markets available (requested %d)\n", len(r.Selected), r.Requested); err != nil {
			return err
		}
	}
	var err error
	switch {
	case r.DryRun:
		_, err = fmt.Fprintf(w, "\nDry run: %s left unchanged.\n", r.Destination)
	case r.Sync != nil:
		_, err = fmt.Fprintf(w, "\n%d markets are now in %s.\n", r.Sync.Written, r.Destination)
	}
	return err
}
