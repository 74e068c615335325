package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketsync/internal/cache"
	"marketsync/internal/config"
	"marketsync/internal/consolidate"
	"marketsync/internal/logger"
	"marketsync/internal/record"
	"marketsync/internal/source"
)

// Snapshot is the consolidated view a trading process consumes.
type Snapshot struct {
	RunID           string                      `json:"run_id"`
	GeneratedAt     time.Time                   `json:"generated_at"`
	ReadOnly        bool                        `json:"read_only"`
	Markets         *record.Set                 `json:"markets"`
	Hyperparameters consolidate.Hyperparameters `json:"hyperparameters"`
}

type ConsolidationService struct {
	Opener StoreOpener
	Sheets config.SheetsConfig
	Cache  cache.Store
	// CacheTTL bounds how long a published snapshot is served.
	CacheTTL time.Duration
	Logger   *zap.Logger
	Now      func() time.Time
}

// Build reads Selected Markets (primary) and All Markets (secondary), joins
// them and parses the Hyperparameters worksheet. A store without write
// credentials is opened read-only.
func (s *ConsolidationService) Build(ctx context.Context) (*Snapshot, error) {
	if s == nil || s.Opener == nil {
		return nil, stageErr(StageConnect, errNotConfigured)
	}
	runID := uuid.NewString()
	log := logger.WithRun(s.Logger, runID)

	handle, err := s.Opener.OpenForRead(ctx)
	if err != nil {
		return nil, stageErr(StageConnect, err)
	}
	defer handle.Close()

	loader := &source.Loader{Repo: handle.Repo, Logger: log}
	selected, err := loader.Load(ctx, s.Sheets.Selected, source.MarketOptions())
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	all, err := loader.Load(ctx, s.Sheets.All, source.MarketOptions())
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	markets := consolidate.Merge(selected, all)

	paramSet, err := loader.Load(ctx, s.Sheets.Hyperparameters, source.Options{})
	if err != nil {
		return nil, stageErr(StageLoad, err)
	}
	params := consolidate.ParseHyperparameters(consolidate.ParamRows(paramSet))

	log.Info("consolidation complete",
		zap.Bool("read_only", handle.ReadOnly),
		zap.Int("selected", selected.Len()),
		zap.Int("all", all.Len()),
		zap.Int("merged", markets.Len()),
		zap.Int("sections", len(params)),
	)
	return &Snapshot{
		RunID:           runID,
		GeneratedAt:     s.now(),
		ReadOnly:        handle.ReadOnly,
		Markets:         markets,
		Hyperparameters: params,
	}, nil
}

// Refresh builds a snapshot and publishes it to the cache.
func (s *ConsolidationService) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := s.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Publish(ctx, snap); err != nil && s.Logger != nil {
		s.Logger.Warn("snapshot publish failed", zap.String("run_id", snap.RunID), zap.Error(err))
	}
	return snap, nil
}

func (s *ConsolidationService) Publish(ctx context.Context, snap *Snapshot) error {
	if s == nil || s.Cache == nil || snap == nil {
		return nil
	}
	return cache.PublishJSON(ctx, s.Cache, snap.RunID, snap.GeneratedAt, snap, s.CacheTTL)
}

// Latest returns the cached snapshot, building and publishing one on a miss.
func (s *ConsolidationService) Latest(ctx context.Context) (*Snapshot, error) {
	if s != nil && s.Cache != nil {
		var snap Snapshot
		_, found, err := cache.LatestJSON(ctx, s.Cache, &snap)
		if err != nil && s.Logger != nil {
			s.Logger.Warn("snapshot cache read failed", zap.Error(err))
		}
		if found {
			return &snap, nil
		}
	}
	return s.Refresh(ctx)
}

func (s *ConsolidationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
