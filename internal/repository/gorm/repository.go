package gormrepository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"marketsync/internal/models"
	"marketsync/internal/repository"
)

// Store keeps worksheets in Postgres, one row per sheet row with the cells
// stored as a jsonb array.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var (
	_ repository.WorksheetRepository = (*Store)(nil)
	_ repository.AtomicReplacer      = (*Store)(nil)
	_ repository.WorksheetAdmin      = (*Store)(nil)
)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) Values(ctx context.Context, worksheet string) ([][]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ws, err := findWorksheet(s.db.WithContext(ctx), worksheet, false)
	if err != nil {
		return nil, err
	}
	var rows []models.WorksheetRow
	if err := s.db.WithContext(ctx).
		Model(&models.WorksheetRow{}).
		Where("worksheet_id = ?", ws.ID).
		Order("row_number asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		cells, err := decodeCells(row.Cells)
		if err != nil {
			return nil, fmt.Errorf("worksheet %q row %d: %w", worksheet, row.RowNumber, err)
		}
		out = append(out, cells)
	}
	return out, nil
}

func (s *Store) Header(ctx context.Context, worksheet string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	ws, err := findWorksheet(s.db.WithContext(ctx), worksheet, false)
	if err != nil {
		return nil, err
	}
	var row models.WorksheetRow
	err = s.db.WithContext(ctx).
		Model(&models.WorksheetRow{}).
		Where("worksheet_id = ? AND row_number = 1", ws.ID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCells(row.Cells)
}

func (s *Store) DeleteRows(ctx context.Context, worksheet string, start, end int) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		ws, err := findWorksheet(tx, worksheet, true)
		if err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.WorksheetRow{}).
			Where("worksheet_id = ?", ws.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if err := repository.ValidateRange(start, end, int(count)); err != nil {
			return fmt.Errorf("delete rows %d..%d of %q (%d rows): %w", start, end, worksheet, count, err)
		}
		if err := tx.Where("worksheet_id = ?", ws.ID).
			Where("row_number BETWEEN ? AND ?", start, end).
			Delete(&models.WorksheetRow{}).Error; err != nil {
			return err
		}
		shift := end - start + 1
		return tx.Model(&models.WorksheetRow{}).
			Where("worksheet_id = ?", ws.ID).
			Where("row_number > ?", end).
			UpdateColumn("row_number", gorm.Expr("row_number - ?", shift)).Error
	})
}

func (s *Store) AppendRow(ctx context.Context, worksheet string, values []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		ws, err := findWorksheet(tx, worksheet, true)
		if err != nil {
			return err
		}
		var last int
		if err := tx.Model(&models.WorksheetRow{}).
			Where("worksheet_id = ?", ws.ID).
			Select("COALESCE(MAX(row_number), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		row, err := newRow(ws.ID, last+1, values, time.Now().UTC())
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

// ReplaceRows swaps every data row below the header in one transaction.
func (s *Store) ReplaceRows(ctx context.Context, worksheet string, rows [][]string) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now().UTC()
	return s.InTx(ctx, func(tx *gorm.DB) error {
		ws, err := findWorksheet(tx, worksheet, true)
		if err != nil {
			return err
		}
		if err := tx.Where("worksheet_id = ?", ws.ID).
			Where("row_number >= 2").
			Delete(&models.WorksheetRow{}).Error; err != nil {
			return err
		}
		items := make([]models.WorksheetRow, 0, len(rows))
		for i, values := range rows {
			row, err := newRow(ws.ID, i+2, values, now)
			if err != nil {
				return err
			}
			items = append(items, row)
		}
		return createInBatches(tx, items, 200)
	})
}

func (s *Store) EnsureWorksheet(ctx context.Context, worksheet string, header []string) error {
	if s == nil || s.db == nil {
		return nil
	}
	name := strings.TrimSpace(worksheet)
	if name == "" {
		return fmt.Errorf("ensure worksheet: empty name")
	}
	now := time.Now().UTC()
	return s.InTx(ctx, func(tx *gorm.DB) error {
		item := models.Worksheet{Name: name, CreatedAt: now, UpdatedAt: now}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).Create(&item).Error; err != nil {
			return err
		}
		ws, err := findWorksheet(tx, name, true)
		if err != nil {
			return err
		}
		if len(header) == 0 {
			return nil
		}
		raw, err := json.Marshal(header)
		if err != nil {
			return err
		}
		res := tx.Model(&models.WorksheetRow{}).
			Where("worksheet_id = ? AND row_number = 1", ws.ID).
			Updates(map[string]any{"cells": datatypes.JSON(raw), "updated_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		row, err := newRow(ws.ID, 1, header, now)
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
}

func (s *Store) ListWorksheets(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var names []string
	if err := s.db.WithContext(ctx).
		Model(&models.Worksheet{}).
		Order("name asc").
		Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	return names, nil
}

func findWorksheet(db *gorm.DB, name string, lock bool) (*models.Worksheet, error) {
	name = strings.TrimSpace(name)
	query := db.Model(&models.Worksheet{}).Where("name = ?", name)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var ws models.Worksheet
	err := query.First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", repository.ErrWorksheetNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func newRow(worksheetID uint64, rowNumber int, values []string, now time.Time) (models.WorksheetRow, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return models.WorksheetRow{}, err
	}
	return models.WorksheetRow{
		WorksheetID: worksheetID,
		RowNumber:   rowNumber,
		Cells:       datatypes.JSON(raw),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func decodeCells(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var cells []string
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}
