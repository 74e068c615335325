// Package source turns worksheet rows into ordered records.
package source

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"marketsync/internal/record"
	"marketsync/internal/repository"
	"marketsync/internal/sheet"
)

// MarketNumericColumns are the market fields compared numerically downstream.
var MarketNumericColumns = []string{
	"gm_reward_per_100",
	"volatility_sum",
	"best_bid",
	"best_ask",
	"min_size",
	"spread",
}

// MarketTextColumns are always kept verbatim, even when they look numeric.
var MarketTextColumns = []string{"token1", "token2"}

type Options struct {
	// Key, when set, drops rows whose key cell is blank and collapses
	// duplicate keys (first occurrence wins).
	Key            string
	NumericColumns []string
	TextColumns    []string
}

// MarketOptions is the option set for any worksheet keyed by question.
func MarketOptions() Options {
	return Options{
		Key:            record.QuestionField,
		NumericColumns: MarketNumericColumns,
		TextColumns:    MarketTextColumns,
	}
}

type Stats struct {
	Rows       int `json:"rows"`
	Blank      int `json:"blank"`
	Duplicates int `json:"duplicates"`
}

type Loader struct {
	Repo   repository.WorksheetReader
	Logger *zap.Logger
}

// Load fetches a worksheet and converts it. Store failures are reported as
// sheet.ErrSourceUnavailable.
func (l *Loader) Load(ctx context.Context, worksheet string, opts Options) (*record.Set, error) {
	if l == nil || l.Repo == nil {
		return nil, fmt.Errorf("%w: no worksheet store", sheet.ErrSourceUnavailable)
	}
	values, err := l.Repo.Values(ctx, worksheet)
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %w", sheet.ErrSourceUnavailable, worksheet, err)
	}
	set, stats, err := FromValues(values, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: load %q: %w", sheet.ErrSourceUnavailable, worksheet, err)
	}
	if l.Logger != nil {
		if stats.Duplicates > 0 {
			l.Logger.Warn("duplicate keys dropped",
				zap.String("worksheet", worksheet),
				zap.String("key", opts.Key),
				zap.Int("duplicates", stats.Duplicates),
			)
		}
		l.Logger.Info("worksheet loaded",
			zap.String("worksheet", worksheet),
			zap.Int("records", set.Len()),
			zap.Int("blank", stats.Blank),
		)
	}
	return set, nil
}

// FromValues builds records from raw rows, header first. Short rows are
// padded with empty cells; cells beyond the header are ignored, as are
// columns with a blank header.
func FromValues(values [][]string, opts Options) (*record.Set, Stats, error) {
	set := &record.Set{}
	if len(values) == 0 {
		return set, Stats{}, nil
	}

	header := values[0]
	columns := make([]string, 0, len(header))
	positions := make([]int, 0, len(header))
	seen := map[string]struct{}{}
	for i, raw := range header {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		columns = append(columns, name)
		positions = append(positions, i)
	}
	set.Columns = columns

	key := strings.TrimSpace(opts.Key)
	if key != "" {
		if _, ok := seen[key]; !ok {
			return nil, Stats{}, fmt.Errorf("missing %q column", key)
		}
	}

	numeric := toSet(opts.NumericColumns)
	text := toSet(opts.TextColumns)
	stats := Stats{Rows: len(values) - 1}
	keys := map[string]struct{}{}

	for _, row := range values[1:] {
		r := record.New()
		for i, col := range columns {
			raw := ""
			if positions[i] < len(row) {
				raw = row[positions[i]]
			}
			r.Set(col, convert(col, raw, numeric, text))
		}
		if key != "" {
			k := strings.TrimSpace(r.Get(key).String())
			if k == "" {
				stats.Blank++
				continue
			}
			if _, dup := keys[k]; dup {
				stats.Duplicates++
				continue
			}
			keys[k] = struct{}{}
		}
		set.Records = append(set.Records, r)
	}
	return set, stats, nil
}

func convert(col, raw string, numeric, text map[string]struct{}) record.Value {
	if _, ok := text[col]; ok {
		return record.Text(raw)
	}
	if _, ok := numeric[col]; ok {
		return record.ParseNumeric(raw)
	}
	return record.Cell(raw)
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, it := range items {
		out[it] = struct{}{}
	}
	return out
}
