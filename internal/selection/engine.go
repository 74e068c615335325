package selection

import (
	"errors"
	"sort"

	"marketsync/internal/record"
)

const (
	FieldReward     = "gm_reward_per_100"
	FieldVolatility = "volatility_sum"
	FieldSpread     = "spread"
	FieldMinSize    = "min_size"
	FieldBestBid    = "best_bid"
	FieldBestAsk    = "best_ask"
	FieldScore      = "score"
)

var ErrEmptySelection = errors.New("no markets meet the filtering criteria")

// Candidate is a pool record with its derived score. Index is the position
// in the input and breaks score ties.
type Candidate struct {
	Record *record.Record
	Score  float64
	Index  int
}

type Result struct {
	Markets   []Candidate `json:"-"`
	Pool      int         `json:"pool"`
	Qualified int         `json:"qualified"`
	Requested int         `json:"requested"`
	// Partial is set when fewer than Requested markets qualified.
	Partial bool `json:"partial"`
}

// Score rewards reward per unit of volatility; the +1 keeps it finite near
// zero volatility.
func Score(reward, volatility float64) float64 {
	return reward / (volatility + 1) * 100
}

// Qualifies applies every threshold. A missing value in any compared field
// excludes the record.
func Qualifies(r *record.Record, c Criteria) bool {
	reward, ok := r.Number(FieldReward)
	if !ok || !(reward >= c.MinReward) {
		return false
	}
	volatility, ok := r.Number(FieldVolatility)
	if !ok || !(volatility < c.MaxVolatility) {
		return false
	}
	spread, ok := r.Number(FieldSpread)
	if !ok || !(spread < c.MaxSpread) {
		return false
	}
	minSize, ok := r.Number(FieldMinSize)
	if !ok || !(minSize <= c.MaxMinSize) {
		return false
	}
	return true
}

// Rank filters the pool, orders qualifying records by score (stable) and
// keeps the top c.TopN. It returns ErrEmptySelection when nothing qualifies.
func Rank(pool []*record.Record, c Criteria) (Result, error) {
	if err := c.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{Pool: len(pool), Requested: c.TopN}
	qualified := make([]Candidate, 0, len(pool))
	for i, r := range pool {
		if !Qualifies(r, c) {
			continue
		}
		reward, _ := r.Number(FieldReward)
		volatility, _ := r.Number(FieldVolatility)
		qualified = append(qualified, Candidate{Record: r, Score: Score(reward, volatility), Index: i})
	}
	res.Qualified = len(qualified)
	if len(qualified) == 0 {
		return res, ErrEmptySelection
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		return qualified[i].Score > qualified[j].Score
	})

	if len(qualified) > c.TopN {
		qualified = qualified[:c.TopN]
	}
	res.Markets = qualified
	res.Partial = len(qualified) < c.TopN
	return res, nil
}
