package selection

import (
	"github.com/shopspring/decimal"

	"marketsync/internal/record"
)

const (
	FieldMaxSize    = "max_size"
	FieldTradeSize  = "trade_size"
	FieldParamType  = "param_type"
	FieldMultiplier = "multiplier"
)

// Selected is a ranked market plus the fields the destination sheet needs.
type Selected struct {
	Candidate
	MaxSize    string
	TradeSize  string
	ParamType  string
	Multiplier string
}

// Materialize derives the sync-only fields for each market independently.
func Materialize(markets []Candidate, c Criteria) []Selected {
	out := make([]Selected, 0, len(markets))
	for _, m := range markets {
		size := FloorString(m.Record.Get(FieldMinSize))
		out = append(out, Selected{
			Candidate:  m,
			MaxSize:    size,
			TradeSize:  size,
			ParamType:  c.DefaultParamType,
			Multiplier: c.DefaultMultiplier,
		})
	}
	return out
}

// FloorString renders floor(v) as an integer string, "" when v is missing.
func FloorString(v record.Value) string {
	f, ok := v.AsNumber()
	if !ok {
		return ""
	}
	return decimal.NewFromFloat(f).Floor().String()
}

// Record returns a copy of the market with score and derived fields set.
func (s Selected) Record() *record.Record {
	r := s.Candidate.Record.Clone()
	r.Set(FieldScore, record.Number(s.Score))
	r.Set(FieldMaxSize, record.Text(s.MaxSize))
	r.Set(FieldTradeSize, record.Text(s.TradeSize))
	r.Set(FieldParamType, record.Text(s.ParamType))
	r.Set(FieldMultiplier, record.Text(s.Multiplier))
	return r
}

func Records(selected []Selected) []*record.Record {
	out := make([]*record.Record, 0, len(selected))
	for _, s := range selected {
		out = append(out, s.Record())
	}
	return out
}
