package selection

import (
	"fmt"
	"strings"

	"marketsync/internal/config"
)

const (
	DefaultParamType  = "mid"
	DefaultMultiplier = "1"
)

// Criteria is the immutable parameter set of one selection run.
type Criteria struct {
	TopN              int     `json:"top_n"`
	MinReward         float64 `json:"min_reward"`
	MaxVolatility     float64 `json:"max_volatility"`
	MaxSpread         float64 `json:"max_spread"`
	MaxMinSize        float64 `json:"max_min_size"`
	DefaultParamType  string  `json:"default_param_type"`
	DefaultMultiplier string  `json:"default_multiplier"`
}

func DefaultCriteria() Criteria {
	return Criteria{
		TopN:              5,
		MinReward:         1.0,
		MaxVolatility:     15,
		MaxSpread:         0.15,
		MaxMinSize:        300,
		DefaultParamType:  DefaultParamType,
		DefaultMultiplier: DefaultMultiplier,
	}
}

// FromConfig copies the selection section; blank string defaults fall back
// to the built-in constants.
func FromConfig(cfg config.SelectionConfig) Criteria {
	c := Criteria{
		TopN:              cfg.TopN,
		MinReward:         cfg.MinReward,
		MaxVolatility:     cfg.MaxVolatility,
		MaxSpread:         cfg.MaxSpread,
		MaxMinSize:        cfg.MaxMinSize,
		DefaultParamType:  strings.TrimSpace(cfg.DefaultParamType),
		DefaultMultiplier: strings.TrimSpace(cfg.DefaultMultiplier),
	}
	if c.DefaultParamType == "" {
		c.DefaultParamType = DefaultParamType
	}
	if c.DefaultMultiplier == "" {
		c.DefaultMultiplier = DefaultMultiplier
	}
	return c
}

func (c Criteria) Validate() error {
	if c.TopN <= 0 {
		return fmt.Errorf("selection: top_n must be positive, got %d", c.TopN)
	}
	return nil
}
