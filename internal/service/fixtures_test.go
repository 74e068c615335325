package service

import (
	"marketsync/internal/config"
	"marketsync/internal/repository/memory"
	"marketsync/internal/sheet"
)

var (
	poolHeader     = []string{"question", "token1", "token2", "gm_reward_per_100", "volatility_sum", "spread", "min_size", "best_bid", "best_ask"}
	selectedHeader = []string{"question", "token1", "token2", "max_size", "trade_size", "param_type", "multiplier", "comments"}
	testSheets     = config.SheetsConfig{
		Selected:        "Selected Markets",
		All:             "All Markets",
		Volatility:      "Volatility Markets",
		Hyperparameters: "Hyperparameters",
	}
)

// seedStore loads a small but complete workbook into a memory store.
func seedStore() *memory.Store {
	store := memory.NewStore()
	store.Seed("Volatility Markets", [][]string{
		poolHeader,
		{"Will A happen?", "0101", "0102", "2", "3", "0.05", "300", "0.45", "0.55"},
		{"Will B happen?", "0201", "0202", "4", "1", "0.02", "100", "0.30", "0.32"},
		{"Will C happen?", "0301", "0302", "1.5", "0", "0.10", "50.9", "0.10", "0.20"},
		{"Too volatile", "0401", "0402", "9", "20", "0.01", "10", "0.5", "0.5"},
		{"Too big", "0501", "0502", "9", "1", "0.01", "301", "0.5", "0.5"},
		{"", "", "", "", "", "", "", "", ""},
		{"No spread", "0601", "0602", "9", "1", "", "10", "0.5", "0.5"},
	})
	store.Seed("Selected Markets", [][]string{
		selectedHeader,
		{"Old market", "1", "2", "10", "10", "mid", "1", "keep me?"},
	})
	store.Seed("All Markets", [][]string{
		{"question", "token1", "neg_risk", "rewards_daily_rate", "best_bid"},
		{"Old market", "999", "FALSE", "25", "0.41"},
		{"Unselected", "3", "TRUE", "5", "0.2"},
	})
	store.Seed("Hyperparameters", [][]string{
		{"type", "param", "value"},
		{"", "orphan", "1"},
		{"mid", "stop_loss_threshold", "-7"},
		{"", "take_profit_threshold", "2.5"},
		{"", "volatility_threshold", "n/a"},
		{"aggressive", "spread_threshold", ".1"},
	})
	return store
}

func memoryOpener(store *memory.Store) *sheet.Opener {
	return &sheet.Opener{Config: config.StoreConfig{Driver: sheet.DriverMemory}, Memory: store}
}
