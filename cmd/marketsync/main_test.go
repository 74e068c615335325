package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketsync/internal/config"
	"marketsync/internal/sheet"
)

const poolCSV = `question,token1,token2,gm_reward_per_100,volatility_sum,spread,min_size,best_bid,best_ask
Will A happen?,0101,0102,2,3,0.05,300,0.45,0.55
Will B happen?,0201,0202,4,1,0.02,100,0.30,0.32
Too volatile,0401,0402,9,20,0.01,10,0.5,0.5
`

const selectedCSV = `question,token1,token2,max_size,trade_size,param_type,multiplier
Old market,1,2,10,10,mid,1
`

const allCSV = `question,neg_risk
Old market,FALSE
`

const paramsCSV = `type,param,value
mid,stop_loss_threshold,-7
,take_profit_threshold,2.5
`

type harness struct {
	app    *app
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := config.Load("", true)
	require.NoError(t, err)
	cfg.Store.Driver = sheet.DriverMemory
	cfg.Sheets = config.SheetsConfig{
		Selected:        "Selected Markets",
		All:             "All Markets",
		Volatility:      "Volatility Markets",
		Hyperparameters: "Hyperparameters",
	}
	cfg.Selection.TopN = 5
	cfg.Selection.MinReward = 1
	cfg.Selection.MaxVolatility = 15
	cfg.Selection.MaxSpread = 0.15
	cfg.Selection.MaxMinSize = 300

	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.app = newApp(h.stdout, h.stderr)
	h.app.cfg = &cfg
	h.app.logger = zap.NewNop()
	return h
}

func (h *harness) run(stdin string, args ...string) int {
	h.stdout.Reset()
	h.stderr.Reset()
	h.app.stdin = strings.NewReader(stdin)
	return h.app.execute(args)
}

func (h *harness) seed(t *testing.T) {
	t.Helper()
	for name, body := range map[string]string{
		"Volatility Markets": poolCSV,
		"Selected Markets":   selectedCSV,
		"All Markets":        allCSV,
		"Hyperparameters":    paramsCSV,
	} {
		require.Equal(t, 0, h.run(body, "sheet", "import", name, "-"), h.stderr.String())
	}
}

func TestSelect_WritesDestination(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	code := h.run("", "select")
	require.Equal(t, 0, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Top 2 Markets")
	assert.Contains(t, h.stdout.String(), "2 markets are now in Selected Markets.")

	require.Equal(t, 0, h.run("", "sheet", "export", "Selected Markets"))
	assert.Equal(t, "question,token1,token2,max_size,trade_size,param_type,multiplier\n"+
		"Will B happen?,0201,0202,100,100,mid,1\n"+
		"Will A happen?,0101,0102,300,300,mid,1\n", h.stdout.String())
}

func TestSelect_DryRunJSON(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	require.Equal(t, 0, h.run("", "select", "--dry-run", "-o", "json", "--top-n", "1"), h.stderr.String())
	var res struct {
		DryRun  bool             `json:"dry_run"`
		Partial bool             `json:"partial"`
		Markets []map[string]any `json:"markets"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &res))
	assert.True(t, res.DryRun)
	assert.False(t, res.Partial)
	require.Len(t, res.Markets, 1)
	assert.Equal(t, "Will B happen?", res.Markets[0]["question"])

	require.Equal(t, 0, h.run("", "sheet", "export", "Selected Markets"))
	assert.Contains(t, h.stdout.String(), "Old market")
}

func TestSelect_EmptySelectionExitsNonZero(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	code := h.run("", "select", "--min-reward", "100")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "select stage failed")
	assert.Contains(t, h.stderr.String(), "Consider relaxing the configuration parameters.")

	require.Equal(t, 0, h.run("", "sheet", "export", "Selected Markets"))
	assert.Contains(t, h.stdout.String(), "Old market")
}

func TestSelect_MissingPoolExitsNonZero(t *testing.T) {
	h := newHarness(t)
	code := h.run("", "select")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "load stage failed")
}

func TestParamsAndMarkets(t *testing.T) {
	h := newHarness(t)
	h.seed(t)

	require.Equal(t, 0, h.run("", "params"), h.stderr.String())
	assert.JSONEq(t, `{"mid":{"stop_loss_threshold":-7,"take_profit_threshold":2.5}}`, h.stdout.String())

	require.Equal(t, 0, h.run("", "params", "mid"), h.stderr.String())
	assert.JSONEq(t, `{"stop_loss_threshold":-7,"take_profit_threshold":2.5}`, h.stdout.String())

	assert.Equal(t, 1, h.run("", "params", "aggressive"))
	assert.Contains(t, h.stderr.String(), "unknown hyperparameter section")

	require.Equal(t, 0, h.run("", "markets"), h.stderr.String())
	var set struct {
		Columns []string         `json:"columns"`
		Records []map[string]any `json:"records"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &set))
	require.Len(t, set.Records, 1)
	assert.Equal(t, "Old market", set.Records[0]["question"])
	assert.Equal(t, "FALSE", set.Records[0]["neg_risk"])
	assert.Contains(t, set.Columns, "neg_risk")
}

func TestSheetList(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	require.Equal(t, 0, h.run("", "sheet", "list"))
	var names []string
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &names))
	assert.Equal(t, []string{"All Markets", "Hyperparameters", "Selected Markets", "Volatility Markets"}, names)
}

func TestSelect_WriteWithoutCredentials(t *testing.T) {
	h := newHarness(t)
	h.app.cfg.Store.Driver = sheet.DriverPostgres
	h.app.cfg.Store.DSN = ""
	code := h.run("", "select")
	assert.Equal(t, 1, code)
	assert.Contains(t, h.stderr.String(), "connect stage failed")
	assert.Contains(t, h.stderr.String(), "MS_STORE_DSN")
}

func TestReplaceData_ReadOnlyStoreFails(t *testing.T) {
	h := newHarness(t)
	h.seed(t)
	ro := sheet.ReadOnly{Repo: h.app.memory}
	err := replaceData(context.Background(), ro, "Selected Markets", [][]string{{"x"}})
	assert.Error(t, err)
}
