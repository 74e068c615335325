package consolidate

import (
	"testing"

	"marketsync/internal/record"
)

func num(t *testing.T, h Hyperparameters, section, param string) float64 {
	t.Helper()
	f, ok := h.Float(section, param)
	if !ok {
		t.Fatalf("%s.%s not numeric: %#v", section, param, h[section][param])
	}
	return f
}

func TestParseHyperparameters_CarriesSection(t *testing.T) {
	rows := []ParamRow{
		{Type: "A", Param: "x", Value: record.Text("1")},
		{Type: "", Param: "y", Value: record.Text("2")},
		{Type: "B", Param: "z", Value: record.Text("3")},
	}
	h := ParseHyperparameters(rows)
	if len(h) != 2 || len(h["A"]) != 2 || len(h["B"]) != 1 {
		t.Fatalf("got=%v", h)
	}
	if num(t, h, "A", "x") != 1.0 || num(t, h, "A", "y") != 2.0 || num(t, h, "B", "z") != 3.0 {
		t.Fatalf("got=%v", h)
	}
}

func TestParseHyperparameters_DropsRowsBeforeFirstSection(t *testing.T) {
	h := ParseHyperparameters([]ParamRow{{Type: "", Param: "x", Value: record.Text("1")}})
	if len(h) != 0 {
		t.Fatalf("got=%v want empty", h)
	}
}

func TestParseHyperparameters_BlankParamKeptUnderEmptyKey(t *testing.T) {
	h := ParseHyperparameters([]ParamRow{
		{Type: "A", Param: "", Value: record.Text("7")},
		{Type: "B", Param: "", Value: record.Text("8")},
		{Type: "", Param: "", Value: record.Text("9")},
	})
	if len(h) != 2 || len(h["A"]) != 1 || len(h["B"]) != 1 {
		t.Fatalf("got=%v", h)
	}
	if num(t, h, "A", "") != 7 || num(t, h, "B", "") != 9 {
		t.Fatalf("got=%v", h)
	}
}

func TestParseHyperparameters_WhitespaceAndPlaceholderTypes(t *testing.T) {
	rows := []ParamRow{
		{Type: " mid ", Param: "spread", Value: record.Text("0.02")},
		{Type: "   ", Param: "stop_loss", Value: record.Text("-5")},
		{Type: "nan", Param: "label", Value: record.Text("fast")},
		{Type: "NaN", Param: "take_profit", Value: record.Number(3)},
	}
	h := ParseHyperparameters(rows)
	if len(h) != 1 {
		t.Fatalf("sections=%v want only mid", h.Sections())
	}
	if num(t, h, "mid", "stop_loss") != -5 {
		t.Fatalf("stop_loss=%v", h["mid"]["stop_loss"])
	}
	if s, ok := h["mid"]["label"].AsText(); !ok || s != "fast" {
		t.Fatalf("label=%#v want text fast", h["mid"]["label"])
	}
	if num(t, h, "mid", "take_profit") != 3 {
		t.Fatalf("take_profit=%v", h["mid"]["take_profit"])
	}
}

func TestParseHyperparameters_LastWriteWins(t *testing.T) {
	rows := []ParamRow{
		{Type: "A", Param: "x", Value: record.Text("1")},
		{Type: "B", Param: "x", Value: record.Text("5")},
		{Type: "A", Param: "x", Value: record.Text("2")},
	}
	h := ParseHyperparameters(rows)
	if num(t, h, "A", "x") != 2 || num(t, h, "B", "x") != 5 {
		t.Fatalf("got=%v", h)
	}
}

func TestParseHyperparameters_NonNumericKeepsText(t *testing.T) {
	rows := []ParamRow{
		{Type: "A", Param: "v", Value: record.Text("1.2.3")},
		{Type: "", Param: "w", Value: record.Text("1e5")},
	}
	h := ParseHyperparameters(rows)
	for _, p := range []string{"v", "w"} {
		if h["A"][p].Kind() != record.KindText {
			t.Fatalf("%s kind=%s want=text", p, h["A"][p].Kind())
		}
	}
}

func TestParamRows(t *testing.T) {
	set := &record.Set{
		Columns: []string{"type", "param", "value"},
		Records: []*record.Record{
			record.FromPairs("type", "A", "param", "x", "value", "1"),
			record.FromPairs("type", nil, "param", "y", "value", nil),
		},
	}
	rows := ParamRows(set)
	if len(rows) != 2 || rows[1].Type != "" || rows[1].Param != "y" {
		t.Fatalf("rows=%+v", rows)
	}
	h := ParseHyperparameters(rows)
	if s, ok := h["A"]["y"].AsText(); !ok || s != "" {
		t.Fatalf("blank value should stay empty text, got %#v", h["A"]["y"])
	}
}

func marketSet(columns []string, records ...*record.Record) *record.Set {
	return &record.Set{Columns: columns, Records: records}
}

func TestMerge_InnerJoinAndColumnUnion(t *testing.T) {
	primary := marketSet([]string{"question", "max_size", "param_type"},
		record.FromPairs("question", "Q1", "max_size", "100", "param_type", "mid"),
		record.FromPairs("question", "Q2", "max_size", "200", "param_type", "mid"),
		record.FromPairs("question", "Q3", "max_size", "300", "param_type", "mid"),
	)
	secondary := marketSet([]string{"question", "best_bid", "max_size", "token1"},
		record.FromPairs("question", "Q3", "best_bid", 0.3, "max_size", "999", "token1", "t3"),
		record.FromPairs("question", "Q1", "best_bid", 0.1, "max_size", "999", "token1", "t1"),
		record.FromPairs("question", "Q9", "best_bid", 0.9, "max_size", "999", "token1", "t9"),
	)
	merged := Merge(primary, secondary)

	wantCols := []string{"question", "max_size", "param_type", "best_bid", "token1"}
	if len(merged.Columns) != len(wantCols) {
		t.Fatalf("columns=%v want=%v", merged.Columns, wantCols)
	}
	for i := range wantCols {
		if merged.Columns[i] != wantCols[i] {
			t.Fatalf("columns=%v want=%v", merged.Columns, wantCols)
		}
	}
	if merged.Len() != 2 {
		t.Fatalf("records=%d want=2", merged.Len())
	}
	if merged.Records[0].Question() != "Q1" || merged.Records[1].Question() != "Q3" {
		t.Fatalf("order should follow primary")
	}
	for _, r := range merged.Records {
		if r.Get("max_size").String() == "999" {
			t.Fatalf("secondary value overwrote primary for %s", r.Question())
		}
		if r.Len() != len(wantCols) {
			t.Fatalf("fields=%v", r.Fields())
		}
	}
	if f, _ := merged.Records[1].Number("best_bid"); f != 0.3 {
		t.Fatalf("best_bid=%v want=0.3", f)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	p := marketSet([]string{"question"}, record.FromPairs("question", "Q1"))
	s := marketSet([]string{"question", "extra"}, record.FromPairs("question", "Q1", "extra", "e"))
	_ = Merge(p, s)
	if p.Records[0].Has("extra") {
		t.Fatalf("primary record mutated")
	}
}
