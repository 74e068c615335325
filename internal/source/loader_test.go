package source

import (
	"context"
	"errors"
	"testing"

	"marketsync/internal/record"
	"marketsync/internal/repository/memory"
	"marketsync/internal/sheet"
)

func TestFromValues_FiltersBlankQuestions(t *testing.T) {
	values := [][]string{
		{"question", "spread", "token1"},
		{"Q1", "0.05", "0001"},
		{"", "0.02", "2"},
		{"   ", "0.02", "3"},
		{"Q2", "bad", "4"},
	}
	set, stats, err := FromValues(values, MarketOptions())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("records=%d want=2", set.Len())
	}
	if stats.Blank != 2 {
		t.Fatalf("blank=%d want=2", stats.Blank)
	}
	if set.Records[0].Question() != "Q1" || set.Records[1].Question() != "Q2" {
		t.Fatalf("order not preserved")
	}
	if f, ok := set.Records[0].Number("spread"); !ok || f != 0.05 {
		t.Fatalf("spread=%v,%v want=0.05", f, ok)
	}
	if !set.Records[1].Get("spread").IsEmpty() {
		t.Fatalf("unparseable numeric cell should be missing")
	}
	if s, ok := set.Records[0].Get("token1").AsText(); !ok || s != "0001" {
		t.Fatalf("token1=%q,%v want text 0001", s, ok)
	}
}

func TestFromValues_NonFiniteCellsAreMissing(t *testing.T) {
	values := [][]string{
		{"question", "spread", "min_size"},
		{"Q1", "inf", "-inf"},
		{"Q2", "0x1p4", "Infinity"},
	}
	set, _, err := FromValues(values, MarketOptions())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	for _, r := range set.Records {
		for _, col := range []string{"spread", "min_size"} {
			if !r.Get(col).IsEmpty() {
				t.Fatalf("%s %s=%v want missing", r.Question(), col, r.Get(col))
			}
		}
	}
}

func TestFromValues_DuplicateQuestionKeepsFirst(t *testing.T) {
	values := [][]string{
		{"question", "min_size"},
		{"Q1", "10"},
		{"Q1", "20"},
		{"Q2", "30"},
	}
	set, stats, err := FromValues(values, MarketOptions())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if set.Len() != 2 || stats.Duplicates != 1 {
		t.Fatalf("records=%d duplicates=%d want=2/1", set.Len(), stats.Duplicates)
	}
	if f, _ := set.Records[0].Number("min_size"); f != 10 {
		t.Fatalf("min_size=%v want=10 (first occurrence)", f)
	}
}

func TestFromValues_ShortRowsAndBlankHeaders(t *testing.T) {
	values := [][]string{
		{"question", "", "min_size", "question"},
		{"Q1"},
	}
	set, _, err := FromValues(values, MarketOptions())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(set.Columns) != 2 || set.Columns[1] != "min_size" {
		t.Fatalf("columns=%v", set.Columns)
	}
	if !set.Records[0].Get("min_size").IsEmpty() {
		t.Fatalf("padded cell should be empty")
	}
}

func TestFromValues_MissingKeyColumn(t *testing.T) {
	_, _, err := FromValues([][]string{{"title"}, {"x"}}, MarketOptions())
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestFromValues_NoKeyKeepsEveryRow(t *testing.T) {
	values := [][]string{{"type", "param", "value"}, {"", "x", "1"}, {"", "", ""}}
	set, _, err := FromValues(values, Options{})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("records=%d want=2", set.Len())
	}
}

func TestLoader_MissingWorksheet(t *testing.T) {
	l := &Loader{Repo: memory.NewStore()}
	_, err := l.Load(context.Background(), "Volatility Markets", MarketOptions())
	if !errors.Is(err, sheet.ErrSourceUnavailable) {
		t.Fatalf("err=%v want ErrSourceUnavailable", err)
	}
}

func TestLoader_Load(t *testing.T) {
	store := memory.NewStore()
	store.Seed("All Markets", [][]string{{"question", "best_bid"}, {"Q", "0.4"}})
	l := &Loader{Repo: store}
	set, err := l.Load(context.Background(), "All Markets", MarketOptions())
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if got := set.Records[0].Get("best_bid"); got.Kind() != record.KindNumber {
		t.Fatalf("best_bid kind=%s want=number", got.Kind())
	}
}
