package selection

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"marketsync/internal/record"
)

// Truncate shortens s to max runes and marks the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// WriteSummary prints a console table of the selected markets.
func WriteSummary(w io.Writer, title string, selected []Selected) error {
	rule := strings.Repeat("=", 80)
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, title, rule)
	for i, s := range selected {
		r := s.Record()
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, Truncate(r.Question(), 70))
		fmt.Fprintf(&b, "   Reward: %s | Volatility: %s | Spread: %s\n",
			fixed(r, FieldReward, 2), fixed(r, FieldVolatility, 2), fixed(r, FieldSpread, 3))
		fmt.Fprintf(&b, "   Bid: %s | Ask: %s | Min Size: %s\n",
			fixed(r, FieldBestBid, 2), fixed(r, FieldBestAsk, 2), fixed(r, FieldMinSize, 0))
		fmt.Fprintf(&b, "   Score: %.2f\n", s.Score)
	}
	b.WriteString(rule + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func fixed(r *record.Record, field string, places int) string {
	f, ok := r.Number(field)
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", places, f)
}
