package consolidate

import (
	"marketsync/internal/record"
)

// Merge inner-joins primary with secondary on question. Columns already in
// primary keep the primary value; columns only secondary has are appended in
// secondary order. Records missing from either side are dropped.
func Merge(primary, secondary *record.Set) *record.Set {
	out := &record.Set{}
	if primary == nil || secondary == nil {
		return out
	}

	extra := make([]string, 0, len(secondary.Columns))
	for _, c := range secondary.Columns {
		if c == record.QuestionField || primary.HasColumn(c) {
			continue
		}
		extra = append(extra, c)
	}

	out.Columns = make([]string, 0, len(primary.Columns)+len(extra))
	out.Columns = append(out.Columns, primary.Columns...)
	out.Columns = append(out.Columns, extra...)

	index := secondary.Index()
	for _, p := range primary.Records {
		s, ok := index[p.Question()]
		if !ok || p.Question() == "" {
			continue
		}
		merged := p.Clone()
		for _, c := range extra {
			merged.Set(c, s.Get(c))
		}
		out.Records = append(out.Records, merged)
	}
	return out
}
