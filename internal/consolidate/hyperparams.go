package consolidate

import (
	"sort"
	"strings"

	"marketsync/internal/record"
)

// Hyperparameters maps a section (strategy type) to its parameters.
type Hyperparameters map[string]map[string]record.Value

// ParamRow is one row of the parameter worksheet. Type is only filled on
// the first row of each section.
type ParamRow struct {
	Type  string
	Param string
	Value record.Value
}

var missingMarkers = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
	"<na>": {},
}

// ParseHyperparameters folds the rows in order. A non-blank type opens a new
// section and rows before the first section are dropped. Later rows win on
// repeated (section, param) pairs. A blank param name is kept verbatim as
// the key, so such rows land under "" in their section.
func ParseHyperparameters(rows []ParamRow) Hyperparameters {
	out := Hyperparameters{}
	current := ""
	for _, row := range rows {
		if section, ok := sectionName(row.Type); ok {
			current = section
		}
		if current == "" {
			continue
		}
		params, ok := out[current]
		if !ok {
			params = map[string]record.Value{}
			out[current] = params
		}
		params[row.Param] = record.CoerceValue(row.Value)
	}
	return out
}

func sectionName(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if _, missing := missingMarkers[strings.ToLower(s)]; missing {
		return "", false
	}
	return s, true
}

// ParamRows reads type/param/value columns from a loaded parameter worksheet.
func ParamRows(set *record.Set) []ParamRow {
	if set == nil {
		return nil
	}
	out := make([]ParamRow, 0, len(set.Records))
	for _, r := range set.Records {
		value := r.Get("value")
		if value.IsEmpty() {
			value = record.Text("")
		}
		out = append(out, ParamRow{
			Type:  r.Get("type").String(),
			Param: r.Get("param").String(),
			Value: value,
		})
	}
	return out
}

// Float returns a numeric parameter.
func (h Hyperparameters) Float(section, param string) (float64, bool) {
	return h[section][param].AsNumber()
}

// Sections lists section names in sorted order.
func (h Hyperparameters) Sections() []string {
	out := make([]string, 0, len(h))
	for k := range h {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
