package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

type Kind uint8

const (
	KindEmpty Kind = iota
	KindText
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "empty"
	}
}

// Value is a single worksheet cell: missing, free text, or a number.
type Value struct {
	kind Kind
	text string
	num  float64
}

func Empty() Value { return Value{} }

func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number wraps f. NaN and ±Inf are not worksheet numbers and become Empty.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}
	}
	return Value{kind: KindNumber, num: f}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.num, true
}

func (v Value) AsText() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// String renders the value as a worksheet cell. Numbers use the shortest
// decimal representation, so 300 renders as "300" and 0.05 as "0.05".
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return decimal.NewFromFloat(v.num).String()
	default:
		return ""
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindNumber:
		return v.num == o.num
	default:
		return true
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

func (v *Value) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*v = Empty()
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*v = Text(s)
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return err
		}
		*v = Text(strconv.FormatBool(b))
		return nil
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return fmt.Errorf("record: invalid cell value %s", raw)
		}
		*v = Number(f)
		return nil
	}
}

var (
	numericLiteral = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)
	decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)
)

// LooksNumeric reports whether s is a plain integer or decimal literal,
// optionally negative. Exponents, signs other than a leading minus and
// surrounding text are rejected.
func LooksNumeric(s string) bool {
	return numericLiteral.MatchString(strings.TrimSpace(s))
}

// Coerce turns a numeric-looking string into a Number and keeps anything else
// as the original Text.
func Coerce(raw string) Value {
	if LooksNumeric(raw) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
			return Number(f)
		}
	}
	return Text(raw)
}

// CoerceValue applies Coerce to text values and passes numbers through.
func CoerceValue(v Value) Value {
	if s, ok := v.AsText(); ok {
		return Coerce(s)
	}
	return v
}

// ParseNumeric converts a cell of a numeric column. Only base-10 literals
// with an optional exponent are accepted; inf, nan, hex floats and values
// out of float64 range become Empty instead of an error.
func ParseNumeric(raw string) Value {
	s := strings.TrimSpace(raw)
	if !decimalLiteral.MatchString(s) {
		return Empty()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Empty()
	}
	return Number(f)
}

// Cell wraps a raw worksheet string; blank cells become Empty.
func Cell(raw string) Value {
	if strings.TrimSpace(raw) == "" {
		return Empty()
	}
	return Text(raw)
}
