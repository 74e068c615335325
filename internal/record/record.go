package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionField is the identity key shared by every market worksheet.
const QuestionField = "question"

// Record is an ordered field -> Value mapping reconstructed from one
// worksheet row. Field order follows the sheet header.
type Record struct {
	fields []string
	values map[string]Value
}

func New() *Record {
	return &Record{values: map[string]Value{}}
}

// FromPairs builds a record from alternating field/value arguments; it is
// mostly a convenience for tests and fixtures.
func FromPairs(kv ...any) *Record {
	r := New()
	for i := 0; i+1 < len(kv); i += 2 {
		field, _ := kv[i].(string)
		switch v := kv[i+1].(type) {
		case Value:
			r.Set(field, v)
		case string:
			r.Set(field, Text(v))
		case float64:
			r.Set(field, Number(v))
		case int:
			r.Set(field, Number(float64(v)))
		case nil:
			r.Set(field, Empty())
		default:
			r.Set(field, Text(fmt.Sprint(v)))
		}
	}
	return r
}

func (r *Record) Set(field string, v Value) {
	if r.values == nil {
		r.values = map[string]Value{}
	}
	if _, ok := r.values[field]; !ok {
		r.fields = append(r.fields, field)
	}
	r.values[field] = v
}

// Get returns Empty for unknown fields.
func (r *Record) Get(field string) Value {
	if r == nil {
		return Empty()
	}
	return r.values[field]
}

func (r *Record) Has(field string) bool {
	if r == nil {
		return false
	}
	_, ok := r.values[field]
	return ok
}

func (r *Record) Fields() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.fields))
	copy(out, r.fields)
	return out
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.fields)
}

// Question returns the trimmed identity key, or "" when it is missing.
func (r *Record) Question() string {
	return strings.TrimSpace(r.Get(QuestionField).String())
}

func (r *Record) Number(field string) (float64, bool) {
	return r.Get(field).AsNumber()
}

func (r *Record) Clone() *Record {
	out := &Record{
		fields: make([]string, len(r.fields)),
		values: make(map[string]Value, len(r.values)),
	}
	copy(out.fields, r.fields)
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// Cells renders the record in the given column order; missing fields are "".
func (r *Record) Cells(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = r.Get(c).String()
	}
	return out
}

func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		val, err := r.values[f].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the encoded object.
func (r *Record) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	*r = Record{values: map[string]Value{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: expected key, got %v", tok)
		}
		var v Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

// Set is an ordered collection of records sharing a column list.
type Set struct {
	Columns []string  `json:"columns"`
	Records []*Record `json:"records"`
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

func (s *Set) HasColumn(name string) bool {
	if s == nil {
		return false
	}
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Index maps each question to its first record.
func (s *Set) Index() map[string]*Record {
	out := make(map[string]*Record, s.Len())
	if s == nil {
		return out
	}
	for _, r := range s.Records {
		q := r.Question()
		if _, ok := out[q]; !ok {
			out[q] = r
		}
	}
	return out
}
