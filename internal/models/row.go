package models

import (
	"bytes"
	"encoding/json"
)

// Field is one column value of a result row.
type Field struct {
	Name  string
	Value any
}

// Row is a column→value mapping that keeps the result's column order.
// It encodes as a JSON object with keys in that order.
type Row []Field

// NewRow zips column names with positional values.
func NewRow(columns []string, values []any) Row {
	r := make(Row, len(columns))
	for i, c := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r[i] = Field{Name: c, Value: v}
	}
	return r
}

// Keys returns the column names in order.
func (r Row) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Name
	}
	return keys
}

// Values returns the values in column order.
func (r Row) Values() []any {
	vals := make([]any, len(r))
	for i, f := range r {
		vals[i] = f.Value
	}
	return vals
}

// Get returns the value stored under name.
func (r Row) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keeping its key order.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil { // '{'
		return err
	}
	out := Row{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		out = append(out, Field{Name: key, Value: v})
	}
	*r = out
	return nil
}
