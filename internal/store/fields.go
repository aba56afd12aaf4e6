package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Fields is a JSON object that remembers the order its keys were first seen.
// Daily records are kept in this form so that fields written by older
// versions survive a rewrite untouched.
type Fields struct {
	keys   []string
	values map[string]interface{}
}

// NewFields returns an empty object.
func NewFields() *Fields {
	return &Fields{values: make(map[string]interface{})}
}

// Keys returns the field names in order.
func (f *Fields) Keys() []string {
	return f.keys
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (interface{}, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Has reports whether key is present.
func (f *Fields) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Set stores value under key. New keys are appended; existing keys keep
// their position.
func (f *Fields) Set(key string, value interface{}) {
	if f.values == nil {
		f.values = make(map[string]interface{})
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Number returns key as a float64 if it holds a JSON number.
func (f *Fields) Number(key string) (float64, bool) {
	v, ok := f.values[key]
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// String returns key if it holds a JSON string.
func (f *Fields) String(key string) (string, bool) {
	v, ok := f.values[key].(string)
	return v, ok
}

func (f *Fields) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}

	f.keys = nil
	f.values = make(map[string]interface{})
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: unexpected key %v", tok)
		}
		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		f.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

func (f *Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, fmt.Errorf("record: field %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// cell renders a value for the flat table.
func cell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
