// Package activity models the loosely typed JSON objects returned by Garmin
// Connect and the rules for reading optional fields out of them.
package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one decoded JSON object. Numbers are kept as json.Number so their
// original text survives into the CSV.
type Record map[string]any

// Decode parses a JSON object.
func Decode(data []byte) (Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// DecodeList parses a JSON array of objects.
func DecodeList(data []byte) ([]Record, error) {
	var rs []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode record list: %w", err)
	}
	return rs, nil
}

// Get returns the raw value stored under key, or nil.
func (r Record) Get(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Sub returns the nested object stored under key, or nil if there is none.
func (r Record) Sub(key string) Record {
	switch v := r.Get(key).(type) {
	case Record:
		return v
	case map[string]any:
		return Record(v)
	}
	return nil
}

// String returns the value under key as text, or "" when absent.
func (r Record) String(key string) string {
	return Text(r.Get(key))
}

// Float returns the value under key as a float64.
func (r Record) Float(key string) (float64, bool) {
	return Float(r.Get(key))
}

// Int returns the value under key as an int.
func (r Record) Int(key string) (int, bool) {
	f, ok := Float(r.Get(key))
	return int(f), ok
}

// Truthy reports whether v counts as a value. nil, false, zero, "" and empty
// collections all count as missing.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x != ""
		}
		return f != 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	case int:
		return x != 0
	case int64:
		return x != 0
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	case Record:
		return len(x) > 0
	}
	return true
}

// Float converts a decoded JSON scalar to float64.
func Float(v any) (float64, bool) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

// Text renders a decoded JSON scalar as text. Numbers keep their JSON spelling.
func Text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
