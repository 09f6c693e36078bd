package core

// custom_fields.go provides the ordered side-map for unrecognized CSV
// columns. Unknown columns are never dropped during import; they ride along
// on the record in source column order so an export reproduces the original
// layout.

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CustomFields preserves unrecognized columns in source column order.
// The zero value is not usable; call NewCustomFields.
type CustomFields struct {
	keys   []string
	values map[string]string
}

// NewCustomFields returns an empty ordered field map.
func NewCustomFields() *CustomFields {
	return &CustomFields{values: make(map[string]string)}
}

// Set stores value under key, appending the key on first sight.
// Setting an existing key updates the value without reordering.
func (f *CustomFields) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value for key.
func (f *CustomFields) Get(key string) (string, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Len returns the number of stored fields.
func (f *CustomFields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns the field names in insertion order.
func (f *CustomFields) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Clone returns an independent copy.
func (f *CustomFields) Clone() *CustomFields {
	cp := NewCustomFields()
	for _, k := range f.keys {
		cp.Set(k, f.values[k])
	}
	return cp
}

// Union overlays other onto a copy of f: every non-empty value in other wins
// per key, new keys append after f's keys. Used by the merge strategy.
func (f *CustomFields) Union(other *CustomFields) *CustomFields {
	if f == nil {
		if other == nil {
			return nil
		}
		return other.Clone()
	}
	cp := f.Clone()
	if other == nil {
		return cp
	}
	for _, k := range other.keys {
		if v := other.values[k]; v != "" {
			cp.Set(k, v)
		} else if _, ok := cp.values[k]; !ok {
			cp.Set(k, "")
		}
	}
	return cp
}

// MarshalJSON writes the fields as a JSON object in insertion order.
func (f *CustomFields) MarshalJSON() ([]byte, error) {
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
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object, preserving its key order.
func (f *CustomFields) UnmarshalJSON(data []byte) error {
	f.keys = nil
	f.values = make(map[string]string)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("custom_fields: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("custom_fields: non-string key %v", keyTok)
		}
		var val string
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("custom_fields: value for %q: %w", key, err)
		}
		f.Set(key, val)
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}
