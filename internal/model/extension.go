package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
)

// Extension holds the open-ended attributes of a record that are not promoted
// to structured columns (root cause, corrective action, customer specific sheet
// columns, ...). It is persisted as a JSON object in a single text column.
type Extension map[string]string

// Get returns the value stored under key, or "" when absent.
func (e Extension) Get(key string) string {
	return e[key]
}

// Lookup returns the value stored under key and whether it was present.
func (e Extension) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Keys returns the keys in sorted order.
func (e Extension) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy. A nil map clones to an empty one.
func (e Extension) Clone() Extension {
	out := make(Extension, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge returns a copy of e with every key of patch written over it.
// Keys absent from patch are kept.
func (e Extension) Merge(patch Extension) Extension {
	out := e.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// JSON returns the serialized form used for storage and free-text matching.
func (e Extension) JSON() string {
	if len(e) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]string(e))
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Value implements driver.Valuer.
func (e Extension) Value() (driver.Value, error) {
	return e.JSON(), nil
}

// Scan implements sql.Scanner.
func (e *Extension) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*e = Extension{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("extension: unsupported source type %T", src)
	}
	if len(raw) == 0 {
		*e = Extension{}
		return nil
	}
	out := Extension{}
	if err := json.Unmarshal(raw, (*map[string]string)(&out)); err != nil {
		return fmt.Errorf("extension: decode: %w", err)
	}
	*e = out
	return nil
}

// ImageRefs lists blob-store relative paths attached to a record.
type ImageRefs []string

// Value implements driver.Valuer.
func (r ImageRefs) Value() (driver.Value, error) {
	if len(r) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *ImageRefs) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*r = ImageRefs{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("images: unsupported source type %T", src)
	}
	if len(raw) == 0 {
		*r = ImageRefs{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("images: decode: %w", err)
	}
	*r = out
	return nil
}
