package datasource

import (
	"reflect"
	"strings"
)

// Record is one row-like entry of a Source. Keys reports the declared field
// order, which is what column derivation uses when no fields are configured.
type Record interface {
	Keys() []string
	// Get returns the value of field. The exact key is tried first, then a
	// case-insensitive match.
	Get(field string) (any, bool)
}

// RowRenderer is implemented by records that know how to display some of
// their own fields. ok is false when the record has no renderer for field.
type RowRenderer interface {
	RenderField(field string) (value any, ok bool, err error)
}

// MapRecord is a Record backed by an ordered set of keys.
type MapRecord struct {
	keys   []string
	values map[string]any
}

// NewMapRecord builds an empty record ready for Set.
func NewMapRecord() *MapRecord {
	return &MapRecord{values: map[string]any{}}
}

// MapRecordOf builds a record from m. Go maps have no order, so keys follow
// order when given and are otherwise sorted.
func MapRecordOf(m map[string]any, order ...string) *MapRecord {
	rec := NewMapRecord()
	for _, k := range order {
		if v, ok := m[k]; ok {
			rec.Set(k, v)
		}
	}
	for _, k := range sortedKeys(m) {
		if _, seen := rec.values[k]; !seen {
			rec.Set(k, m[k])
		}
	}
	return rec
}

// Set assigns value to key, appending key to the order when it is new.
func (r *MapRecord) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r *MapRecord) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *MapRecord) Get(field string) (any, bool) {
	if v, ok := r.values[field]; ok {
		return v, true
	}
	for _, k := range r.keys {
		if strings.EqualFold(k, field) {
			return r.values[k], true
		}
	}
	return nil, false
}

// Map returns a shallow copy of the record values.
func (r *MapRecord) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// StructRecord exposes the exported fields of a struct value as a Record.
// A field is addressable by its Go name, its json tag, or either lower-cased.
type StructRecord struct {
	value reflect.Value
	raw   any
}

// NewStructRecord wraps v, which must be a struct or a non-nil pointer to one.
func NewStructRecord(v any) *StructRecord {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr && !rv.IsNil() {
		rv = rv.Elem()
	}
	return &StructRecord{value: rv, raw: v}
}

// Value returns the wrapped struct as passed to NewStructRecord.
func (r *StructRecord) Value() any {
	return r.raw
}

func (r *StructRecord) Keys() []string {
	if r.value.Kind() != reflect.Struct {
		return nil
	}
	t := r.value.Type()
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		keys = append(keys, fieldKey(f))
	}
	return keys
}

func (r *StructRecord) Get(field string) (any, bool) {
	if r.value.Kind() != reflect.Struct {
		return nil, false
	}
	t := r.value.Type()
	fallback := -1
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		key := fieldKey(f)
		if key == field || f.Name == field {
			return r.value.Field(i).Interface(), true
		}
		if fallback < 0 && (strings.EqualFold(key, field) || strings.EqualFold(f.Name, field)) {
			fallback = i
		}
	}
	if fallback >= 0 {
		return r.value.Field(fallback).Interface(), true
	}
	return nil, false
}

// RenderField delegates to the wrapped value when it implements RowRenderer.
func (r *StructRecord) RenderField(field string) (any, bool, error) {
	if rr, ok := r.raw.(RowRenderer); ok {
		return rr.RenderField(field)
	}
	return nil, false, nil
}

func fieldKey(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
		return name
	}
	return f.Name
}
