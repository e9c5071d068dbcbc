package datasource

import (
	"cmp"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"
)

// Source is an ordered collection of records backing a table.
type Source interface {
	// Records iterates the records in order.
	Records() iter.Seq[Record]
	// First peeks the first record, used to derive columns.
	First() (Record, bool)
	Len() int
	// OrderBy returns a copy stably sorted ascending by field. It fails with
	// *UnknownFieldError when the source is not empty and its first record
	// has no such field.
	OrderBy(field string) (Source, error)
	// Filter returns a copy holding only the records keep accepts.
	Filter(keep func(Record) (bool, error)) (Source, error)
}

// UnknownFieldError is returned when ordering by a field the records do not have.
type UnknownFieldError struct {
	Field string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("cannot order by unknown field %q", e.Field)
}

// Slice is an in-memory Source.
type Slice struct {
	records []Record
}

// NewSlice returns a Source over records. The slice is not copied.
func NewSlice(records ...Record) *Slice {
	return &Slice{records: records}
}

// FromMaps builds a Source from plain maps. Keys of each map are sorted
// unless order lists them.
func FromMaps(rows []map[string]any, order ...string) *Slice {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, MapRecordOf(row, order...))
	}
	return NewSlice(records...)
}

// FromStructs builds a Source from struct values or pointers to structs.
func FromStructs[T any](items []T) *Slice {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		records = append(records, NewStructRecord(item))
	}
	return NewSlice(records...)
}

func (s *Slice) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, rec := range s.records {
			if !yield(rec) {
				return
			}
		}
	}
}

func (s *Slice) First() (Record, bool) {
	if len(s.records) == 0 {
		return nil, false
	}
	return s.records[0], true
}

func (s *Slice) Len() int {
	return len(s.records)
}

// All returns the underlying records.
func (s *Slice) All() []Record {
	return s.records
}

func (s *Slice) OrderBy(field string) (Source, error) {
	if first, ok := s.First(); ok {
		if _, found := first.Get(field); !found {
			return nil, &UnknownFieldError{Field: field}
		}
	}

	sorted := slices.Clone(s.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, _ := sorted[i].Get(field)
		b, _ := sorted[j].Get(field)
		return Compare(a, b) < 0
	})
	return NewSlice(sorted...), nil
}

func (s *Slice) Filter(keep func(Record) (bool, error)) (Source, error) {
	kept := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		ok, err := keep(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			kept = append(kept, rec)
		}
	}
	return NewSlice(kept...), nil
}

// Collect drains src into a slice.
func Collect(src Source) []Record {
	if s, ok := src.(*Slice); ok {
		return s.records
	}
	return slices.Collect(src.Records())
}

// Compare orders two field values: nil first, then numbers, strings, bools
// and times by their natural order. Values of different kinds fall back to
// comparing their fmt.Sprint forms.
func Compare(a, b any) int {
	if IsNil(a) || IsNil(b) {
		switch {
		case IsNil(a) && IsNil(b):
			return 0
		case IsNil(a):
			return -1
		default:
			return 1
		}
	}

	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}

	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

// IsNil reports whether v is nil or a typed nil pointer, map, slice or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
