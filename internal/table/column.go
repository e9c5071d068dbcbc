package table

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kong/ctable/internal/datasource"
)

const (
	// AllFields in a field list derives the columns from the first record.
	AllFields = "__all__"

	DefaultHeaderStyle = "col-3"
	CellStyle          = "m-1"
)

// ColumnSpec is a normalized column.
type ColumnSpec struct {
	Name        string `json:"name" yaml:"name"`
	HeaderStyle string `json:"header_style" yaml:"header_style"`
	Sortable    bool   `json:"sortable" yaml:"sortable"`
}

// Key is the lower-cased name used to look up renderers, sorters and record fields.
func (c ColumnSpec) Key() string {
	return strings.ToLower(c.Name)
}

// Field turns a normalized column back into a fully specified declaration.
func (c ColumnSpec) Field() Field {
	style := c.HeaderStyle
	sortable := c.Sortable
	return Field{Name: c.Name, HeaderStyle: &style, Sortable: &sortable}
}

// Field is a declared column: either a bare name or a partial mapping whose
// unset members receive defaults during normalization.
type Field struct {
	Name        string  `json:"name" yaml:"name"`
	HeaderStyle *string `json:"header_style,omitempty" yaml:"header_style,omitempty"`
	Sortable    *bool   `json:"sortable,omitempty" yaml:"sortable,omitempty"`
}

// Name declares a bare field.
func Name(name string) Field {
	return Field{Name: name}
}

// Names declares several bare fields.
func Names(names ...string) []Field {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, Name(n))
	}
	return fields
}

// Fields converts normalized columns back into declarations.
func Fields(columns []ColumnSpec) []Field {
	fields := make([]Field, 0, len(columns))
	for _, c := range columns {
		fields = append(fields, c.Field())
	}
	return fields
}

func (f Field) bare() bool {
	return f.HeaderStyle == nil && f.Sortable == nil
}

// UnmarshalJSON accepts either a plain string or an object.
func (f *Field) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Name(s)
		return nil
	}
	type alias Field
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("field must be a name or a mapping: %w", err)
	}
	*f = Field(a)
	return nil
}

// MarshalJSON writes bare fields back as plain strings.
func (f Field) MarshalJSON() ([]byte, error) {
	if f.bare() {
		return json.Marshal(f.Name)
	}
	type alias Field
	return json.Marshal(alias(f))
}

// Capitalize upper-cases the first letter of name and lower-cases the rest
// ("host name" -> "Host name", "first_name" -> "First_name").
func Capitalize(name string) string {
	_, size := utf8.DecodeRuneInString(name)
	if size == 0 {
		return name
	}
	return cases.Upper(language.Und).String(name[:size]) + cases.Lower(language.Und).String(name[size:])
}

// Normalize resolves declared into fully populated columns.
//
// A nil declaration or one containing AllFields derives one column per key of
// sample, which then must not be nil. Bare names are capitalized and get the
// default style; partial mappings keep their name and explicit values.
func Normalize(declared []Field, sample datasource.Record) ([]ColumnSpec, error) {
	if declared == nil || slices.ContainsFunc(declared, func(f Field) bool { return f.Name == AllFields }) {
		return deriveColumns(sample)
	}

	columns := make([]ColumnSpec, 0, len(declared))
	for i, f := range declared {
		if strings.TrimSpace(f.Name) == "" {
			return nil, &SchemaError{Msg: fmt.Sprintf("field %d has no name", i)}
		}

		if f.bare() {
			columns = append(columns, ColumnSpec{
				Name:        Capitalize(f.Name),
				HeaderStyle: DefaultHeaderStyle,
				Sortable:    true,
			})
			continue
		}

		col := ColumnSpec{Name: f.Name, HeaderStyle: DefaultHeaderStyle, Sortable: true}
		if f.HeaderStyle != nil {
			col.HeaderStyle = *f.HeaderStyle
		}
		if f.Sortable != nil {
			col.Sortable = *f.Sortable
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func deriveColumns(sample datasource.Record) ([]ColumnSpec, error) {
	if sample == nil {
		return nil, &SchemaError{Msg: "cannot derive columns from an empty data source, declare the fields explicitly"}
	}
	keys := sample.Keys()
	columns := make([]ColumnSpec, 0, len(keys))
	for _, k := range keys {
		columns = append(columns, ColumnSpec{
			Name:        Capitalize(k),
			HeaderStyle: DefaultHeaderStyle,
			Sortable:    true,
		})
	}
	return columns, nil
}
