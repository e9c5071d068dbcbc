package table

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"

	"github.com/kong/ctable/internal/datasource"
)

// markdown does not pass raw HTML from the source through.
var markdown = goldmark.New()

// Markdown renders field as Markdown. Records without the field render as a
// missing cell.
func Markdown(field string) RenderFunc {
	return func(rec datasource.Record) (any, error) {
		v, ok := rec.Get(field)
		if !ok || datasource.IsNil(v) {
			return nil, nil
		}
		var src string
		switch s := v.(type) {
		case string:
			src = s
		case []byte:
			src = string(s)
		default:
			src = fmt.Sprint(v)
		}
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(src), &buf); err != nil {
			return nil, fmt.Errorf("convert markdown of %q: %w", field, err)
		}
		return template.HTML(buf.String()), nil //nolint:gosec // goldmark escapes raw HTML by default
	}
}

// ChildrenField resolves the children of a record from a nested list of
// records stored under field. An absent or empty field means no children.
func ChildrenField(field string) ChildResolver {
	return func(rec datasource.Record) (datasource.Source, error) {
		v, ok := rec.Get(field)
		if !ok || datasource.IsNil(v) {
			return nil, nil
		}
		switch children := v.(type) {
		case datasource.Source:
			return children, nil
		case []datasource.Record:
			if len(children) == 0 {
				return nil, nil
			}
			return datasource.NewSlice(children...), nil
		case []map[string]any:
			if len(children) == 0 {
				return nil, nil
			}
			return datasource.FromMaps(children), nil
		case []any:
			if len(children) == 0 {
				return nil, nil
			}
			records := make([]datasource.Record, 0, len(children))
			for i, c := range children {
				switch r := c.(type) {
				case datasource.Record:
					records = append(records, r)
				case map[string]any:
					records = append(records, datasource.MapRecordOf(r))
				default:
					return nil, fmt.Errorf("child %d of field %q is %T, not a record", i, field, c)
				}
			}
			return datasource.NewSlice(records...), nil
		default:
			return nil, fmt.Errorf("field %q holds %T, not a list of records", field, v)
		}
	}
}
