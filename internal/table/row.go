package table

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"github.com/kong/ctable/internal/datasource"
)

// RenderFunc computes the display value of one field of a record.
type RenderFunc func(rec datasource.Record) (any, error)

// ChildResolver returns the data of the nested table for rec, or nil when the
// record has no children.
type ChildResolver func(rec datasource.Record) (datasource.Source, error)

// Cell is one rendered value. A nil *Cell in Row.Cells is a placeholder for a
// missing value and keeps the columns aligned.
type Cell struct {
	FieldName string `json:"field_name"`
	Value     any    `json:"value"`
	Style     string `json:"style"`
}

// Row is the rendered view of one record. Records are never modified; each
// render produces fresh rows.
type Row struct {
	ID         string
	Record     datasource.Record
	Cells      []*Cell
	ChildTable template.HTML
	HasChild   bool
}

func (r *Row) MarshalJSON() ([]byte, error) {
	var record map[string]any
	if r.Record != nil {
		record = datasource.Plain(r.Record)
	}
	cells := make([]any, len(r.Cells))
	for i, c := range r.Cells {
		if c == nil {
			continue
		}
		cells[i] = map[string]any{
			"field_name": c.FieldName,
			"value":      datasource.PlainValue(c.Value),
			"style":      c.Style,
		}
	}
	out := map[string]any{
		"id":     r.ID,
		"record": record,
		"cells":  cells,
	}
	if r.HasChild {
		out["child_table"] = string(r.ChildTable)
	}
	return json.Marshal(out)
}

// RenderRows renders every record of src against columns, in order. Each
// returned row holds exactly len(columns) cells.
//
// When the definition resolves children for a record, the nested table is
// rendered immediately with the child definition. Nesting depth is not
// limited: data whose children lead back to an ancestor recurses forever and
// must be prevented by the data layer.
func (t *Table) RenderRows(ctx context.Context, columns []ColumnSpec, src datasource.Source) ([]*Row, error) {
	logger := t.loggerFor(ctx)
	rows := make([]*Row, 0, src.Len())

	i := 0
	for rec := range src.Records() {
		id := fmt.Sprintf("%s-%d", t.idPrefix, i)
		logger.Debug("rendering row", "table", t.def.Name, "row", id, "depth", t.depth)

		row := &Row{
			ID:     id,
			Record: rec,
			Cells:  make([]*Cell, 0, len(columns)),
		}
		for _, col := range columns {
			key := col.Key()
			value, err := t.cellValue(rec, key)
			if err != nil {
				return nil, fmt.Errorf("render field %q of row %d: %w", key, i, err)
			}
			if datasource.IsNil(value) {
				row.Cells = append(row.Cells, nil)
				continue
			}
			row.Cells = append(row.Cells, &Cell{FieldName: key, Value: value, Style: CellStyle})
		}

		if t.def.Children != nil {
			childData, err := t.def.Children(rec)
			if err != nil {
				return nil, fmt.Errorf("resolve children of row %d: %w", i, err)
			}
			if childData != nil {
				markup, err := t.child(childData, id).Render(ctx)
				if err != nil {
					return nil, fmt.Errorf("render child table of row %d: %w", i, err)
				}
				row.ChildTable = markup
				row.HasChild = true
			}
		}

		rows = append(rows, row)
		i++
	}
	return rows, nil
}

// cellValue resolves a field by priority: the definition's renderer, then the
// record's own RenderField, then plain field access. The first one that
// exists decides the value even when it yields nil.
func (t *Table) cellValue(rec datasource.Record, key string) (any, error) {
	if fn := t.def.renderer(key); fn != nil {
		return fn(rec)
	}
	if rr, ok := rec.(datasource.RowRenderer); ok {
		value, found, err := rr.RenderField(key)
		if err != nil {
			return nil, err
		}
		if found {
			return value, nil
		}
	}
	value, _ := rec.Get(key)
	return value, nil
}

func (t *Table) child(data datasource.Source, parentID string) *Table {
	def := t.def.Child
	if def == nil {
		def = t.def
	}
	child := New(def, WithData(data), WithLogger(t.logger))
	if def.Engine == nil {
		child.engine = t.engineOrNil()
	}
	child.depth = t.depth + 1
	child.idPrefix = parentID
	return child
}
