package table

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"

	"github.com/kong/ctable/internal/datasource"
	terr "github.com/kong/ctable/internal/err"
	"github.com/kong/ctable/internal/log"
)

const (
	TableTemplate  = "collapsible_table/table.html"
	HeaderTemplate = "collapsible_table/header.html"

	DefaultTableStyle        = "table"
	DefaultExpandHeaderStyle = "col-1"

	rootIDPrefix = "ct"
)

// Engine executes a named template into markup.
type Engine interface {
	Execute(name string, data any) (template.HTML, error)
}

// Definition describes a kind of table. A Definition is shared by every table
// built from it and is not modified while rendering.
type Definition struct {
	Name string
	// Fields declares the columns. nil derives them from the first record.
	Fields            []Field
	TableStyle        string
	ExpandHeaderStyle string

	// Renderers and Sorters are keyed by lower-cased field name.
	Renderers map[string]RenderFunc
	Sorters   map[string]SortFunc

	Children ChildResolver
	// Child renders the nested tables. nil uses this definition.
	Child *Definition

	// Source supplies the data when a table is built without WithData.
	Source func() (datasource.Source, error)
	Engine Engine
}

// Render registers fn as the renderer of field and returns d.
func (d *Definition) Render(field string, fn RenderFunc) *Definition {
	if d.Renderers == nil {
		d.Renderers = map[string]RenderFunc{}
	}
	d.Renderers[strings.ToLower(field)] = fn
	return d
}

// SortBy registers fn as the ordering used for sort key field and returns d.
func (d *Definition) SortBy(field string, fn SortFunc) *Definition {
	if d.Sorters == nil {
		d.Sorters = map[string]SortFunc{}
	}
	d.Sorters[strings.ToLower(field)] = fn
	return d
}

func (d *Definition) renderer(key string) RenderFunc {
	if fn, ok := d.Renderers[key]; ok {
		return fn
	}
	for k, fn := range d.Renderers {
		if strings.EqualFold(k, key) {
			return fn
		}
	}
	return nil
}

func (d *Definition) sorter(key string) SortFunc {
	if fn, ok := d.Sorters[key]; ok {
		return fn
	}
	for k, fn := range d.Sorters {
		if strings.EqualFold(k, key) {
			return fn
		}
	}
	return nil
}

func (d *Definition) tableStyle() string {
	if d.TableStyle == "" {
		return DefaultTableStyle
	}
	return d.TableStyle
}

func (d *Definition) expandHeaderStyle() string {
	if d.ExpandHeaderStyle == "" {
		return DefaultExpandHeaderStyle
	}
	return d.ExpandHeaderStyle
}

// Context is the data handed to the table templates. Query holds the request
// parameters the header's sort links keep.
type Context struct {
	Table             string       `json:"table,omitempty"`
	TableStyle        string       `json:"table_style"`
	ExpandHeaderStyle string       `json:"expand_header_style"`
	Columns           []ColumnSpec `json:"columns"`
	Rows              []*Row       `json:"rows"`
	ChildColspan      int          `json:"child_colspan"`
	Sort              string       `json:"sort,omitempty"`
	Depth             int          `json:"depth"`
	Query             url.Values   `json:"-"`
}

type Option func(*Table)

// WithData sets the records of the table, bypassing Definition.Source.
func WithData(src datasource.Source) Option {
	return func(t *Table) {
		t.data = src
	}
}

// WithFields overrides Definition.Fields.
func WithFields(fields []Field) Option {
	return func(t *Table) {
		t.fields = fields
		t.fieldsSet = true
	}
}

// WithQuery sets the request parameters the header keeps in its sort links.
// Child tables do not inherit them.
func WithQuery(query url.Values) Option {
	return func(t *Table) {
		t.query = query
	}
}

// WithSort sets the sort key. Keys are compared lower-cased.
func WithSort(key string) Option {
	return func(t *Table) {
		t.sort = strings.ToLower(key)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithEngine overrides Definition.Engine.
func WithEngine(engine Engine) Option {
	return func(t *Table) {
		t.engine = engine
	}
}

// Table is one rendering of a Definition over a data source.
type Table struct {
	def       *Definition
	data      datasource.Source
	fields    []Field
	fieldsSet bool
	sort      string
	query     url.Values
	logger    *slog.Logger
	engine    Engine

	depth    int
	idPrefix string
}

func New(def *Definition, opts ...Option) *Table {
	if def == nil {
		def = &Definition{}
	}
	t := &Table{def: def, idPrefix: rootIDPrefix}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Definition returns the definition the table was built from.
func (t *Table) Definition() *Definition {
	return t.def
}

// SortKey returns the lower-cased sort key, empty when unsorted.
func (t *Table) SortKey() string {
	return t.sort
}

// Source returns the data given with WithData, falling back to the
// definition's Source accessor.
func (t *Table) Source() (datasource.Source, error) {
	if t.data != nil {
		return t.data, nil
	}
	if t.def.Source == nil {
		return nil, sourceNotDefined(t.def.Name)
	}
	src, err := t.def.Source()
	if err != nil {
		return nil, fmt.Errorf("load data of table %q: %w", t.def.Name, err)
	}
	if src == nil {
		return nil, sourceNotDefined(t.def.Name)
	}
	return src, nil
}

// Columns normalizes the declared fields against the first record of src.
func (t *Table) Columns(src datasource.Source) ([]ColumnSpec, error) {
	fields := t.def.Fields
	if t.fieldsSet {
		fields = t.fields
	}
	var sample datasource.Record
	if src != nil {
		sample, _ = src.First()
	}
	columns, err := Normalize(fields, sample)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) && schemaErr.Table == "" {
			schemaErr.Table = t.def.Name
		}
		return nil, err
	}
	return columns, nil
}

// Context builds the template data: columns, then sorted data, then rows.
func (t *Table) Context(ctx context.Context) (*Context, error) {
	src, err := t.Source()
	if err != nil {
		return nil, err
	}
	columns, err := t.Columns(src)
	if err != nil {
		return nil, err
	}
	sorted, err := ResolveSort(t.def, src, t.sort)
	if err != nil {
		return nil, err
	}
	rows, err := t.RenderRows(ctx, columns, sorted)
	if err != nil {
		return nil, err
	}
	return &Context{
		Table:             t.def.Name,
		TableStyle:        t.def.tableStyle(),
		ExpandHeaderStyle: t.def.expandHeaderStyle(),
		Columns:           columns,
		Rows:              rows,
		ChildColspan:      len(columns) + 1,
		Sort:              t.sort,
		Depth:             t.depth,
		Query:             t.query,
	}, nil
}

// Render returns the table markup as produced by the engine.
func (t *Table) Render(ctx context.Context) (template.HTML, error) {
	engine, err := t.resolveEngine()
	if err != nil {
		return "", err
	}
	c, err := t.Context(ctx)
	if err != nil {
		return "", err
	}
	t.loggerFor(ctx).Debug("rendering table",
		"table", t.def.Name, "rows", len(c.Rows), "columns", len(c.Columns), "sort", t.sort, "depth", t.depth)
	return engine.Execute(TableTemplate, c)
}

// RenderHeader returns only the header markup.
func (t *Table) RenderHeader(ctx context.Context) (template.HTML, error) {
	engine, err := t.resolveEngine()
	if err != nil {
		return "", err
	}
	src, err := t.Source()
	if err != nil {
		return "", err
	}
	columns, err := t.Columns(src)
	if err != nil {
		return "", err
	}
	t.loggerFor(ctx).Debug("rendering table header", "table", t.def.Name, "columns", len(columns))
	return engine.Execute(HeaderTemplate, &Context{
		Table:             t.def.Name,
		TableStyle:        t.def.tableStyle(),
		ExpandHeaderStyle: t.def.expandHeaderStyle(),
		Columns:           columns,
		ChildColspan:      len(columns) + 1,
		Sort:              t.sort,
		Depth:             t.depth,
		Query:             t.query,
	})
}

func (t *Table) engineOrNil() Engine {
	if t.engine != nil {
		return t.engine
	}
	return t.def.Engine
}

func (t *Table) resolveEngine() (Engine, error) {
	if e := t.engineOrNil(); e != nil {
		return e, nil
	}
	return nil, &terr.ConfigurationError{
		Err: fmt.Errorf("table %q has no template engine", t.def.Name),
	}
}

func (t *Table) loggerFor(ctx context.Context) *slog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return log.FromContext(ctx)
}
