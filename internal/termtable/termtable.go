// Package termtable renders collapsible tables as text for terminals. Nested
// tables are printed expanded, indented below the table holding their parent
// row.
package termtable

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"github.com/spf13/cast"

	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/internal/theme"
)

const (
	ExpandMarker = "+"
	SortMarker   = " ▾"
	childIndent  = 2
)

type Options struct {
	Palette theme.Palette
	NoColor bool
}

// Engine is a table.Engine producing terminal text instead of HTML. It
// accepts the table and header templates only.
type Engine struct {
	renderer *lipgloss.Renderer
	header   lipgloss.Style
	sorted   lipgloss.Style
	cell     lipgloss.Style
	marker   lipgloss.Style
	border   lipgloss.Style
	label    lipgloss.Style
}

// New returns an Engine styling its output for out.
func New(out io.Writer, opts Options) *Engine {
	r := lipgloss.NewRenderer(out)
	if opts.NoColor {
		r.SetColorProfile(termenv.Ascii)
	}
	p := opts.Palette
	if p.Name == "" {
		p = theme.Default()
	}
	return &Engine{
		renderer: r,
		header:   p.Style(r, theme.ColorHeader).Bold(true).Padding(0, 1),
		sorted: r.NewStyle().
			Foreground(p.Color(theme.ColorAccentFg).Adaptive()).
			Background(p.Color(theme.ColorAccent).Adaptive()).
			Bold(true).Padding(0, 1),
		cell:   p.Style(r, theme.ColorText).Padding(0, 1),
		marker: p.Style(r, theme.ColorAccent).Padding(0, 1),
		border: p.Style(r, theme.ColorBorder),
		label:  p.Style(r, theme.ColorTextMuted),
	}
}

func (e *Engine) Execute(name string, data any) (template.HTML, error) {
	c, ok := data.(*table.Context)
	if !ok {
		return "", fmt.Errorf("template %q: expected *table.Context, got %T", name, data)
	}
	switch name {
	case table.TableTemplate:
		return template.HTML(e.render(c, true)), nil //nolint:gosec // terminal text, never served
	case table.HeaderTemplate:
		return template.HTML(e.render(c, false)), nil //nolint:gosec // terminal text, never served
	default:
		return "", fmt.Errorf("template %q is not available in the terminal", name)
	}
}

func (e *Engine) render(c *table.Context, withRows bool) string {
	sortCol := -1
	headers := make([]string, 0, len(c.Columns)+1)
	headers = append(headers, "")
	for i, col := range c.Columns {
		h := col.Name
		if c.Sort != "" && col.Key() == c.Sort {
			h += SortMarker
			sortCol = i + 1
		}
		headers = append(headers, h)
	}

	t := ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(e.border).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == ltable.HeaderRow && col == sortCol:
				return e.sorted
			case row == ltable.HeaderRow:
				return e.header
			case col == 0:
				return e.marker
			default:
				return e.cell
			}
		}).
		Headers(headers...)

	if withRows {
		for _, row := range c.Rows {
			t.Row(e.cells(row)...)
		}
	}

	var b strings.Builder
	b.WriteString(t.String())
	if !withRows {
		return b.String()
	}
	for _, row := range c.Rows {
		if !row.HasChild {
			continue
		}
		b.WriteString("\n")
		b.WriteString(e.label.Render(fmt.Sprintf("%s %s", ExpandMarker, rowLabel(row))))
		b.WriteString("\n")
		b.WriteString(e.renderer.NewStyle().PaddingLeft(childIndent).Render(string(row.ChildTable)))
	}
	return b.String()
}

func (e *Engine) cells(row *table.Row) []string {
	out := make([]string, 0, len(row.Cells)+1)
	if row.HasChild {
		out = append(out, ExpandMarker)
	} else {
		out = append(out, "")
	}
	for _, cell := range row.Cells {
		if cell == nil {
			out = append(out, "")
			continue
		}
		out = append(out, Text(cell.Value))
	}
	return out
}

// rowLabel names a parent row by its id and first non-empty cell.
func rowLabel(row *table.Row) string {
	for _, cell := range row.Cells {
		if cell == nil {
			continue
		}
		if s := Text(cell.Value); s != "" {
			return fmt.Sprintf("%s (%s)", row.ID, firstLine(s))
		}
	}
	return row.ID
}

// Text converts a cell value to display text.
func Text(v any) string {
	switch s := v.(type) {
	case template.HTML:
		return string(s)
	case fmt.Stringer:
		return s.String()
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
