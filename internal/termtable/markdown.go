package termtable

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/kong/ctable/internal/datasource"
	"github.com/kong/ctable/internal/table"
)

// Markdown renders markdown cells for the terminal.
type Markdown struct {
	NoColor bool
	Width   int

	once     sync.Once
	renderer *glamour.TermRenderer
	err      error
}

// Field returns a table.RenderFunc rendering field as terminal markdown.
// It has the signature Spec.DefinitionWith expects.
func (m *Markdown) Field(field string) table.RenderFunc {
	return func(rec datasource.Record) (any, error) {
		v, ok := rec.Get(field)
		if !ok || datasource.IsNil(v) {
			return nil, nil
		}
		src, ok := v.(string)
		if !ok {
			src = fmt.Sprint(v)
		}
		return m.Render(src), nil
	}
}

// Render converts src. The source is returned unchanged when glamour fails.
func (m *Markdown) Render(src string) string {
	m.once.Do(func() {
		m.renderer, m.err = newRenderer(m.NoColor, m.Width)
	})
	if m.err != nil {
		return src
	}
	out, err := m.renderer.Render(src)
	if err != nil {
		return src
	}
	return normalizeSpacing(out)
}

func newRenderer(noColor bool, width int) (*glamour.TermRenderer, error) {
	var options []glamour.TermRendererOption
	if noColor {
		options = append(options,
			glamour.WithStandardStyle("notty"),
			glamour.WithColorProfile(termenv.Ascii),
		)
	} else {
		options = append(options,
			glamour.WithAutoStyle(),
			glamour.WithColorProfile(termenv.TrueColor),
		)
	}
	if width > 0 {
		options = append(options, glamour.WithWordWrap(width))
	}
	return glamour.NewTermRenderer(options...)
}

// normalizeSpacing drops the document margin glamour adds around the output.
func normalizeSpacing(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	indent := -1
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
		if lines[i] == "" {
			continue
		}
		n := len(lines[i]) - len(strings.TrimLeft(lines[i], " "))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i := range lines {
		if len(lines[i]) >= indent && indent > 0 {
			lines[i] = lines[i][indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
