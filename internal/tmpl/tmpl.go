// Package tmpl holds the HTML templates of collapsible tables and the engine
// that executes them.
package tmpl

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"github.com/Masterminds/sprig/v3"

	"github.com/kong/ctable/internal/filter"
	"github.com/kong/ctable/internal/log"
	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/internal/util"
)

const (
	TableTemplate   = table.TableTemplate
	HeaderTemplate  = table.HeaderTemplate
	PageTemplate    = "collapsible_table/page.html"
	PartialTemplate = "collapsible_table/partial.html"

	// Pattern matches the template files relative to a template root.
	Pattern = "collapsible_table/*.html"

	materialIconsHref = "https://fonts.googleapis.com/icon?family=Material+Icons"
)

//go:embed templates
var embedded embed.FS

// Embedded returns the built-in templates rooted at the template root.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

// Funcs returns the functions available to every template: the sprig library
// plus materialIcons, cellID and sortQuery.
func Funcs() template.FuncMap {
	funcs := sprig.FuncMap()
	funcs["materialIcons"] = MaterialIcons
	funcs["cellID"] = CellID
	funcs["sortQuery"] = SortQuery
	return funcs
}

// MaterialIcons returns the stylesheet link of the Material Icons font.
func MaterialIcons() template.HTML {
	return template.HTML(`<link href="` + materialIconsHref + `" rel="stylesheet">`) //nolint:gosec // constant markup
}

// CellID builds the element id of a cell from its row id and field name.
func CellID(rowID, field string) string {
	return rowID + "-" + util.GenerateSlug(field)
}

// SortQuery returns the query string that sorts by key and keeps the other
// parameters of query.
func SortQuery(query url.Values, key string) string {
	q := make(url.Values, len(query)+1)
	for k, vs := range query {
		if k != filter.SortParam {
			q[k] = slices.Clone(vs)
		}
	}
	q.Set(filter.SortParam, key)
	return "?" + q.Encode()
}

var _ table.Engine = (*Engine)(nil)

// Engine executes the collapsible table templates. Templates found in an
// override directory replace the built-in ones of the same name.
type Engine struct {
	mu     sync.RWMutex
	tmpl   *template.Template
	layers []fs.FS
	logger *slog.Logger

	watcher *dirWatcher
}

// NewEmbedded returns an engine over the built-in templates.
func NewEmbedded() (*Engine, error) {
	return NewFS(nil)
}

// NewFS returns an engine over the built-in templates overridden by the
// templates of each layer, in order.
func NewFS(logger *slog.Logger, layers ...fs.FS) (*Engine, error) {
	e := &Engine{
		layers: append([]fs.FS{Embedded()}, layers...),
		logger: log.OrDiscard(logger),
	}
	tmpl, err := e.parse()
	if err != nil {
		return nil, err
	}
	e.tmpl = tmpl
	return e, nil
}

func (e *Engine) parse() (*template.Template, error) {
	tmpl := template.New("ctable").Funcs(Funcs()).Option("missingkey=error")
	for _, layer := range e.layers {
		matches, err := fs.Glob(layer, Pattern)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		if len(matches) == 0 {
			continue
		}
		if tmpl, err = tmpl.ParseFS(layer, matches...); err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
	}
	for _, name := range []string{TableTemplate, HeaderTemplate, PageTemplate, PartialTemplate} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("template %q is not defined", name)
		}
	}
	return tmpl, nil
}

// Reload parses the templates again. On failure the previous templates stay
// in use.
func (e *Engine) Reload() error {
	tmpl, err := e.parse()
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.tmpl = tmpl
	e.mu.Unlock()
	e.logger.Debug("templates reloaded")
	return nil
}

// Execute renders the named template into markup.
func (e *Engine) Execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.ExecutePage(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // produced by html/template
}

// ExecutePage renders the named template to w.
func (e *Engine) ExecutePage(w io.Writer, name string, data any) error {
	e.mu.RLock()
	tmpl := e.tmpl
	e.mu.RUnlock()
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("execute template %q: %w", name, err)
	}
	return nil
}

// Close stops watching the override directory, if any.
func (e *Engine) Close() error {
	if e.watcher == nil {
		return nil
	}
	return e.watcher.Close()
}
