// Package server serves collapsible tables over HTTP.
package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kong/ctable/internal/datasource"
	"github.com/kong/ctable/internal/filter"
	"github.com/kong/ctable/internal/log"
	"github.com/kong/ctable/internal/session"
	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/internal/tmpl"
)

const (
	RequestIDHeader = "X-Request-Id"
	// DefaultFilterTimeout bounds the filtering of one request.
	DefaultFilterTimeout = 10 * time.Second
)

// PageEngine renders full pages and page fragments.
type PageEngine interface {
	ExecutePage(w io.Writer, name string, data any) error
}

// Page is the data handed to the page and partial templates.
type Page struct {
	Title   string
	Table   template.HTML
	Sort    string
	Query   url.Values
	Partial bool
}

// Handler renders one table per request.
//
// The sort query parameter selects the sort key and is remembered in the
// client session; requests without it reuse the remembered key. An empty
// sort parameter clears it. The other query parameters go to Filter.
type Handler struct {
	Table *table.Definition
	// DefaultSort applies when neither the request nor the session names a
	// sort key.
	DefaultSort string
	// Filter defaults to filter.Default().
	Filter filter.Filter
	// FilterTimeout defaults to DefaultFilterTimeout. Filtering also stops
	// when the client goes away.
	FilterTimeout time.Duration
	// Sessions may be nil, in which case the sort key is not remembered.
	Sessions session.Store
	Pages    PageEngine
	Title    string
	Logger   *slog.Logger
}

// IsPartial reports whether r asks for the table fragment only, as sent by
// htmx or by XMLHttpRequest-based clients.
func IsPartial(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true" || r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := r.Header.Get(RequestIDHeader)
	if uuid.Validate(requestID) != nil {
		requestID = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, requestID)

	ctx := log.WithRequestLogContext(r.Context(), log.RequestLogContext{
		Method:    r.Method,
		Path:      r.URL.Path,
		RequestID: requestID,
		Table:     h.Table.Name,
		Partial:   IsPartial(r),
	})
	logger := log.LoggerWithRequestContext(ctx, log.OrDiscard(h.Logger))

	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		logger.Debug("rejecting request with unsupported method")
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	params, err := filter.DecodeParams(query)
	if err != nil {
		h.fail(w, logger, err)
		return
	}
	sortKey, remembered := h.sortKey(w, r, query, params)

	ctx = log.WithRequestLogContext(ctx, log.RequestLogContext{Sort: sortKey})
	logger = log.LoggerWithRequestContext(ctx, log.OrDiscard(h.Logger))
	ctx = log.WithLogger(ctx, logger)

	src, err := table.New(h.Table).Source()
	if err != nil {
		h.fail(w, logger, err)
		return
	}
	f := h.Filter
	if f == nil {
		f = filter.Default()
	}
	timeout := h.FilterTimeout
	if timeout <= 0 {
		timeout = DefaultFilterTimeout
	}
	filterCtx, cancel := context.WithTimeout(ctx, timeout)
	filtered, err := f.Apply(filterCtx, query, src)
	cancel()
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	markup, err := table.New(h.Table, table.WithData(filtered), table.WithSort(sortKey), table.WithQuery(query)).Render(ctx)
	var unknown *datasource.UnknownFieldError
	if remembered && errors.As(err, &unknown) {
		// the remembered key no longer applies to this data
		logger.Debug("dropping stale sort key", "error", err)
		if h.Sessions != nil {
			h.Sessions.SetSortKey(w, r, "")
		}
		sortKey = ""
		markup, err = table.New(h.Table, table.WithData(filtered), table.WithQuery(query)).Render(ctx)
	}
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	page := Page{
		Title:   h.Title,
		Table:   markup,
		Sort:    sortKey,
		Query:   query,
		Partial: IsPartial(r),
	}
	name := tmpl.PageTemplate
	if page.Partial {
		name = tmpl.PartialTemplate
	}
	var buf bytes.Buffer
	if err := h.Pages.ExecutePage(&buf, name, page); err != nil {
		h.fail(w, logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Add("Vary", "HX-Request")
	w.Header().Add("Vary", "X-Requested-With")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		if _, err := w.Write(buf.Bytes()); err != nil {
			logger.Debug("failed to write response", "error", err)
		}
	}
	logger.Debug("served table", "template", name, "bytes", buf.Len(), "duration", time.Since(start))
}

// sortKey resolves the sort key of the request and reports whether it came
// from the session or the default rather than the request itself.
func (h *Handler) sortKey(w http.ResponseWriter, r *http.Request, query url.Values, params filter.Params) (string, bool) {
	if query.Has(filter.SortParam) {
		if h.Sessions != nil {
			h.Sessions.SetSortKey(w, r, params.Sort)
		}
		return params.Sort, false
	}
	if h.Sessions != nil {
		if key := h.Sessions.SortKey(r); key != "" {
			return key, true
		}
	}
	key := strings.ToLower(strings.TrimSpace(h.DefaultSort))
	return key, key != ""
}

func (h *Handler) fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("failed to render table", "status", status, "error", err)
		http.Error(w, http.StatusText(status), status)
		return
	}
	logger.Debug("rejecting table request", "status", status, "error", err)
	http.Error(w, err.Error(), status)
}

// StatusFor maps a rendering error to an HTTP status: filters running out of
// time are unavailable, bad filters and unknown sort fields are client
// errors, everything else is a server error.
func StatusFor(err error) int {
	var filterErr *filter.Error
	var unknown *datasource.UnknownFieldError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.As(err, &filterErr), errors.As(err, &unknown):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
