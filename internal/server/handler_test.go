package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kong/ctable/internal/datasource"
	"github.com/kong/ctable/internal/filter"
	"github.com/kong/ctable/internal/session"
	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/internal/tmpl"
)

func services() datasource.Source {
	return datasource.FromMaps([]map[string]any{
		{"name": "search", "protocol": "http", "routes": []any{map[string]any{"path": "/find"}}},
		{"name": "billing", "protocol": "https"},
		{"name": "catalog", "protocol": "http"},
	}, "name", "protocol", "routes")
}

func newHandler(t *testing.T, logger *slog.Logger) *Handler {
	t.Helper()
	engine, err := tmpl.NewEmbedded()
	require.NoError(t, err)
	return &Handler{
		Table: &table.Definition{
			Name:     "services",
			Fields:   table.Names("name", "protocol"),
			Children: table.ChildrenField("routes"),
			Child:    &table.Definition{Fields: table.Names("path")},
			Engine:   engine,
			Source:   func() (datasource.Source, error) { return services(), nil },
		},
		Sessions: session.NewMemoryStore("", time.Hour),
		Pages:    engine,
		Title:    "Services",
		Logger:   logger,
	}
}

func get(h http.Handler, target string, headers map[string]string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	for _, c := range cookies {
		r.AddCookie(c)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func order(t *testing.T, body string, names ...string) {
	t.Helper()
	last := -1
	for _, n := range names {
		i := strings.Index(body, ">"+n+"</td>")
		require.Greater(t, i, last, "%s out of order", n)
		last = i
	}
}

func TestHandlerRendersPage(t *testing.T) {
	t.Parallel()

	w := get(newHandler(t, nil), "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))

	body := w.Body.String()
	require.Contains(t, body, "<!DOCTYPE html>")
	require.Contains(t, body, "<title>Services</title>")
	require.Contains(t, body, `data-table="services"`)
	require.Contains(t, body, `<td id="ct-0-0-path" class="m-1">/find</td>`)
	order(t, body, "search", "billing", "catalog")
	require.Empty(t, w.Result().Cookies())
}

func TestHandlerPartial(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)
	for _, headers := range []map[string]string{
		{"HX-Request": "true"},
		{"X-Requested-With": "XMLHttpRequest"},
	} {
		w := get(h, "/?sort=name", headers)
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		require.NotContains(t, body, "<html")
		require.Contains(t, body, "Sorted by Name")
		require.True(t, strings.HasSuffix(strings.TrimSpace(body), "</table>"))
	}
}

func TestHandlerRemembersSort(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)

	w := get(h, "/?sort=NAME", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order(t, w.Body.String(), "billing", "catalog", "search")
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)

	// no sort parameter: the session decides
	w = get(h, "/", nil, cookies[0])
	order(t, w.Body.String(), "billing", "catalog", "search")
	require.Contains(t, w.Body.String(), `aria-sort="ascending"`)

	// another client is unaffected
	w = get(h, "/", nil)
	order(t, w.Body.String(), "search", "billing", "catalog")

	// an empty sort parameter clears it
	w = get(h, "/?sort=", nil, cookies[0])
	order(t, w.Body.String(), "search", "billing", "catalog")
	w = get(h, "/", nil, cookies[0])
	order(t, w.Body.String(), "search", "billing", "catalog")
}

func TestHandlerCustomSorter(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)
	h.Table.SortBy("protocol", func(src datasource.Source) (datasource.Source, error) {
		sorted, err := src.OrderBy("protocol")
		if err != nil {
			return nil, err
		}
		records := datasource.Collect(sorted)
		for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
			records[i], records[j] = records[j], records[i]
		}
		return datasource.NewSlice(records...), nil
	})

	w := get(h, "/?sort=protocol", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order(t, w.Body.String(), "billing", "catalog", "search")
}

func TestHandlerFilters(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)

	w := get(h, "/?protocol=http&sort=name", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	order(t, body, "catalog", "search")
	require.NotContains(t, body, ">billing</td>")
	// sort links keep the filter
	require.Contains(t, body, `href="?protocol=http&amp;sort=protocol"`)
	require.Contains(t, body, `hx-get="?protocol=http&amp;sort=name"`)

	w = get(h, `/?jq=.name+%7C+startswith(%22b%22)`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), ">billing</td>")
	require.NotContains(t, w.Body.String(), ">search</td>")

	h.Filter = filter.None
	w = get(h, "/?protocol=http", nil)
	require.Contains(t, w.Body.String(), ">billing</td>")
}

func TestHandlerErrors(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newHandler(t, logger)

	w := get(h, "/?sort=colour", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), `cannot order by unknown field "colour"`)

	w = get(h, "/?jq=.name+%3E", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid jq filter")

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))

	h.Table.Source = func() (datasource.Source, error) { return nil, errors.New("database is down") }
	w = get(h, "/", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.NotContains(t, w.Body.String(), "database is down")
	require.Contains(t, logs.String(), "database is down")
	require.Contains(t, logs.String(), "table=services")
}

func TestHandlerDropsStaleSessionSort(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)
	w := get(h, "/?sort=name", nil)
	cookie := w.Result().Cookies()[0]

	h.Table.Fields = table.Names("protocol")
	h.Table.Source = func() (datasource.Source, error) {
		return datasource.FromMaps([]map[string]any{{"protocol": "grpc"}}), nil
	}
	w = get(h, "/", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), ">grpc</td>")
}

func TestHandlerHead(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodHead, "/", nil)
	w := httptest.NewRecorder()
	newHandler(t, nil).ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	require.Zero(t, w.Body.Len())
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusBadRequest, StatusFor(&filter.Error{Param: "jq", Err: errors.New("x")}))
	require.Equal(t, http.StatusBadRequest, StatusFor(&datasource.UnknownFieldError{Field: "x"}))
	require.Equal(t, http.StatusInternalServerError, StatusFor(table.ErrSourceNotDefined))
	require.Equal(t, http.StatusServiceUnavailable,
		StatusFor(&filter.Error{Param: "jq", Err: context.DeadlineExceeded}))
}

func TestHandlerFilterTimeout(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)
	h.FilterTimeout = 50 * time.Millisecond

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- get(h, "/?jq=last(range(1e12))", nil)
	}()
	select {
	case w := <-done:
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("request did not finish after its filter timed out")
	}
}

func TestHandlerStopsFilteringWhenClientLeaves(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequestWithContext(ctx, http.MethodGet, "/?jq=last(range(1e12))", nil)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		h.ServeHTTP(w, r)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
		require.NotEqual(t, http.StatusOK, w.Code)
	case <-time.After(5 * time.Second):
		t.Fatal("request kept filtering after its context was canceled")
	}
}

func TestServeListener(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ServeListener(ctx, listener, NewMux(newHandler(t, nil)), nil)
	}()

	base := "http://" + listener.Addr().String()
	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "<title>Services</title>")

	resp, err = http.Get(base + "/favicon.ico")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHandlerDefaultSort(t *testing.T) {
	t.Parallel()

	h := newHandler(t, nil)
	h.DefaultSort = "Name"

	w := get(h, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order(t, w.Body.String(), "billing", "catalog", "search")

	// an explicit empty sort still wins over the default
	w = get(h, "/?sort=", nil)
	order(t, w.Body.String(), "search", "billing", "catalog")

	h.DefaultSort = "colour"
	w = get(h, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	order(t, w.Body.String(), "search", "billing", "catalog")
}
