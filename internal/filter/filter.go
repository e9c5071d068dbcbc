// Package filter narrows a data source from the query parameters of a request.
package filter

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/ajg/form"

	"github.com/kong/ctable/internal/datasource"
)

const (
	SortParam     = "sort"
	JQParam       = "jq"
	JMESPathParam = "jmespath"
	SearchParam   = "q"
)

// Reserved lists the parameters that never name a record field.
var Reserved = []string{SortParam, JQParam, JMESPathParam, SearchParam}

// Filter narrows src according to params. Filters evaluating expressions
// stop when ctx is done.
type Filter interface {
	Apply(ctx context.Context, params url.Values, src datasource.Source) (datasource.Source, error)
}

// Func adapts a function to Filter.
type Func func(ctx context.Context, params url.Values, src datasource.Source) (datasource.Source, error)

func (f Func) Apply(ctx context.Context, params url.Values, src datasource.Source) (datasource.Source, error) {
	return f(ctx, params, src)
}

// Error reports a filter parameter that could not be used.
type Error struct {
	Param string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s filter: %v", e.Param, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Params are the well-known query parameters.
type Params struct {
	Sort     string `form:"sort"`
	JQ       string `form:"jq"`
	JMESPath string `form:"jmespath"`
	Search   string `form:"q"`
}

// DecodeParams extracts the well-known parameters from values; other keys
// are ignored.
func DecodeParams(values url.Values) (Params, error) {
	known := url.Values{}
	for _, k := range Reserved {
		if v := values.Get(k); v != "" {
			known.Set(k, v)
		}
	}
	var p Params
	d := form.NewDecoder(nil)
	d.IgnoreUnknownKeys(true)
	if err := d.DecodeValues(&p, known); err != nil {
		return Params{}, &Error{Param: "query", Err: err}
	}
	p.Sort = strings.ToLower(strings.TrimSpace(p.Sort))
	p.JQ = strings.TrimSpace(p.JQ)
	p.JMESPath = strings.TrimSpace(p.JMESPath)
	p.Search = strings.TrimSpace(p.Search)
	return p, nil
}

// Chain applies filters in order.
func Chain(filters ...Filter) Filter {
	return Func(func(ctx context.Context, params url.Values, src datasource.Source) (datasource.Source, error) {
		var err error
		for _, f := range filters {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if src, err = f.Apply(ctx, params, src); err != nil {
				return nil, err
			}
		}
		return src, nil
	})
}

// Default matches fields, then the free-text search, then jq and JMESPath
// expressions. keys restricts field matching as in Fields.
func Default(keys ...string) Filter {
	return Chain(Fields{Keys: keys}, Search{}, JQ{}, JMESPath{})
}

// None leaves the source untouched.
var None Filter = Func(func(_ context.Context, _ url.Values, src datasource.Source) (datasource.Source, error) {
	return src, nil
})

// Fields keeps the records whose field equals the value of a query parameter
// of the same name, compared case-insensitively. With Keys set only those
// parameters are considered; otherwise any parameter naming a field of the
// first record is. Repeated parameters match any of their values.
type Fields struct {
	Keys []string
}

func (f Fields) Apply(_ context.Context, params url.Values, src datasource.Source) (datasource.Source, error) {
	first, ok := src.First()
	if !ok {
		return src, nil
	}

	matches := map[string][]string{}
	for key, values := range params {
		lower := strings.ToLower(key)
		if slices.Contains(Reserved, lower) || len(values) == 0 {
			continue
		}
		if len(f.Keys) > 0 {
			if !slices.ContainsFunc(f.Keys, func(k string) bool { return strings.EqualFold(k, key) }) {
				continue
			}
		} else if _, known := first.Get(key); !known {
			continue
		}
		matches[key] = values
	}
	if len(matches) == 0 {
		return src, nil
	}

	return src.Filter(func(rec datasource.Record) (bool, error) {
		for key, values := range matches {
			v, _ := rec.Get(key)
			got := ""
			if !datasource.IsNil(v) {
				got = fmt.Sprint(v)
			}
			if !slices.ContainsFunc(values, func(want string) bool { return strings.EqualFold(want, got) }) {
				return false, nil
			}
		}
		return true, nil
	})
}

// Search keeps the records with a value containing the q parameter,
// case-insensitively.
type Search struct{}

func (Search) Apply(_ context.Context, params url.Values, src datasource.Source) (datasource.Source, error) {
	p, err := DecodeParams(params)
	if err != nil {
		return nil, err
	}
	if p.Search == "" {
		return src, nil
	}
	needle := strings.ToLower(p.Search)
	return src.Filter(func(rec datasource.Record) (bool, error) {
		for _, k := range rec.Keys() {
			v, _ := rec.Get(k)
			if containsText(v, needle) {
				return true, nil
			}
		}
		return false, nil
	})
}

func containsText(v any, needle string) bool {
	switch value := v.(type) {
	case nil:
		return false
	case []datasource.Record, datasource.Record, datasource.Source:
		// nested tables are searched when they are rendered
		return false
	case []any:
		return slices.ContainsFunc(value, func(item any) bool { return containsText(item, needle) })
	default:
		return strings.Contains(strings.ToLower(fmt.Sprint(value)), needle)
	}
}
