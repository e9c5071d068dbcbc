package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/itchyny/gojq"
	"github.com/jmespath/go-jmespath"

	"github.com/kong/ctable/internal/datasource"
)

// QueryCacheSize bounds the compiled expressions kept per language.
const QueryCacheSize = 128

var (
	jqQueryCache, _       = lru.New[string, *gojq.Code](QueryCacheSize)
	jmespathQueryCache, _ = lru.New[string, *jmespath.JMESPath](QueryCacheSize)
)

// JQ keeps the records for which the jq parameter yields a truthy first
// result. Records are seen as JSON objects.
type JQ struct{}

func (JQ) Apply(ctx context.Context, params url.Values, src datasource.Source) (datasource.Source, error) {
	p, err := DecodeParams(params)
	if err != nil {
		return nil, err
	}
	if p.JQ == "" {
		return src, nil
	}
	code, err := getCachedQuery(p.JQ)
	if err != nil {
		return nil, &Error{Param: JQParam, Err: err}
	}

	out, err := src.Filter(func(rec datasource.Record) (bool, error) {
		iter := code.RunWithContext(ctx, datasource.Plain(rec))
		v, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := v.(error); isErr {
			return false, fmt.Errorf("jq filter failed: %w", err)
		}
		return truthy(normalizeGoJQValue(v)), nil
	})
	if err != nil {
		return nil, &Error{Param: JQParam, Err: err}
	}
	return out, nil
}

func getCachedQuery(filter string) (*gojq.Code, error) {
	if code, ok := jqQueryCache.Get(filter); ok {
		return code, nil
	}

	parsed, err := gojq.Parse(filter)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}

	jqQueryCache.Add(filter, code)
	return code, nil
}

func normalizeGoJQValue(v any) any {
	switch value := v.(type) {
	case map[any]any:
		converted := make(map[string]any, len(value))
		for k, val := range value {
			converted[fmt.Sprint(k)] = normalizeGoJQValue(val)
		}
		return converted
	case []any:
		for i := range value {
			value[i] = normalizeGoJQValue(value[i])
		}
		return value
	default:
		return value
	}
}

// truthy follows jq: everything but null and false.
func truthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	default:
		return true
	}
}

// JMESPath keeps the records for which the jmespath parameter yields a
// truthy result: not null, false or an empty string, list or object.
type JMESPath struct{}

func (JMESPath) Apply(ctx context.Context, params url.Values, src datasource.Source) (datasource.Source, error) {
	p, err := DecodeParams(params)
	if err != nil {
		return nil, err
	}
	if p.JMESPath == "" {
		return src, nil
	}
	query, err := getCachedJMESPath(p.JMESPath)
	if err != nil {
		return nil, &Error{Param: JMESPathParam, Err: err}
	}

	out, err := src.Filter(func(rec datasource.Record) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		data, err := jsonValue(rec)
		if err != nil {
			return false, err
		}
		v, err := query.Search(data)
		if err != nil {
			return false, fmt.Errorf("jmespath search failed: %w", err)
		}
		return jmespathTruthy(v), nil
	})
	if err != nil {
		return nil, &Error{Param: JMESPathParam, Err: err}
	}
	return out, nil
}

// jsonValue decodes rec the way encoding/json would, with float64 numbers,
// which is what JMESPath comparisons operate on.
func jsonValue(rec datasource.Record) (any, error) {
	raw, err := json.Marshal(datasource.Plain(rec))
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return v, nil
}

func getCachedJMESPath(expr string) (*jmespath.JMESPath, error) {
	if q, ok := jmespathQueryCache.Get(expr); ok {
		return q, nil
	}
	q, err := jmespath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jmespath expression: %w", err)
	}
	jmespathQueryCache.Add(expr, q)
	return q, nil
}

func jmespathTruthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case bool:
		return value
	case string:
		return value != ""
	case []any:
		return len(value) > 0
	case map[string]any:
		return len(value) > 0
	default:
		return true
	}
}
