package log

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
)

type requestLogContextKey struct{}

// RequestLogContext contains metadata emitted with every log line of a table request.
type RequestLogContext struct {
	Method    string
	Path      string
	RequestID string
	Table     string
	Sort      string
	Partial   bool
}

var RequestLogContextKey = requestLogContextKey{}

// WithRequestLogContext merges non-empty fields from update into ctx.
func WithRequestLogContext(ctx context.Context, update RequestLogContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	current := RequestLogContextFromContext(ctx)
	mergeStringField(&current.Method, update.Method)
	mergeStringField(&current.Path, update.Path)
	mergeStringField(&current.RequestID, update.RequestID)
	mergeStringField(&current.Table, update.Table)
	mergeStringField(&current.Sort, update.Sort)
	if update.Partial {
		current.Partial = true
	}

	return context.WithValue(ctx, RequestLogContextKey, current)
}

// RequestLogContextFromContext extracts request logging metadata from ctx.
func RequestLogContextFromContext(ctx context.Context) RequestLogContext {
	if ctx == nil {
		return RequestLogContext{}
	}

	switch value := ctx.Value(RequestLogContextKey).(type) {
	case RequestLogContext:
		return value
	case *RequestLogContext:
		if value != nil {
			return *value
		}
	}

	return RequestLogContext{}
}

// RequestLogContextAttrs converts context metadata to slog attributes.
func RequestLogContextAttrs(ctx context.Context) []slog.Attr {
	meta := RequestLogContextFromContext(ctx)
	attrs := make([]slog.Attr, 0, 6)

	appendStringAttr(&attrs, "method", meta.Method)
	appendStringAttr(&attrs, "path", meta.Path)
	appendStringAttr(&attrs, "request_id", meta.RequestID)
	appendStringAttr(&attrs, "table", meta.Table)
	appendStringAttr(&attrs, "sort", meta.Sort)
	if meta.Partial {
		attrs = append(attrs, slog.String("partial", strconv.FormatBool(meta.Partial)))
	}

	return attrs
}

// LoggerWithRequestContext returns logger enriched with the request attributes in ctx.
func LoggerWithRequestContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	attrs := RequestLogContextAttrs(ctx)
	if len(attrs) == 0 {
		return OrDiscard(logger)
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return OrDiscard(logger).With(args...)
}

func mergeStringField(target *string, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}
	*target = trimmed
}

func appendStringAttr(attrs *[]slog.Attr, key, value string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}
	*attrs = append(*attrs, slog.String(key, trimmed))
}
