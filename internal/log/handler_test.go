package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDualHandlerMirrorsErrorsToConsole(t *testing.T) {
	var primaryBuf bytes.Buffer
	var consoleBuf bytes.Buffer

	primary := slog.NewTextHandler(&primaryBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	console := slog.NewTextHandler(&consoleBuf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewDualHandler(primary, console, slog.LevelError))

	logger.Error("boom", slog.String("foo", "bar"))
	logger.Debug("rendered row")

	require.Contains(t, primaryBuf.String(), "boom")
	require.Contains(t, primaryBuf.String(), "rendered row")
	require.Contains(t, consoleBuf.String(), "boom")
	require.NotContains(t, consoleBuf.String(), "rendered row")
}

func TestDualHandlerWithAttrsAppliesToBoth(t *testing.T) {
	var primaryBuf bytes.Buffer
	var consoleBuf bytes.Buffer

	primary := slog.NewTextHandler(&primaryBuf, nil)
	console := slog.NewTextHandler(&consoleBuf, nil)
	logger := slog.New(NewDualHandler(primary, console, slog.LevelWarn)).With("table", "services")

	logger.Warn("slow render")

	require.Contains(t, primaryBuf.String(), "table=services")
	require.Contains(t, consoleBuf.String(), "table=services")
}

func TestDualHandlerWithoutConsole(t *testing.T) {
	var primaryBuf bytes.Buffer
	primary := slog.NewTextHandler(&primaryBuf, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler := NewDualHandler(primary, nil, slog.LevelError)

	require.False(t, handler.Enabled(context.Background(), slog.LevelDebug))
	slog.New(handler).Error("boom")
	require.Contains(t, primaryBuf.String(), "boom")
}

func TestFriendlyErrorHandlerFormatsRequestErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFriendlyErrorHandler(&buf))

	logger.Info("ignored")
	logger.Error("failed to render table",
		"method", "GET",
		"path", "/services",
		"hint", "check the sort parameter",
		"error", errors.New("unknown field \"colour\""),
		"table", "services",
	)

	got := buf.String()
	require.NotContains(t, got, "ignored")
	require.True(t, strings.HasPrefix(got, "Error: GET /services: failed to render table\n"), got)
	require.Contains(t, got, "  hint: check the sort parameter\n")
	require.Contains(t, got, "  table: services\n")
	require.NotContains(t, got, "method:")
}

func TestFriendlyErrorHandlerFallsBackToErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewFriendlyErrorHandler(&buf))

	logger.Error("", "error", "listen tcp: address in use")

	require.Equal(t, "Error: listen tcp: address in use\n", buf.String())
}
