package root

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kong/ctable/internal/cmd/common"
	testConfig "github.com/kong/ctable/test/config"
)

func TestNewLoggerConsole(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	cfg := &testConfig.MockConfigHook{Values: map[string]any{
		common.LogLevelConfigPath: "debug",
	}}
	logger, closer, err := newLogger(cfg, &console)
	require.NoError(t, err)
	require.Nil(t, closer)

	logger.Debug("rendering table", "table", "services")
	require.Contains(t, console.String(), "msg=\"rendering table\"")
	require.Contains(t, console.String(), "table=services")
}

func TestNewLoggerFile(t *testing.T) {
	t.Parallel()

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "ctable.log")
	cfg := &testConfig.MockConfigHook{Values: map[string]any{
		common.LogLevelConfigPath: "info",
		common.LogFileConfigPath:  path,
	}}
	logger, closer, err := newLogger(cfg, &console)
	require.NoError(t, err)
	require.NotNil(t, closer)

	logger.Debug("hidden")
	logger.Info("table server started", "listen_address", "127.0.0.1:8080")
	logger.Error("failed to render table", "error", "boom", "method", "GET", "path", "/")
	require.NoError(t, closer.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "hidden")
	require.Contains(t, string(raw), `"msg":"table server started"`)
	require.Contains(t, string(raw), `"msg":"failed to render table"`)

	require.Equal(t, "Error: GET /: failed to render table\n", console.String())
}

func TestRootCommands(t *testing.T) {
	t.Parallel()

	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"columns", "render", "serve", "version"} {
		require.True(t, names[want], "missing %s command", want)
	}
	require.NotNil(t, rootCmd.PersistentFlags().Lookup(common.LogFileFlagName))
}
