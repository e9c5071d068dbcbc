package columns

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/kong/ctable/internal/cmd/tableflags"
	"github.com/kong/ctable/internal/config"
	"github.com/kong/ctable/internal/iostreams"
	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/test/cmd"
	testConfig "github.com/kong/ctable/test/config"
)

func runColumns(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	c := NewColumnsCmd()
	require.NoError(t, c.Flags().Parse(args))
	cfg := &testConfig.MockConfigHook{}
	require.NoError(t, tableflags.BindFlags(cfg, c.Flags()))

	all, _, out, _ := iostreams.NewTestIOStreams()
	err := run(&cmd.MockHelper{
		GetCmdMock:          func() *cobra.Command { return c },
		GetConfigMock:       func() (config.Hook, error) { return cfg, nil },
		GetStreamsMock:      func() *iostreams.IOStreams { return &all },
		GetOutputFormatMock: func() (string, error) { return format, nil },
	})
	return out.String(), err
}

func TestColumns(t *testing.T) {
	t.Parallel()

	data := filepath.Join(t.TempDir(), "hosts.json")
	require.NoError(t, os.WriteFile(data, []byte(`[{"hostName": "a", "port": 80}]`), 0o600))
	definition := filepath.Join(t.TempDir(), "hosts.table.yaml")
	require.NoError(t, os.WriteFile(definition, []byte(`
fields:
  - hostName
  - {name: Port, header_style: col-1, sortable: false}
`), 0o600))

	tests := []struct {
		name string
		args []string
		want []table.ColumnSpec
	}{
		{
			name: "derived",
			args: []string{"--data", data},
			want: []table.ColumnSpec{
				{Name: "Hostname", HeaderStyle: table.DefaultHeaderStyle, Sortable: true},
				{Name: "Port", HeaderStyle: table.DefaultHeaderStyle, Sortable: true},
			},
		},
		{
			name: "definition",
			args: []string{"--data", data, "--definition", definition},
			want: []table.ColumnSpec{
				{Name: "Hostname", HeaderStyle: table.DefaultHeaderStyle, Sortable: true},
				{Name: "Port", HeaderStyle: "col-1", Sortable: false},
			},
		},
		{
			name: "fields flag wins",
			args: []string{"--data", data, "--definition", definition, "--fields", "port"},
			want: []table.ColumnSpec{
				{Name: "Port", HeaderStyle: table.DefaultHeaderStyle, Sortable: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out, err := runColumns(t, "json", tt.args...)
			require.NoError(t, err)
			var got []table.ColumnSpec
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.Equal(t, tt.want, got)
		})
	}
}

func TestColumnsText(t *testing.T) {
	t.Parallel()

	data := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(data, []byte("- name: a\n  port: 80\n"), 0o600))

	out, err := runColumns(t, "text", "--data", data)
	require.NoError(t, err)
	require.Equal(t, "NAME  HEADER STYLE  SORTABLE\nName  col-3         true\nPort  col-3         true\n", out)
}

func TestColumnsRequiresData(t *testing.T) {
	t.Parallel()

	_, err := runColumns(t, "json")
	require.ErrorContains(t, err, "a data file is required")
}
