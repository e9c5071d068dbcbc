package table

import (
	"context"
	"html/template"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kong/ctable/internal/datasource"
	terr "github.com/kong/ctable/internal/err"
)

func TestParseSpec(t *testing.T) {
	t.Parallel()

	spec, err := ParseSpec([]byte(`
name: services
fields:
  - name
  - name: host
    header_style: col-4
  - description
markdown: [description]
children: routes
child:
  fields: [path]
  table_style: table table-sm
`))
	require.NoError(t, err)

	require.Equal(t, "services", spec.Name)
	require.Equal(t, DefaultTableStyle, spec.TableStyle)
	require.Equal(t, DefaultExpandHeaderStyle, spec.ExpandHeaderStyle)
	require.Equal(t, []Field{Name("name"), {Name: "host", HeaderStyle: ptr("col-4")}, Name("description")}, spec.Fields)
	require.NotNil(t, spec.Child)
	require.Equal(t, "table table-sm", spec.Child.TableStyle)
	require.Equal(t, DefaultExpandHeaderStyle, spec.Child.ExpandHeaderStyle)
}

func TestParseSpecKeepsEmptyFields(t *testing.T) {
	t.Parallel()

	spec, err := ParseSpec([]byte(`fields: []`))
	require.NoError(t, err)
	require.NotNil(t, spec.Fields)
	require.Empty(t, spec.Fields)

	spec, err = ParseSpec([]byte(`name: all`))
	require.NoError(t, err)
	require.Nil(t, spec.Fields)
}

func TestParseSpecErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		raw    string
		errMsg []string
	}{
		{
			name:   "unknown key",
			raw:    "colour: red",
			errMsg: []string{"decode table definition"},
		},
		{
			name: "every problem is reported",
			raw: `
fields: [id, "", ID]
markdown: [notes]
child:
  fields: [{name: ""}]
`,
			errMsg: []string{
				"invalid table definition",
				"field 1 has no name",
				`field "ID" is declared twice`,
				`markdown field "notes" is not a declared field`,
				"child definition given without a children field",
				"child: field 0 has no name",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSpec([]byte(tt.raw))
			require.Error(t, err)
			var cfgErr *terr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			for _, msg := range tt.errMsg {
				require.Contains(t, err.Error(), msg)
			}
		})
	}
}

func TestLoadSpec(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "table.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "pets", "fields": ["__all__"]}`), 0o600))

	spec, err := LoadSpec(path)
	require.NoError(t, err)
	require.Equal(t, "pets", spec.Name)

	_, err = LoadSpec(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSpecDefinition(t *testing.T) {
	t.Parallel()

	spec, err := ParseSpec([]byte(`
fields: [name, notes]
markdown: [notes]
children: routes
child:
  fields: [path]
`))
	require.NoError(t, err)

	data := datasource.NewSlice(datasource.MapRecordOf(map[string]any{
		"name":   "svc",
		"notes":  "*hot*",
		"routes": []any{map[string]any{"path": "/a"}},
	}))
	markup, err := New(spec.Definition(), WithData(data), WithEngine(&textEngine{})).Render(context.Background())
	require.NoError(t, err)
	require.Equal(t, template.HTML("[Name,Notes|svc,<p><em>hot</em></p>\n[Path|/a]]"), markup)
}
