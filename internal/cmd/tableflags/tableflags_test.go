package tableflags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/kong/ctable/internal/datasource"
	"github.com/kong/ctable/internal/table"
	testConfig "github.com/kong/ctable/test/config"
)

func resolve(t *testing.T, args ...string) Options {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	AddFlags(c.Flags())
	require.NoError(t, c.Flags().Parse(args))
	cfg := &testConfig.MockConfigHook{}
	require.NoError(t, BindFlags(cfg, c.Flags()))
	opts, err := Resolve(c, cfg)
	require.NoError(t, err)
	return opts
}

func TestResolve(t *testing.T) {
	t.Parallel()

	opts := resolve(t, "--data", " hosts.yaml ", "--fields", "name,port", "--children", "routes",
		"--markdown", "notes", "--sort", " Name ", "--name", "hosts")
	require.Equal(t, Options{
		Data:     "hosts.yaml",
		Name:     "hosts",
		Fields:   []string{"name", "port"},
		Children: "routes",
		Markdown: []string{"notes"},
		Sort:     "name",
	}, opts)
	require.NoError(t, opts.Validate())

	opts = resolve(t)
	require.Nil(t, opts.Fields)
	require.ErrorContains(t, opts.Validate(), "a data file is required")
}

func TestDefinition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := filepath.Join(dir, "services.yaml")
	require.NoError(t, os.WriteFile(data, []byte("- name: a\n  notes: '*hi*'\n"), 0o600))
	definition := filepath.Join(dir, "services.table.yaml")
	require.NoError(t, os.WriteFile(definition, []byte("name: catalog\nfields: [name]\ntable_style: table table-sm\n"), 0o600))

	tests := []struct {
		name      string
		opts      Options
		wantName  string
		wantStyle string
		wantCols  int
	}{
		{name: "flags only", opts: Options{Data: data}, wantName: "services", wantStyle: table.DefaultTableStyle},
		{name: "definition file", opts: Options{Data: data, DefinitionFile: definition}, wantName: "catalog", wantStyle: "table table-sm", wantCols: 1},
		{
			name:      "flags override the file",
			opts:      Options{Data: data, DefinitionFile: definition, Name: "other", Fields: []string{"name", "notes"}, Markdown: []string{"notes"}},
			wantName:  "other",
			wantStyle: "table table-sm",
			wantCols:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def, err := tt.opts.Definition()
			require.NoError(t, err)
			require.Equal(t, tt.wantName, def.Name)
			require.Equal(t, tt.wantStyle, def.TableStyle)
			require.Len(t, def.Fields, tt.wantCols)

			src, err := def.Source()
			require.NoError(t, err)
			require.Len(t, datasource.Collect(src), 1)
		})
	}
}

func TestDefinitionFieldsStayOnTopLevel(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	definition := filepath.Join(dir, "services.yaml")
	require.NoError(t, os.WriteFile(definition, []byte("fields: [name, routes]\nchildren: routes\nmarkdown: [name]\n"), 0o600))

	tests := []struct {
		name          string
		opts          Options
		wantChildCols []string
		wantChildMD   []string
	}{
		{
			name:        "children derive their columns",
			opts:        Options{Data: "x.yaml", Fields: []string{"name", "description"}, Children: "routes", Markdown: []string{"description"}},
			wantChildMD: []string{"description"},
		},
		{
			name:          "children keep the file columns",
			opts:          Options{Data: "x.yaml", DefinitionFile: definition, Fields: []string{"id"}, Markdown: []string{"id"}},
			wantChildCols: []string{"name", "routes"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			spec, err := tt.opts.Spec()
			require.NoError(t, err)
			require.Len(t, spec.Fields, len(tt.opts.Fields))
			require.NotNil(t, spec.Child)
			require.Equal(t, spec.Children, spec.Child.Children)
			require.Nil(t, spec.Child.Child)
			require.Equal(t, tt.wantChildMD, spec.Child.Markdown)

			var cols []string
			for _, f := range spec.Child.Fields {
				cols = append(cols, f.Name)
			}
			require.Equal(t, tt.wantChildCols, cols)
		})
	}
}

func TestDefinitionErrors(t *testing.T) {
	t.Parallel()

	_, err := Options{Data: "x.yaml", DefinitionFile: filepath.Join(t.TempDir(), "missing.yaml")}.Definition()
	require.ErrorContains(t, err, "read table definition")

	_, err = Options{Data: "x.yaml", Markdown: []string{"notes"}, Fields: []string{"name"}}.Definition()
	require.ErrorContains(t, err, `markdown field "notes" is not a declared field`)
}
