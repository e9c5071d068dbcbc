// Package tableflags holds the flags shared by the commands that render a
// table from a data file.
package tableflags

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kong/ctable/internal/config"
	"github.com/kong/ctable/internal/datasource"
	"github.com/kong/ctable/internal/table"
)

const (
	DataFlagName         = "data"
	DataConfigPath       = "table." + DataFlagName
	DefinitionFlagName   = "definition"
	DefinitionConfigPath = "table." + DefinitionFlagName
	NameFlagName         = "name"
	FieldsFlagName       = "fields"
	ChildrenFlagName     = "children"
	MarkdownFlagName     = "markdown"
	SortFlagName         = "sort"
)

// AddFlags registers the table flags on flags.
func AddFlags(flags *pflag.FlagSet) {
	flags.String(DataFlagName, "",
		fmt.Sprintf(`Path to a .yaml, .yml, .json or .jsonl file holding the table records.
- Config path: [ %s ]`, DataConfigPath))
	flags.String(DefinitionFlagName, "",
		fmt.Sprintf(`Path to a table definition file. Other table flags override it.
- Config path: [ %s ]`, DefinitionConfigPath))
	flags.String(NameFlagName, "", "Name of the table.")
	flags.StringSlice(FieldsFlagName, nil,
		fmt.Sprintf("Fields to show, in order. %s shows every field of the first record.", table.AllFields))
	flags.String(ChildrenFlagName, "", "Field holding the nested records of each row.")
	flags.StringSlice(MarkdownFlagName, nil, "Fields rendered as markdown.")
	flags.String(SortFlagName, "", "Field to sort the rows by.")
}

// BindFlags binds the flags that have a configuration path.
func BindFlags(cfg config.Hook, flags *pflag.FlagSet) error {
	for _, b := range []struct{ flag, cfgPath string }{
		{DataFlagName, DataConfigPath},
		{DefinitionFlagName, DefinitionConfigPath},
	} {
		if f := flags.Lookup(b.flag); f != nil {
			if err := cfg.BindFlag(b.cfgPath, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// Options are the resolved table flags.
type Options struct {
	Data           string
	DefinitionFile string
	Name           string
	// Fields overrides the columns of the top-level table only.
	Fields   []string
	Children string
	Markdown []string
	Sort     string
}

// Resolve reads the table flags of command, taking the data and definition
// paths from cfg so configuration files and environment variables apply.
func Resolve(command *cobra.Command, cfg config.Hook) (Options, error) {
	flags := command.Flags()
	var opts Options
	var err error
	if opts.Name, err = flags.GetString(NameFlagName); err != nil {
		return Options{}, err
	}
	if opts.Children, err = flags.GetString(ChildrenFlagName); err != nil {
		return Options{}, err
	}
	if opts.Sort, err = flags.GetString(SortFlagName); err != nil {
		return Options{}, err
	}
	if flags.Changed(FieldsFlagName) {
		if opts.Fields, err = flags.GetStringSlice(FieldsFlagName); err != nil {
			return Options{}, err
		}
	}
	if opts.Markdown, err = flags.GetStringSlice(MarkdownFlagName); err != nil {
		return Options{}, err
	}
	opts.Data = strings.TrimSpace(cfg.GetString(DataConfigPath))
	opts.DefinitionFile = strings.TrimSpace(cfg.GetString(DefinitionConfigPath))
	opts.Sort = strings.ToLower(strings.TrimSpace(opts.Sort))
	return opts, nil
}

// Validate checks the options that do not need any file access.
func (o Options) Validate() error {
	if o.Data == "" {
		return fmt.Errorf("a data file is required, set --%s or %s", DataFlagName, DataConfigPath)
	}
	return nil
}

// Spec builds the table definition: the definition file when given, with the
// name, fields, children and markdown options layered on top. Nested tables
// without a child definition keep the columns of the file, or derive them
// from their own records, when Fields is set.
func (o Options) Spec() (*table.Spec, error) {
	spec := &table.Spec{}
	if o.DefinitionFile != "" {
		loaded, err := table.LoadSpec(o.DefinitionFile)
		if err != nil {
			return nil, err
		}
		spec = loaded
	}
	if o.Name != "" {
		spec.Name = o.Name
	}
	if o.Children != "" {
		spec.Children = o.Children
	}
	if len(o.Markdown) > 0 {
		spec.Markdown = o.Markdown
	}
	if o.Fields != nil {
		if spec.Children != "" && spec.Child == nil {
			spec.Child = childSpec(spec)
		}
		spec.Fields = table.Names(o.Fields...)
	}
	if err := spec.Complete(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Definition builds the runtime definition, reading records from the data
// file each time the table asks for its source.
func (o Options) Definition() (*table.Definition, error) {
	return o.DefinitionWith(table.Markdown)
}

// DefinitionWith is Definition with markdown fields rendered by md.
func (o Options) DefinitionWith(md func(field string) table.RenderFunc) (*table.Definition, error) {
	spec, err := o.Spec()
	if err != nil {
		return nil, err
	}
	def := spec.DefinitionWith(md)
	if def.Name == "" {
		def.Name = tableName(o.Data)
	}
	path := o.Data
	def.Source = func() (datasource.Source, error) {
		return datasource.Load(path)
	}
	return def, nil
}

// childSpec copies base for the nested tables, keeping the markdown fields
// they can show.
func childSpec(base *table.Spec) *table.Spec {
	child := &table.Spec{
		Name:              base.Name,
		Fields:            slices.Clone(base.Fields),
		TableStyle:        base.TableStyle,
		ExpandHeaderStyle: base.ExpandHeaderStyle,
		Children:          base.Children,
	}
	for _, m := range base.Markdown {
		if declares(child.Fields, m) {
			child.Markdown = append(child.Markdown, m)
		}
	}
	return child
}

func declares(fields []table.Field, name string) bool {
	if fields == nil {
		return true
	}
	return slices.ContainsFunc(fields, func(f table.Field) bool {
		return f.Name == table.AllFields || strings.EqualFold(f.Name, name)
	})
}

func tableName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
