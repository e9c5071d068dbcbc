package columns

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/segmentio/cli"
	"github.com/spf13/cobra"

	"github.com/kong/ctable/internal/cmd"
	"github.com/kong/ctable/internal/cmd/common"
	"github.com/kong/ctable/internal/cmd/tableflags"
	"github.com/kong/ctable/internal/meta"
	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/internal/util/i18n"
	"github.com/kong/ctable/internal/util/normalizers"
)

var (
	columnsUse   = "columns"
	columnsShort = i18n.T("root.columns.columnsShort", "Print the normalized columns of a table")
	columnsLong  = normalizers.LongDesc(i18n.T("root.columns.columnsLong", `
	Print the columns a table would render: declared fields with their defaults
	filled in, or the fields of the first record when none are declared.`))
	columnsExample = normalizers.Examples(i18n.T("root.columns.columnsExamples",
		fmt.Sprintf(`
		# Columns derived from the data
		%[1]s columns --data services.yaml
		# Columns of a table definition, as JSON
		%[1]s columns --data services.yaml --definition services.table.yaml -o json
		`, meta.CLIName)))
)

// NewColumnsCmd builds the columns command.
func NewColumnsCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:     columnsUse,
		Short:   columnsShort,
		Long:    columnsLong,
		Example: columnsExample,
		Args:    cobra.NoArgs,
		PreRunE: func(c *cobra.Command, args []string) error {
			cfg, err := cmd.BuildHelper(c, args).GetConfig()
			if err != nil {
				return err
			}
			return tableflags.BindFlags(cfg, c.Flags())
		},
		RunE: func(c *cobra.Command, args []string) error {
			return run(cmd.BuildHelper(c, args))
		},
	}
	tableflags.AddFlags(rv.Flags())
	return rv
}

func run(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	opts, err := tableflags.Resolve(helper.GetCmd(), cfg)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	if err := opts.Validate(); err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}

	def, err := opts.Definition()
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	t := table.New(def)
	src, err := t.Source()
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	columns, err := t.Columns(src)
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}

	if outType == common.TEXT {
		return renderText(helper.GetStreams().Out, columns)
	}

	printer, err := cli.Format(outType.String(), helper.GetStreams().Out)
	if err != nil {
		return err
	}
	defer printer.Flush()
	printer.Print(columns)
	return nil
}

func renderText(out io.Writer, columns []table.ColumnSpec) error {
	if len(columns) == 0 {
		_, err := fmt.Fprintln(out, "No columns.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "NAME\tHEADER STYLE\tSORTABLE"); err != nil {
		return err
	}
	for _, c := range columns {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%t\n", c.Name, c.HeaderStyle, c.Sortable); err != nil {
			return err
		}
	}
	return tw.Flush()
}
