package render

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/segmentio/cli"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kong/ctable/internal/cmd"
	"github.com/kong/ctable/internal/cmd/common"
	"github.com/kong/ctable/internal/cmd/output/highlight"
	"github.com/kong/ctable/internal/cmd/tableflags"
	"github.com/kong/ctable/internal/config"
	"github.com/kong/ctable/internal/meta"
	"github.com/kong/ctable/internal/server"
	"github.com/kong/ctable/internal/table"
	"github.com/kong/ctable/internal/termtable"
	"github.com/kong/ctable/internal/theme"
	"github.com/kong/ctable/internal/tmpl"
	"github.com/kong/ctable/internal/util/i18n"
	"github.com/kong/ctable/internal/util/normalizers"
)

const (
	PageFlagName         = "page"
	TitleFlagName        = common.TitleFlagName
	TemplatesDirFlagName = common.TemplatesDirFlagName

	TerminalFlagName   = "terminal"
	TerminalConfigPath = "render.terminal"
	PaletteFlagName    = "palette"
	PaletteConfigPath  = "render.palette"
)

var (
	renderUse   = "render"
	renderShort = i18n.T("root.render.renderShort", "Render a collapsible table from a data file")
	renderLong  = normalizers.LongDesc(i18n.T("root.render.renderLong", `
	Render a data file as a collapsible HTML table and write the markup to
	standard output.

	With --output json or --output yaml the normalized columns and rendered rows
	are printed instead of the markup. With --terminal the table is drawn as
	text, nested tables expanded and indented below their parent table.`))
	renderExample = normalizers.Examples(i18n.T("root.render.renderExamples",
		fmt.Sprintf(`
		# Render every field of every record
		%[1]s render --data services.yaml
		# Render selected fields with nested routes, sorted by name
		%[1]s render --data services.yaml --fields name,host --children routes --sort name
		# Render a standalone page from a table definition
		%[1]s render --data services.yaml --definition services.table.yaml --page > services.html
		# Draw the table in the terminal
		%[1]s render --data services.yaml --children routes --terminal --palette ctable-dark
		`, meta.CLIName)))
)

// NewRenderCmd builds the render command.
func NewRenderCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:     renderUse,
		Short:   renderShort,
		Long:    renderLong,
		Example: renderExample,
		Args:    cobra.NoArgs,
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindFlags(c, args)
		},
		RunE: func(c *cobra.Command, args []string) error {
			helper := cmd.BuildHelper(c, args)
			if err := validate(helper); err != nil {
				return err
			}
			return run(helper)
		},
	}

	tableflags.AddFlags(rv.Flags())
	highlight.AddFlags(rv.Flags())
	rv.Flags().Bool(PageFlagName, false, "Wrap the table in a standalone HTML page.")
	rv.Flags().String(TitleFlagName, "", "Title of the page written with --page.")
	rv.Flags().String(TemplatesDirFlagName, "",
		"Directory holding a collapsible_table/ folder of templates that replace the built-in ones.")
	rv.Flags().Bool(TerminalFlagName, false,
		fmt.Sprintf(`Draw the table as terminal text instead of HTML.
- Config path: [ %s ]`, TerminalConfigPath))
	rv.Flags().Var(theme.NewFlag(theme.DefaultName), PaletteFlagName,
		fmt.Sprintf(`Color palette of --terminal output.
- Config path: [ %s ]
- Allowed    : [ %s ]`, PaletteConfigPath, strings.Join(theme.Available(), "|")))

	return rv
}

func bindFlags(c *cobra.Command, args []string) error {
	cfg, err := cmd.BuildHelper(c, args).GetConfig()
	if err != nil {
		return err
	}
	return bindConfig(cfg, c.Flags())
}

func bindConfig(cfg config.Hook, flags *pflag.FlagSet) error {
	if err := tableflags.BindFlags(cfg, flags); err != nil {
		return err
	}
	for _, b := range []struct{ flag, cfgPath string }{
		{TerminalFlagName, TerminalConfigPath},
		{PaletteFlagName, PaletteConfigPath},
	} {
		if err := cfg.BindFlag(b.cfgPath, flags.Lookup(b.flag)); err != nil {
			return err
		}
	}
	return highlight.BindFlags(cfg, flags)
}

func validate(helper cmd.Helper) error {
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
	if cfg.GetBool(TerminalConfigPath) {
		if page, _ := helper.GetCmd().Flags().GetBool(PageFlagName); page {
			return &cmd.ConfigurationError{
				Err: fmt.Errorf("--%s cannot be combined with --%s", PageFlagName, TerminalFlagName),
			}
		}
		if _, ok := theme.Get(cfg.GetString(PaletteConfigPath)); !ok {
			return &cmd.ConfigurationError{
				Err: fmt.Errorf("unknown palette %q, must be one of %v", cfg.GetString(PaletteConfigPath), theme.Available()),
			}
		}
	}
	return nil
}

func run(helper cmd.Helper) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	outType, err := helper.GetOutputFormat()
	if err != nil {
		return err
	}
	opts, err := tableflags.Resolve(helper.GetCmd(), cfg)
	if err != nil {
		return &cmd.ConfigurationError{Err: err}
	}
	if outType == common.TEXT && cfg.GetBool(TerminalConfigPath) {
		return runTerminal(helper, cfg, opts)
	}
	def, err := opts.Definition()
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}

	flags := helper.GetCmd().Flags()
	templatesDir, _ := flags.GetString(TemplatesDirFlagName)
	engine, err := newEngine(templatesDir)
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	defer engine.Close()
	def.Engine = engine

	t := table.New(def, table.WithSort(opts.Sort), table.WithLogger(logger))
	streams := helper.GetStreams()

	if outType != common.TEXT {
		tctx, err := t.Context(helper.GetContext())
		if err != nil {
			return cmd.PrepareExecutionErrorFromErr(helper, err)
		}
		printer, err := cli.Format(outType.String(), streams.Out)
		if err != nil {
			return err
		}
		defer printer.Flush()
		printer.Print(tctx)
		return nil
	}

	markup, err := t.Render(helper.GetContext())
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	out := string(markup)
	if page, _ := flags.GetBool(PageFlagName); page {
		title, _ := flags.GetString(TitleFlagName)
		if title == "" {
			title = def.Name
		}
		var buf bytes.Buffer
		err := engine.ExecutePage(&buf, tmpl.PageTemplate, server.Page{
			Title: title,
			Table: markup,
			Sort:  opts.Sort,
		})
		if err != nil {
			return cmd.PrepareExecutionErrorFromErr(helper, err)
		}
		out = buf.String()
	}

	settings, err := highlight.ResolveSettings(cfg)
	if err != nil {
		return err
	}
	return highlight.Write(streams.Out, out, "html", settings)
}

// runTerminal draws the table with the terminal engine. Markdown fields are
// rendered for the terminal too.
func runTerminal(helper cmd.Helper, cfg config.Hook, opts tableflags.Options) error {
	logger, err := helper.GetLogger()
	if err != nil {
		return err
	}
	settings, err := highlight.ResolveSettings(cfg)
	if err != nil {
		return err
	}
	palette, ok := theme.Get(cfg.GetString(PaletteConfigPath))
	if !ok {
		palette = theme.Default()
	}
	streams := helper.GetStreams()
	noColor := !highlight.ShouldUseColor(settings.ColorMode, streams.Out)

	md := &termtable.Markdown{NoColor: noColor}
	def, err := opts.DefinitionWith(md.Field)
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	def.Engine = termtable.New(streams.Out, termtable.Options{Palette: palette, NoColor: noColor})

	text, err := table.New(def, table.WithSort(opts.Sort), table.WithLogger(logger)).Render(helper.GetContext())
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	_, err = fmt.Fprintln(streams.Out, string(text))
	return err
}

func newEngine(templatesDir string) (*tmpl.Engine, error) {
	if templatesDir == "" {
		return tmpl.NewEmbedded()
	}
	if _, err := os.Stat(templatesDir); err != nil {
		return nil, fmt.Errorf("templates directory: %w", err)
	}
	return tmpl.NewFS(nil, os.DirFS(templatesDir))
}
