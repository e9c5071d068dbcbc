package serve

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kong/ctable/internal/cmd"
	"github.com/kong/ctable/internal/cmd/common"
	"github.com/kong/ctable/internal/cmd/tableflags"
	"github.com/kong/ctable/internal/config"
	"github.com/kong/ctable/internal/meta"
	"github.com/kong/ctable/internal/server"
	"github.com/kong/ctable/internal/session"
	"github.com/kong/ctable/internal/tmpl"
	"github.com/kong/ctable/internal/util/i18n"
	"github.com/kong/ctable/internal/util/normalizers"
)

var (
	serveUse   = "serve"
	serveShort = i18n.T("root.serve.serveShort", "Serve a collapsible table over HTTP")
	serveLong  = normalizers.LongDesc(i18n.T("root.serve.serveLong", `
	Serve a data file as a collapsible HTML table.

	The page sorts by the sort query parameter and remembers the choice per
	browser session. Other query parameters filter the rows: a field name
	matches that field, q searches every field, jq and jmespath keep the rows
	for which the expression is true. Requests sent by htmx or with
	X-Requested-With: XMLHttpRequest receive the table fragment only.

	The data file is read again on every request.`))
	serveExample = normalizers.Examples(i18n.T("root.serve.serveExamples",
		fmt.Sprintf(`
		# Serve a data file on the default address
		%[1]s serve --data services.yaml --children routes
		# Serve with a definition and templates that reload when edited
		%[1]s serve --data services.yaml --definition services.table.yaml --templates-dir ./templates
		`, meta.CLIName)))
)

// NewServeCmd builds the serve command.
func NewServeCmd() *cobra.Command {
	rv := &cobra.Command{
		Use:     serveUse,
		Short:   serveShort,
		Long:    serveLong,
		Example: serveExample,
		Args:    cobra.NoArgs,
		PreRunE: func(c *cobra.Command, args []string) error {
			return bindFlags(c, args)
		},
		RunE: func(c *cobra.Command, args []string) error {
			helper := cmd.BuildHelper(c, args)
			opts, err := validate(helper)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(helper.GetContext(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, helper, opts)
		},
	}

	tableflags.AddFlags(rv.Flags())
	rv.Flags().String(common.ListenAddressFlagName, common.DefaultListenAddress,
		fmt.Sprintf(`Address to listen on.
- Config path: [ %s ]`, common.ListenAddressConfigPath))
	rv.Flags().String(common.TitleFlagName, "",
		fmt.Sprintf(`Page title. Defaults to the table name.
- Config path: [ %s ]`, common.TitleConfigPath))
	rv.Flags().String(common.TemplatesDirFlagName, "",
		fmt.Sprintf(`Directory holding a collapsible_table/ folder of templates that replace the built-in ones.
The templates are parsed again when they change.
- Config path: [ %s ]`, common.TemplatesDirConfigPath))
	rv.Flags().Duration(common.SessionTTLFlagName, common.DefaultSessionTTL,
		fmt.Sprintf(`How long an idle session remembers its sort key.
- Config path: [ %s ]`, common.SessionTTLConfigPath))
	rv.Flags().String(common.SessionCookieFlagName, session.DefaultCookieName,
		fmt.Sprintf(`Name of the session cookie.
- Config path: [ %s ]`, common.SessionCookieConfigPath))

	return rv
}

func bindFlags(c *cobra.Command, args []string) error {
	cfg, err := cmd.BuildHelper(c, args).GetConfig()
	if err != nil {
		return err
	}
	if err := tableflags.BindFlags(cfg, c.Flags()); err != nil {
		return err
	}
	for _, b := range []struct{ flag, cfgPath string }{
		{common.ListenAddressFlagName, common.ListenAddressConfigPath},
		{common.TitleFlagName, common.TitleConfigPath},
		{common.TemplatesDirFlagName, common.TemplatesDirConfigPath},
		{common.SessionTTLFlagName, common.SessionTTLConfigPath},
		{common.SessionCookieFlagName, common.SessionCookieConfigPath},
	} {
		if err := cfg.BindFlag(b.cfgPath, c.Flags().Lookup(b.flag)); err != nil {
			return err
		}
	}
	return nil
}

func validate(helper cmd.Helper) (tableflags.Options, error) {
	cfg, err := helper.GetConfig()
	if err != nil {
		return tableflags.Options{}, err
	}
	opts, err := tableflags.Resolve(helper.GetCmd(), cfg)
	if err != nil {
		return tableflags.Options{}, &cmd.ConfigurationError{Err: err}
	}
	if err := opts.Validate(); err != nil {
		return tableflags.Options{}, &cmd.ConfigurationError{Err: err}
	}
	if cfg.GetString(common.ListenAddressConfigPath) == "" {
		return tableflags.Options{}, &cmd.ConfigurationError{
			Err: fmt.Errorf("--%s must not be empty", common.ListenAddressFlagName),
		}
	}
	if cfg.GetDuration(common.SessionTTLConfigPath) < 0 {
		return tableflags.Options{}, &cmd.ConfigurationError{
			Err: fmt.Errorf("--%s must not be negative", common.SessionTTLFlagName),
		}
	}
	return opts, nil
}

// newHandler wires the table handler from the resolved options and
// configuration. The returned engine must be closed.
func newHandler(helper cmd.Helper, cfg config.Hook, opts tableflags.Options) (*server.Handler, *tmpl.Engine, error) {
	logger, err := helper.GetLogger()
	if err != nil {
		return nil, nil, err
	}
	def, err := opts.Definition()
	if err != nil {
		return nil, nil, err
	}

	var engine *tmpl.Engine
	if dir := cfg.GetString(common.TemplatesDirConfigPath); dir != "" {
		engine, err = tmpl.NewDir(dir, logger)
	} else {
		engine, err = tmpl.NewFS(logger)
	}
	if err != nil {
		return nil, nil, err
	}
	def.Engine = engine

	title := cfg.GetString(common.TitleConfigPath)
	if title == "" {
		title = def.Name
	}
	return &server.Handler{
		Table:       def,
		DefaultSort: opts.Sort,
		Sessions: session.NewMemoryStore(
			cfg.GetString(common.SessionCookieConfigPath),
			cfg.GetDuration(common.SessionTTLConfigPath),
		),
		Pages:  engine,
		Title:  title,
		Logger: logger,
	}, engine, nil
}

func run(ctx context.Context, helper cmd.Helper, opts tableflags.Options) error {
	cfg, err := helper.GetConfig()
	if err != nil {
		return err
	}
	handler, engine, err := newHandler(helper, cfg, opts)
	if err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	defer engine.Close()

	addr := cfg.GetString(common.ListenAddressConfigPath)
	fmt.Fprintf(helper.GetStreams().ErrOut, "Serving %s on http://%s\n", handler.Table.Name, addr)
	if err := server.Serve(ctx, addr, server.NewMux(handler), handler.Logger); err != nil {
		return cmd.PrepareExecutionErrorFromErr(helper, err)
	}
	return nil
}
