package root

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/segmentio/cli"
	"github.com/spf13/cobra"

	"github.com/kong/ctable/internal/build"
	"github.com/kong/ctable/internal/cmd"
	"github.com/kong/ctable/internal/cmd/common"
	"github.com/kong/ctable/internal/cmd/root/columns"
	"github.com/kong/ctable/internal/cmd/root/render"
	"github.com/kong/ctable/internal/cmd/root/serve"
	"github.com/kong/ctable/internal/cmd/root/version"
	"github.com/kong/ctable/internal/config"
	"github.com/kong/ctable/internal/iostreams"
	"github.com/kong/ctable/internal/log"
	"github.com/kong/ctable/internal/meta"
	"github.com/kong/ctable/internal/util"
	"github.com/kong/ctable/internal/util/i18n"
	"github.com/kong/ctable/internal/util/normalizers"
)

var (
	rootLong = normalizers.LongDesc(i18n.T("root.rootLong", `
  ctable renders records as collapsible HTML tables: one row per record, with
  the nested records of a row shown in a table that expands below it.

  Tables can be written to standard output or served over HTTP with sorting
  and filtering.`))

	rootShort = i18n.T("root/rootShort", fmt.Sprintf("%s renders collapsible tables", meta.CLIName))

	rootCmd *cobra.Command

	// Stores the global runtime value for the Configuration file path
	configFilePath        string
	defaultConfigFilePath string
	currProfile           = config.DefaultProfile

	currConfig   config.Hook
	streams      *iostreams.IOStreams
	outputFormat = cmd.NewEnum([]string{"json", "yaml", "text"}, common.DefaultOutputFormat)
	logLevel     = cmd.NewEnum([]string{"trace", "debug", "info", "warn", "error"}, common.DefaultLogLevel)

	buildInfo *build.Info
	logFile   io.Closer
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   meta.CLIName,
		Short: rootShort,
		Long:  rootLong,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			logger, closer, err := newLogger(currConfig, streams.ErrOut)
			if err != nil {
				return err
			}
			logFile = closer

			ctx := context.WithValue(c.Context(), config.ConfigKey, currConfig)
			ctx = context.WithValue(ctx, iostreams.StreamsKey, streams)
			ctx = context.WithValue(ctx, build.InfoKey, buildInfo)
			ctx = log.WithLogger(ctx, logger)
			c.SetContext(ctx)
			return nil
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if logFile == nil {
				return nil
			}
			return logFile.Close()
		},
	}

	// parses all flags not just the target command
	rootCmd.TraverseChildren = true

	rootCmd.PersistentFlags().StringVar(&configFilePath, common.ConfigFilePathFlagName,
		defaultConfigFilePath,
		i18n.T("root."+common.ConfigFilePathFlagName, "Path to the configuration file to load."))

	rootCmd.PersistentFlags().StringVarP(&currProfile, common.ProfileFlagName, common.ProfileFlagShort,
		config.DefaultProfile,
		"Specify the profile to use for this command.")

	rootCmd.PersistentFlags().VarP(outputFormat, common.OutputFlagName, common.OutputFlagShort,
		fmt.Sprintf(`Configures the output format.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.OutputConfigPath, strings.Join(outputFormat.Allowed, "|")))

	rootCmd.PersistentFlags().Var(logLevel, common.LogLevelFlagName,
		fmt.Sprintf(`Configures the logging level.
- Config path: [ %s ]
- Allowed    : [ %s ]`,
			common.LogLevelConfigPath, strings.Join(logLevel.Allowed, "|")))

	rootCmd.PersistentFlags().String(common.LogFileFlagName, "",
		fmt.Sprintf(`Write logs to this file. Errors are also printed to the console.
- Config path: [ %s ]`, common.LogFileConfigPath))

	return rootCmd
}

// addCommands adds the root subcommands to the command.
func addCommands() {
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(render.NewRenderCmd())
	rootCmd.AddCommand(columns.NewColumnsCmd())
	rootCmd.AddCommand(serve.NewServeCmd())
}

func init() {
	var err error
	defaultConfigFilePath, err = config.GetDefaultConfigFilePath()
	util.CheckError(err)
	configFilePath = defaultConfigFilePath

	cobra.OnInitialize(initConfig)
	rootCmd = newRootCmd()
	addCommands()

	// Because the profile is not part of the configuration, we can't use viper
	// to read it following it's built in priorities. So here we look for a well known
	// profile variable and set our package level variable if it's set before
	// continuing to process the command run. This creates a ENV_VAR < CLI_FLAG priority
	if profileEnvVar, found := os.LookupEnv(fmt.Sprintf("%s_PROFILE", strings.ToUpper(meta.CLIName))); found {
		currProfile = profileEnvVar
	}
}

func initConfig() {
	cfg, err := config.GetConfig(configFilePath, currProfile, defaultConfigFilePath)
	util.CheckError(err)
	currConfig = cfg

	for _, b := range []struct{ flag, cfgPath string }{
		{common.OutputFlagName, common.OutputConfigPath},
		{common.LogLevelFlagName, common.LogLevelConfigPath},
		{common.LogFileFlagName, common.LogFileConfigPath},
	} {
		util.CheckError(cfg.BindFlag(b.cfgPath, rootCmd.PersistentFlags().Lookup(b.flag)))
	}
}

// newLogger builds the logger of a command run. With a log file, records at
// the configured level go to the file as JSON and errors are mirrored to the
// console in a friendly form; otherwise records go to the console as text.
func newLogger(cfg config.Hook, console io.Writer) (*slog.Logger, io.Closer, error) {
	level := log.ConfigLevelStringToSlogLevel(cfg.GetString(common.LogLevelConfigPath))
	opts := &slog.HandlerOptions{Level: level}

	path := strings.TrimSpace(cfg.GetString(common.LogFileConfigPath))
	if path == "" {
		return slog.New(slog.NewTextHandler(console, opts)), nil, nil
	}

	path = os.ExpandEnv(path)
	if err := util.InitDir(path, 0o755); err != nil {
		return nil, nil, &cmd.ConfigurationError{Err: fmt.Errorf("create log directory: %w", err)}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, &cmd.ConfigurationError{Err: fmt.Errorf("open log file: %w", err)}
	}
	handler := log.NewDualHandler(
		slog.NewJSONHandler(f, opts),
		log.NewFriendlyErrorHandler(console),
		slog.LevelError,
	)
	return slog.New(handler), f, nil
}

func Execute(ctx context.Context, s *iostreams.IOStreams, bi *build.Info) {
	buildInfo = bi
	cobra.EnableTraverseRunHooks = true
	streams = s
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	var executionError *cmd.ExecutionError
	if errors.As(err, &executionError) {
		printer, perr := cli.Format(outputFormat.String(), s.ErrOut)
		if perr != nil {
			fmt.Fprintln(s.ErrOut, "Error:", executionError.Msg)
			os.Exit(1)
		}
		printer.Print(map[string]any{
			"error": executionError.Msg,
		})
		printer.Flush()
	}
	os.Exit(1)
}
