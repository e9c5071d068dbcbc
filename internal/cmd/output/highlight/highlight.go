// Package highlight colorizes markup written to a terminal.
package highlight

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"

	cmdpkg "github.com/kong/ctable/internal/cmd"
	cmdcommon "github.com/kong/ctable/internal/cmd/common"
	"github.com/kong/ctable/internal/config"
)

const (
	ThemeFlagName   = "color-theme"
	ThemeConfigPath = "color.theme"
	ModeConfigPath  = "color.enabled"
	DefaultTheme    = "friendly"
)

type Settings struct {
	ColorMode cmdcommon.ColorMode
	Theme     string
}

func AddFlags(flags *pflag.FlagSet) {
	mode := cmdpkg.NewEnum([]string{
		cmdcommon.ColorModeAuto.String(),
		cmdcommon.ColorModeAlways.String(),
		cmdcommon.ColorModeNever.String(),
	}, cmdcommon.DefaultColorMode)

	flags.Var(mode, cmdcommon.ColorFlagName,
		fmt.Sprintf(`Controls colorized output of rendered markup.
- Config path: [ %s ]
- Allowed    : [ auto|always|never ]`, ModeConfigPath))

	flags.String(ThemeFlagName, DefaultTheme,
		fmt.Sprintf(`Select the color theme used for rendered markup.
- Config path: [ %s ]
- Examples   : [ friendly, github-dark, dracula ]`, ThemeConfigPath))
}

func BindFlags(cfg config.Hook, flags *pflag.FlagSet) error {
	for _, b := range []struct{ flag, cfgPath string }{
		{cmdcommon.ColorFlagName, ModeConfigPath},
		{ThemeFlagName, ThemeConfigPath},
	} {
		if f := flags.Lookup(b.flag); f != nil {
			if err := cfg.BindFlag(b.cfgPath, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// ResolveSettings reads the color settings from cfg, which has the flags
// bound.
func ResolveSettings(cfg config.Hook) (Settings, error) {
	settings := Settings{ColorMode: cmdcommon.ColorModeAuto, Theme: DefaultTheme}
	if cfg == nil {
		return settings, nil
	}
	mode, err := cmdcommon.ColorModeStringToIota(strings.ToLower(strings.TrimSpace(cfg.GetString(ModeConfigPath))))
	if err != nil {
		return Settings{}, &cmdpkg.ConfigurationError{Err: err}
	}
	settings.ColorMode = mode
	if theme := strings.TrimSpace(cfg.GetString(ThemeConfigPath)); theme != "" {
		settings.Theme = theme
	}
	return settings, nil
}

var terminalDetector = func(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func ShouldUseColor(mode cmdcommon.ColorMode, out io.Writer) bool {
	switch mode {
	case cmdcommon.ColorModeAlways:
		return true
	case cmdcommon.ColorModeNever:
		return false
	default:
		if _, disabled := os.LookupEnv("NO_COLOR"); disabled {
			return false
		}
		return isTerminal(out)
	}
}

func isTerminal(out io.Writer) bool {
	type fdWriter interface {
		Fd() uintptr
	}
	if fw, ok := out.(fdWriter); ok {
		return terminalDetector(fw.Fd())
	}
	return false
}

// Colorize highlights src with the lexer registered under language. It
// returns src unchanged when the language, formatter or tokenizing fails.
func Colorize(src, language, theme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		return src
	}
	iterator, err := lexer.Tokenise(nil, src)
	if err != nil {
		return src
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Get("terminal")
	}
	if formatter == nil {
		return src
	}

	style := styles.Get(theme)
	if style == nil {
		style = styles.Get(DefaultTheme)
	}
	if style == nil {
		style = styles.Fallback
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return src
	}
	return buf.String()
}

// Write writes src to out, colorized when settings and out allow it.
func Write(out io.Writer, src, language string, settings Settings) error {
	if ShouldUseColor(settings.ColorMode, out) {
		src = Colorize(src, language, settings.Theme)
	}
	_, err := fmt.Fprintln(out, strings.TrimRight(src, "\n"))
	return err
}
