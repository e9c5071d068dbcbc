package highlight

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	cmdcommon "github.com/kong/ctable/internal/cmd/common"
)

type fakeTTY struct {
	bytes.Buffer
}

func (*fakeTTY) Fd() uintptr { return 42 }

func TestShouldUseColor(t *testing.T) {
	original := terminalDetector
	terminalDetector = func(fd uintptr) bool { return fd == 42 }
	t.Cleanup(func() { terminalDetector = original })

	tests := []struct {
		name    string
		mode    cmdcommon.ColorMode
		out     io.Writer
		noColor bool
		want    bool
	}{
		{name: "always on a buffer", mode: cmdcommon.ColorModeAlways, out: &bytes.Buffer{}, want: true},
		{name: "never on a terminal", mode: cmdcommon.ColorModeNever, out: &fakeTTY{}, want: false},
		{name: "auto on a terminal", mode: cmdcommon.ColorModeAuto, out: &fakeTTY{}, want: true},
		{name: "auto on a buffer", mode: cmdcommon.ColorModeAuto, out: &bytes.Buffer{}, want: false},
		{name: "auto with NO_COLOR", mode: cmdcommon.ColorModeAuto, out: &fakeTTY{}, noColor: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", "1")
			if !tt.noColor {
				require.NoError(t, os.Unsetenv("NO_COLOR"))
			}
			require.Equal(t, tt.want, ShouldUseColor(tt.mode, tt.out))
		})
	}
}

func TestColorize(t *testing.T) {
	t.Parallel()

	src := `<table class="table"><tr><td>a</td></tr></table>`
	colored := Colorize(src, "html", "dracula")
	require.NotEqual(t, src, colored)
	require.Contains(t, colored, "\x1b[")
	require.Contains(t, colored, "table")

	require.Equal(t, src, Colorize(src, "no-such-language", DefaultTheme))
}

func TestWrite(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, Write(&out, "<td>a</td>\n", "html", Settings{ColorMode: cmdcommon.ColorModeNever}))
	require.Equal(t, "<td>a</td>\n", out.String())

	out.Reset()
	require.NoError(t, Write(&out, "<td>a</td>", "html", Settings{ColorMode: cmdcommon.ColorModeAlways, Theme: "nope"}))
	require.Contains(t, out.String(), "\x1b[")
}
