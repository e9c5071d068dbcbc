package theme

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	t.Parallel()

	names := Available()
	require.Contains(t, names, DefaultName)
	require.Contains(t, names, "ctable-dark")
	require.IsIncreasing(t, names)

	p, ok := Get("  CTABLE-Dark ")
	require.True(t, ok)
	require.Equal(t, "ctable-dark", p.Name)

	_, ok = Get("neon")
	require.False(t, ok)
	require.Equal(t, DefaultName, Default().Name)
}

func TestFlag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		initial string
		set     string
		want    string
		wantErr bool
	}{
		{name: "valid", initial: DefaultName, set: "ctable-ocean", want: "ctable-ocean"},
		{name: "empty resets", initial: "ctable-dark", set: "", want: DefaultName},
		{name: "unknown default", initial: "neon", set: "ctable-dark", want: "ctable-dark"},
		{name: "invalid", initial: DefaultName, set: "neon", want: DefaultName, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := NewFlag(tc.initial)
			err := f.Set(tc.set)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tc.want, f.String())
			require.Equal(t, "string", f.Type())
		})
	}
}

func TestDerivedPalettes(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"ctable-ocean", "ctable-forest"} {
		p, ok := Get(name)
		require.True(t, ok)
		for _, token := range []Token{ColorText, ColorTextMuted, ColorBorder, ColorHeader, ColorAccent, ColorAccentFg} {
			c := p.Color(token)
			_, err := colorful.Hex(c.Light)
			require.NoError(t, err, "%s %s light", name, token)
			_, err = colorful.Hex(c.Dark)
			require.NoError(t, err, "%s %s dark", name, token)
		}
	}
}

func TestContrast(t *testing.T) {
	t.Parallel()

	require.Equal(t, "#121418", contrast("#FFFFFF"))
	require.Equal(t, "#F8F8F8", contrast("#000000"))
	require.Equal(t, "#121418", contrast("not a color"))
}

func TestAdaptiveFallbacks(t *testing.T) {
	t.Parallel()

	require.Equal(t, "#111111", Color{Light: "#111111"}.Adaptive().Dark)
	require.Equal(t, "#222222", Color{Dark: "#222222"}.Adaptive().Light)
	require.Equal(t, "#000000", Color{}.Adaptive().Light)
	require.Equal(t, "#000000", Palette{}.Color(Token("missing")).Light)
	require.Equal(t, "#676B66", Palette{}.Color(ColorTextMuted).Light)
}
