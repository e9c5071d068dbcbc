// Package theme holds the color palettes of terminal output.
package theme

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultName is the built-in theme used when no override is provided.
const DefaultName = "ctable-light"

// Token represents a semantic color slot.
type Token string

const (
	ColorText      Token = "text"
	ColorTextMuted Token = "text.muted"
	ColorBorder    Token = "border"
	ColorHeader    Token = "header"
	ColorAccent    Token = "accent"
	ColorAccentFg  Token = "accent.text"
)

// Color stores light and dark variants for adaptive rendering.
type Color struct {
	Light string
	Dark  string
}

// Adaptive converts the color into a lipgloss adaptive color.
func (c Color) Adaptive() lipgloss.AdaptiveColor {
	light, dark := strings.TrimSpace(c.Light), strings.TrimSpace(c.Dark)
	switch {
	case light == "" && dark == "":
		return lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}
	case light == "":
		light = dark
	case dark == "":
		dark = light
	}
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

// Palette is a named set of colors.
type Palette struct {
	Name        string
	DisplayName string
	Colors      map[Token]Color
}

// Color returns the color of token, falling back to the default palette.
func (p Palette) Color(token Token) Color {
	if c, ok := p.Colors[token]; ok {
		return c
	}
	if c, ok := lightPalette().Colors[token]; ok {
		return c
	}
	return Color{Light: "#000000", Dark: "#FFFFFF"}
}

// Style returns a style of r with the foreground set to token.
func (p Palette) Style(r *lipgloss.Renderer, token Token) lipgloss.Style {
	return r.NewStyle().Foreground(p.Color(token).Adaptive())
}

var palettes = func() map[string]Palette {
	m := map[string]Palette{}
	for _, p := range []Palette{
		lightPalette(),
		darkPalette(),
		fromBase("ctable-ocean", "Ocean", "#1B4965", "#5FA8D3"),
		fromBase("ctable-forest", "Forest", "#2D6A4F", "#95D5B2"),
	} {
		m[p.Name] = p
	}
	return m
}()

// Available returns the registered theme names, sorted.
func Available() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the palette with the provided name.
func Get(name string) (Palette, bool) {
	p, ok := palettes[sanitizeName(name)]
	return p, ok
}

// Default returns the default palette.
func Default() Palette {
	return palettes[DefaultName]
}

// Flag is a pflag.Value implementation for theme names.
type Flag struct {
	value string
}

// NewFlag returns a Flag with the provided default value.
func NewFlag(defaultValue string) *Flag {
	name := sanitizeName(defaultValue)
	if _, ok := palettes[name]; !ok {
		name = DefaultName
	}
	return &Flag{value: name}
}

func (f *Flag) String() string {
	if f == nil {
		return DefaultName
	}
	return f.value
}

func (f *Flag) Set(v string) error {
	name := sanitizeName(v)
	if name == "" {
		name = DefaultName
	}
	if _, ok := palettes[name]; !ok {
		return fmt.Errorf("invalid theme %q, must be one of %v", v, Available())
	}
	f.value = name
	return nil
}

func (f *Flag) Type() string {
	return "string"
}

func sanitizeName(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

// fromBase derives a palette from a dark and a light base color: headers use
// the base, borders and muted text a blend towards the background, accents
// the base with a contrasting text color.
func fromBase(name, display, onLight, onDark string) Palette {
	return Palette{
		Name:        name,
		DisplayName: display,
		Colors: map[Token]Color{
			ColorText:      {Light: "#1F2026", Dark: "#E8E9EE"},
			ColorTextMuted: {Light: blend(onLight, "#FFFFFF", 0.45), Dark: blend(onDark, "#000000", 0.35)},
			ColorBorder:    {Light: blend(onLight, "#FFFFFF", 0.6), Dark: blend(onDark, "#000000", 0.55)},
			ColorHeader:    {Light: onLight, Dark: onDark},
			ColorAccent:    {Light: onLight, Dark: onDark},
			ColorAccentFg:  {Light: contrast(onLight), Dark: contrast(onDark)},
		},
	}
}

func blend(hex, with string, amount float64) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return hex
	}
	w, err := colorful.Hex(with)
	if err != nil {
		return hex
	}
	return c.BlendLab(w, min(max(amount, 0), 1)).Clamped().Hex()
}

func contrast(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return "#121418"
	}
	r, g, b := c.LinearRgb()
	if 0.2126*r+0.7152*g+0.0722*b > 0.55 {
		return "#121418"
	}
	return "#F8F8F8"
}

func lightPalette() Palette {
	return Palette{
		Name:        DefaultName,
		DisplayName: "ctable Light",
		Colors: map[Token]Color{
			ColorText:      {Light: "#000F06", Dark: "#FFFFFF"},
			ColorTextMuted: {Light: "#676B66", Dark: "#B7BDB5"},
			ColorBorder:    {Light: "#CDD4CB", Dark: "#2D2E2C"},
			ColorHeader:    {Light: "#000F06", Dark: "#CCFF00"},
			ColorAccent:    {Light: "#3A5A00", Dark: "#CCFF00"},
			ColorAccentFg:  {Light: "#FFFFFF", Dark: "#000F06"},
		},
	}
}

func darkPalette() Palette {
	return Palette{
		Name:        "ctable-dark",
		DisplayName: "ctable Dark",
		Colors: map[Token]Color{
			ColorText:      {Light: "#FFFFFF", Dark: "#FFFFFF"},
			ColorTextMuted: {Light: "#B7BDB5", Dark: "#B7BDB5"},
			ColorBorder:    {Light: "#4A4D49", Dark: "#4A4D49"},
			ColorHeader:    {Light: "#CCFF00", Dark: "#CCFF00"},
			ColorAccent:    {Light: "#CCFF00", Dark: "#CCFF00"},
			ColorAccentFg:  {Light: "#000F06", Dark: "#000F06"},
		},
	}
}
