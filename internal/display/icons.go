package display

import (
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Icon is a status marker with a Unicode glyph and an ASCII fallback
type Icon struct {
	Unicode string
	ASCII   string
	Color   Color
}

// IconSystem renders status icons, falling back to ASCII when the
// terminal cannot show Unicode
type IconSystem struct {
	unicodeSupported bool
	icons            map[string]Icon
}

// NewIconSystem creates an icon system with Unicode auto-detection
func NewIconSystem() *IconSystem {
	is := &IconSystem{unicodeSupported: detectUnicodeSupport()}
	is.initializeIcons()
	return is
}

// NewIconSystemWithSupport creates an icon system with the detection
// result decided by the caller
func NewIconSystemWithSupport(unicode bool) *IconSystem {
	is := &IconSystem{unicodeSupported: unicode}
	is.initializeIcons()
	return is
}

// detectUnicodeSupport checks whether the terminal can show Unicode
// glyphs
func detectUnicodeSupport() bool {
	if os.Getenv("FORCE_UNICODE") != "" {
		return true
	}
	if os.Getenv("NO_UNICODE") != "" {
		return false
	}
	if os.Getenv("LANG") == "C" || os.Getenv("LC_ALL") == "C" {
		return false
	}
	term := os.Getenv("TERM")
	if term == "dumb" || term == "vt100" {
		return false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	return strings.Contains(strings.ToUpper(os.Getenv("LANG")), "UTF")
}

func (is *IconSystem) initializeIcons() {
	is.icons = map[string]Icon{
		"success": {Unicode: "✓", ASCII: "OK", Color: ColorGreen},
		"failed":  {Unicode: "✗", ASCII: "FAIL", Color: ColorRed},
		"skipped": {Unicode: "○", ASCII: "SKIP", Color: ColorYellow},
		"warning": {Unicode: "⚠", ASCII: "[WARN]", Color: ColorYellow},
		"info":    {Unicode: "ℹ", ASCII: "[INFO]", Color: ColorBlue},
		"bullet":  {Unicode: "•", ASCII: "*", Color: ColorWhite},
		"arrow":   {Unicode: "→", ASCII: "->", Color: ColorBlue},
	}
}

// GetIcon returns the icon registered under name
func (is *IconSystem) GetIcon(name string) (Icon, bool) {
	icon, ok := is.icons[name]
	return icon, ok
}

// RenderIcon returns the glyph or its ASCII fallback
func (is *IconSystem) RenderIcon(name string) string {
	icon, ok := is.icons[name]
	if !ok {
		return ""
	}
	if is.unicodeSupported {
		return icon.Unicode
	}
	return icon.ASCII
}

// RenderIconWithColor returns the glyph colored with its registered
// color
func (is *IconSystem) RenderIconWithColor(name string, colors ColorSystem) string {
	icon, ok := is.icons[name]
	if !ok {
		return ""
	}
	return colors.Colorize(is.RenderIcon(name), icon.Color)
}

// IsUnicodeSupported reports the detection result
func (is *IconSystem) IsUnicodeSupported() bool {
	return is.unicodeSupported
}
