// Package style resolves token scope names to terminal styles. A theme's
// entries build a trie keyed on dot-separated scope segments; lookups take
// the deepest non-empty node, and multi-selector scopes compose by overlap.
package style

import (
	"strconv"
	"strings"
)

// Font attribute bits.
const (
	Bold uint8 = 1 << iota
	Italic
	Underline
)

// Style is a terminal style: optional 256-color foreground/background
// indices and a font attribute bitset.
type Style struct {
	fg    int
	bg    int
	attrs uint8
	// presence flags; a zero Style is the empty style
	hasFG    bool
	hasBG    bool
	hasAttrs bool
}

// WithFG returns s with the foreground set.
func (s Style) WithFG(n int) Style { s.fg, s.hasFG = n, true; return s }

// WithBG returns s with the background set.
func (s Style) WithBG(n int) Style { s.bg, s.hasBG = n, true; return s }

// WithAttrs returns s with the attribute bitset set.
func (s Style) WithAttrs(a uint8) Style { s.attrs, s.hasAttrs = a, true; return s }

// WithoutBG returns s with the background cleared.
func (s Style) WithoutBG() Style { s.bg, s.hasBG = 0, false; return s }

// IsEmpty reports whether no field is set.
func (s Style) IsEmpty() bool { return !s.hasFG && !s.hasBG && !s.hasAttrs }

// Overlap combines two styles, preferring other's fields where set.
func (s Style) Overlap(other Style) Style {
	if other.hasFG {
		s.fg, s.hasFG = other.fg, true
	}
	if other.hasBG {
		s.bg, s.hasBG = other.bg, true
	}
	if other.hasAttrs {
		s.attrs, s.hasAttrs = other.attrs, true
	}
	return s
}

// Color renders the style as an SGR escape sequence. The empty style
// renders as a reset.
func (s Style) Color() string {
	if s.IsEmpty() {
		return Reset()
	}

	var props []string
	if s.hasAttrs {
		if s.attrs&Bold != 0 {
			props = append(props, "1")
		}
		if s.attrs&Italic != 0 {
			props = append(props, "3")
		}
		if s.attrs&Underline != 0 {
			props = append(props, "4")
		}
	}
	if s.hasFG {
		props = append(props, "38;5;"+strconv.Itoa(s.fg))
	}
	if s.hasBG {
		props = append(props, "48;5;"+strconv.Itoa(s.bg))
	}
	return "\x1b[" + strings.Join(props, ";") + "m"
}

// Reset returns the SGR reset sequence.
func Reset() string { return "\x1b[0m" }

// parseFontStyle folds space-separated attribute tokens into a bitset,
// ignoring unknown tokens.
func parseFontStyle(s string) uint8 {
	var attrs uint8
	for _, field := range strings.Fields(s) {
		switch field {
		case "bold":
			attrs |= Bold
		case "italic":
			attrs |= Italic
		case "underline":
			attrs |= Underline
		}
	}
	return attrs
}
