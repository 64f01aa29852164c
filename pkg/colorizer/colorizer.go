// Package colorizer turns tokenized lines into styled terminal output and
// provides the cat-style writer that applies line numbering and blank-line
// squeezing on the way out.
package colorizer

import (
	"strings"

	"github.com/walteh/tmcat/pkg/grammar"
	"github.com/walteh/tmcat/pkg/style"
	"github.com/walteh/tmcat/pkg/tokenizer"
)

// LineColorizer maps each line's tokens through a style tree into an
// ANSI-styled string. It owns a tokenizer, so it is stateful across lines
// and not shareable.
type LineColorizer struct {
	styles    *style.Tree
	tokenizer *tokenizer.Tokenizer
}

// NewLineColorizer returns a colorizer for one input stream.
func NewLineColorizer(styles *style.Tree, g *grammar.Grammar) *LineColorizer {
	return &LineColorizer{
		styles:    styles,
		tokenizer: tokenizer.New(g),
	}
}

// ProcessLine colorizes one line (without its newline) and returns it with
// a trailing reset.
func (c *LineColorizer) ProcessLine(line string) string {
	tokens := c.tokenizer.TokenizeLine(line)

	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(c.styles.Style(t.Scopes).Color())
		b.WriteString(line[t.Start:t.End])
	}
	b.WriteString(style.Reset())
	return b.String()
}
