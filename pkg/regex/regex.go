// Package regex adapts github.com/dlclark/regexp2 to the tokenizer's
// matching contract: searches happen inside a strpiece window, offsets are
// reported in bytes, and capture groups that did not participate in the
// match are reported as absent.
package regex

import (
	"gitlab.com/tozd/go/errors"

	"github.com/dlclark/regexp2"
	"github.com/walteh/tmcat/pkg/strpiece"
)

// ErrInvalidPattern marks a pattern the engine cannot compile. Grammars are
// compiled once at startup; a broken pattern is fatal for the grammar.
var ErrInvalidPattern = errors.New("invalid pattern")

// Regexp is a compiled pattern.
type Regexp struct {
	re      *regexp2.Regexp
	pattern string
}

// Compile compiles pattern, wrapping engine failures in ErrInvalidPattern.
func Compile(pattern string) (*Regexp, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, errors.Errorf("%w %q: %w", ErrInvalidPattern, pattern, err)
	}
	return &Regexp{re: re, pattern: pattern}, nil
}

// MustCompile is Compile for patterns known good at build time (tests).
func MustCompile(pattern string) *Regexp {
	re, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// String returns the source pattern.
func (re *Regexp) String() string { return re.pattern }

// Capture is one group's span in absolute byte offsets within the piece's
// full text. Groups that did not participate have Present == false.
type Capture struct {
	Start   int
	End     int
	Present bool
}

// MatchResult holds the capture spans of one match; index 0 is the whole
// match and is always present.
type MatchResult struct {
	Captures []Capture
}

// Start returns the whole match's absolute byte start.
func (m *MatchResult) Start() int { return m.Captures[0].Start }

// End returns the whole match's absolute byte end.
func (m *MatchResult) End() int { return m.Captures[0].End }

// Find searches the piece's visible window and returns the first match, or
// nil. The engine sees the full underlying line, so ^ anchors at the true
// line start only, $ at the true line end only, and \G at the search start;
// the window is enforced on the reported offsets. A match that starts
// inside the window but runs past its end is discarded and the search
// resumes one rune further, so an overlong candidate cannot hide a later
// one that fits.
func (re *Regexp) Find(text strpiece.Piece) *MatchResult {
	full := text.FullText()
	runes := []rune(full)

	// byte offset of each rune boundary, for translating engine offsets
	byteOf := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOf[i] = off
		off += len(string(r))
	}
	byteOf[len(runes)] = off

	startRune := 0
	for byteOf[startRune] < text.Start() {
		startRune++
	}

	for at := startRune; at <= len(runes); {
		m, err := re.re.FindRunesMatchStartingAt(runes, at)
		if err != nil || m == nil {
			return nil
		}
		if byteOf[m.Index] > text.End() {
			return nil
		}
		if byteOf[m.Index+m.Length] > text.End() {
			at = m.Index + 1
			continue
		}

		groups := m.Groups()
		caps := make([]Capture, len(groups))
		for i, g := range groups {
			if len(g.Captures) == 0 {
				continue // group did not participate
			}
			caps[i] = Capture{
				Start:   byteOf[g.Index],
				End:     byteOf[g.Index+g.Length],
				Present: true,
			}
		}
		return &MatchResult{Captures: caps}
	}
	return nil
}
