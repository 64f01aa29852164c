// Package strpiece provides a borrowed window over a line of text.
//
// The tokenizer advances through a line by shrinking the window, but regex
// anchors (^, $, \G) must keep seeing the original line boundaries. A Piece
// therefore carries the full line alongside the window position, so the
// regex layer can derive not-begin-of-line / not-end-of-line conditions from
// the window instead of re-slicing the string.
package strpiece

import "fmt"

// Piece is a value-type view (full, pos, len) with
// 0 <= pos <= pos+len <= len(full). Offsets are bytes.
type Piece struct {
	full string
	pos  int
	n    int
}

// New returns a Piece covering all of s.
func New(s string) Piece {
	return Piece{full: s, pos: 0, n: len(s)}
}

// With returns a Piece covering s[pos : pos+n]. It panics if the window is
// out of bounds; callers construct windows from regex match offsets, which
// are always within the subject.
func With(s string, pos, n int) Piece {
	if pos < 0 || n < 0 || pos+n > len(s) {
		panic(fmt.Sprintf("strpiece: window [%d,%d) out of bounds for %d bytes", pos, pos+n, len(s)))
	}
	return Piece{full: s, pos: pos, n: n}
}

// Start returns the window's absolute start offset.
func (p Piece) Start() int { return p.pos }

// End returns the window's absolute end offset.
func (p Piece) End() int { return p.pos + p.n }

// Len returns the window length in bytes.
func (p Piece) Len() int { return p.n }

// Get returns the visible slice.
func (p Piece) Get() string { return p.full[p.pos : p.pos+p.n] }

// FullText returns the whole underlying line, for anchoring.
func (p Piece) FullText() string { return p.full }

// Substr returns a sub-window at offset (relative to the window) of n bytes.
func (p Piece) Substr(offset, n int) Piece {
	if offset < 0 || n < 0 || offset+n > p.n {
		panic(fmt.Sprintf("strpiece: substr [%d,%d) out of window of %d bytes", offset, offset+n, p.n))
	}
	return Piece{full: p.full, pos: p.pos + offset, n: n}
}

// RemovePrefix advances the window start by n, shrinking the window.
func (p *Piece) RemovePrefix(n int) {
	if n > p.n {
		panic(fmt.Sprintf("strpiece: remove %d bytes from window of %d", n, p.n))
	}
	p.pos += n
	p.n -= n
}
