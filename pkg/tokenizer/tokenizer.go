// Package tokenizer walks a compiled grammar over input lines and emits
// scoped tokens. Tokenization is strictly per line, but the rule stack
// persists across lines, which is how begin/end blocks span them.
package tokenizer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/walteh/tmcat/pkg/debug"
	"github.com/walteh/tmcat/pkg/grammar"
	"github.com/walteh/tmcat/pkg/regex"
	"github.com/walteh/tmcat/pkg/strpiece"
)

// frame is one entry of the rule stack. exit holds the compiled end
// expression for BeginEnd frames and the compiled while expression for
// BeginWhile frames; both are compiled at block entry, after backref
// substitution.
type frame struct {
	rule *grammar.Rule
	exit *regex.Regexp
}

// Tokenizer is the per-input state machine. It owns mutable state and must
// not be shared; the Grammar it walks is immutable and may be.
type Tokenizer struct {
	grammar *grammar.Grammar
	stack   []frame
	// scopes parallels stack: one list of contributions per frame. Slot 0
	// is the frame rule's name (possibly empty); a BeginEnd frame gains its
	// contentName in slot 1 between begin and end.
	scopes [][]string
	gen    tokenGenerator
}

// New returns a tokenizer positioned at the grammar's root.
func New(g *grammar.Grammar) *Tokenizer {
	t := &Tokenizer{grammar: g}
	t.push(g.Root(), nil)
	return t
}

// TokenizeLine tokenizes one line (without its newline) and returns the
// tokens covering it. Rule state carries over to the next call.
func (t *Tokenizer) TokenizeLine(line string) []Token {
	text := strpiece.New(line)

	// a while-block stays open only as long as its while expression keeps
	// matching at the start of each new line
	top := t.top()
	if top.rule.Kind == grammar.KindBeginWhile {
		if top.exit == nil || top.exit.Find(text) == nil {
			t.pop()
		}
	}

	t.tokenizeString(text)
	return t.gen.take()
}

func (t *Tokenizer) tokenizeString(text strpiece.Piece) {
	for {
		pos := t.tokenizeNext(text)
		if pos < 0 {
			return
		}
		text.RemovePrefix(pos - text.Start())
	}
}

// tokenizeNext applies the best match at the head of text and returns the
// absolute offset tokenization advanced to, or -1 when nothing applies and
// the remainder has been emitted.
func (t *Tokenizer) tokenizeNext(text strpiece.Piece) int {
	sub, exit := t.bestMatch(text)

	switch {
	case exit != nil:
		t.gen.generate(exit.Start(), t.scopeList())
		rule := t.top().rule
		if rule.Kind == grammar.KindBeginEnd {
			t.popAdditionScope()
			t.processCaptures(text, exit, rule.EndCaptures)
		}
		t.gen.generate(exit.End(), t.scopeList())
		t.pop()
		return exit.End()

	case sub != nil:
		caps := sub.Caps
		t.gen.generate(caps.Start(), t.scopeList())
		rule := t.grammar.Rule(sub.Rule)
		switch rule.Kind {
		case grammar.KindMatch:
			t.push(rule, nil)
			t.processCaptures(text, caps, rule.Captures)
			t.gen.generate(caps.End(), t.scopeList())
			t.pop()

		case grammar.KindBeginEnd:
			t.push(rule, t.compileExit(rule.ExitTemplate, text, caps))
			t.processCaptures(text, caps, rule.Captures)
			t.gen.generate(caps.End(), t.scopeList())
			t.pushScope(rule.ContentName)

		case grammar.KindBeginWhile:
			t.push(rule, t.compileExit(rule.ExitTemplate, text, caps))
			t.processCaptures(text, caps, rule.Captures)
			t.gen.generate(caps.End(), t.scopeList())
		}
		return caps.End()

	default:
		t.gen.generate(text.End(), t.scopeList())
		return -1
	}
}

// bestMatch arbitrates between the top frame's subpatterns and its exit
// expression. Zero-width subpattern matches are rejected so tokenization
// always advances; among subpatterns the smallest start wins, ties going to
// the earliest in pattern-list order. The exit wins a tie against a
// subpattern.
func (t *Tokenizer) bestMatch(text strpiece.Piece) (*grammar.PatternMatch, *regex.MatchResult) {
	top := t.top()

	var sub *grammar.PatternMatch
	for _, m := range t.grammar.MatchSubpatterns(top.rule, text) {
		if m.Caps.Start() == m.Caps.End() {
			continue
		}
		if sub == nil || m.Caps.Start() < sub.Caps.Start() {
			m := m
			sub = &m
		}
	}

	var exit *regex.MatchResult
	if top.rule.Kind == grammar.KindBeginEnd && top.exit != nil {
		exit = top.exit.Find(text)
	}

	switch {
	case exit == nil:
		return sub, nil
	case sub == nil:
		return nil, exit
	case exit.Start() <= sub.Caps.Start():
		return nil, exit
	default:
		return sub, nil
	}
}

// processCaptures subtokenizes the captured groups of a match under the
// given capture table. Captures nest: a capture wholly inside an earlier
// one keeps the earlier capture's frame on the stack (the active-capture
// stack below) so its scope applies to the gaps between inner captures.
func (t *Tokenizer) processCaptures(text strpiece.Piece, caps *regex.MatchResult, group grammar.CaptureGroup) {
	if len(group) == 0 || len(caps.Captures) == 0 {
		return
	}

	var active []int // end offsets of open capture frames
	for i, c := range caps.Captures {
		if !c.Present {
			continue
		}
		id, ok := group[i]
		if !ok {
			continue
		}

		for len(active) > 0 && active[len(active)-1] <= c.Start {
			t.gen.generate(active[len(active)-1], t.scopeList())
			active = active[:len(active)-1]
			t.pop()
		}

		t.gen.generate(c.Start, t.scopeList())

		rule := t.grammar.Rule(id)
		if hasSubpatterns(rule) {
			t.push(rule, nil)
			t.tokenizeString(text.Substr(c.Start-text.Start(), c.End-c.Start))
			t.pop()
			continue
		}

		t.push(rule, nil)
		active = append(active, c.End)
	}

	for len(active) > 0 {
		t.gen.generate(active[len(active)-1], t.scopeList())
		active = active[:len(active)-1]
		t.pop()
	}
}

// hasSubpatterns reports whether a capture rule carries structure of its
// own to run over the captured slice, as opposed to a bare scope name.
func hasSubpatterns(r *grammar.Rule) bool {
	if r.Kind != grammar.KindInclude {
		return true
	}
	return len(r.Patterns) > 0
}

// compileExit substitutes begin-match backrefs into an end/while template
// and compiles it. An unresolvable result (the template referenced a group
// the begin did not capture) leaves the block without a usable exit, which
// reads as "never matches".
func (t *Tokenizer) compileExit(template string, text strpiece.Piece, caps *regex.MatchResult) *regex.Regexp {
	src := replaceBackrefs(template, text, caps)
	exit, err := regex.Compile(src)
	if err != nil {
		debug.Log("tokenizer").Str("pattern", src).Err(err).Msg("exit expression did not compile")
		return nil
	}
	return exit
}

// replaceBackrefs substitutes \1..\9 with the literal text the begin match
// captured (regex-quoted, so the end expression matches those exact
// characters). References to absent groups stay as written.
func replaceBackrefs(template string, text strpiece.Piece, caps *regex.MatchResult) string {
	if !strings.ContainsRune(template, '\\') {
		return template
	}
	s := template
	for i := 1; i < len(caps.Captures) && i <= 9; i++ {
		c := caps.Captures[i]
		if !c.Present {
			continue
		}
		captured := text.FullText()[c.Start:c.End]
		s = strings.ReplaceAll(s, `\`+strconv.Itoa(i), regexp.QuoteMeta(captured))
	}
	return s
}

func (t *Tokenizer) top() *frame {
	return &t.stack[len(t.stack)-1]
}

func (t *Tokenizer) push(rule *grammar.Rule, exit *regex.Regexp) {
	t.stack = append(t.stack, frame{rule: rule, exit: exit})
	t.scopes = append(t.scopes, []string{rule.Name})
}

func (t *Tokenizer) pop() {
	t.stack = t.stack[:len(t.stack)-1]
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// pushScope adds an extra contribution (the contentName) to the top frame.
func (t *Tokenizer) pushScope(name string) {
	top := len(t.scopes) - 1
	t.scopes[top] = append(t.scopes[top], name)
}

// popAdditionScope drops everything but the frame rule's own name.
func (t *Tokenizer) popAdditionScope() {
	top := len(t.scopes) - 1
	t.scopes[top] = t.scopes[top][:1]
}

// scopeList flattens the per-frame contributions, outermost first,
// skipping unnamed entries.
func (t *Tokenizer) scopeList() []string {
	var list []string
	for _, contributions := range t.scopes {
		for _, name := range contributions {
			if name != "" {
				list = append(list, name)
			}
		}
	}
	return list
}
