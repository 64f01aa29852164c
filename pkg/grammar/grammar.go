package grammar

import (
	"github.com/walteh/tmcat/pkg/regex"
	"github.com/walteh/tmcat/pkg/strpiece"
)

// Grammar is a compiled grammar: the owning sequence of rules plus the
// designated root. It is immutable after compilation and safe to share
// across tokenizers.
type Grammar struct {
	rules  []*Rule
	rootID RuleID
}

// Rule returns the rule for id. Every RuleID stored inside a Grammar's
// rules is a valid index.
func (g *Grammar) Rule(id RuleID) *Rule { return g.rules[id] }

// RootID returns the id of the root rule.
func (g *Grammar) RootID() RuleID { return g.rootID }

// Root returns the root rule.
func (g *Grammar) Root() *Rule { return g.rules[g.rootID] }

// Len returns the number of compiled rules.
func (g *Grammar) Len() int { return len(g.rules) }

// PatternMatch pairs a matching rule with its capture spans.
type PatternMatch struct {
	Rule RuleID
	Caps *regex.MatchResult
}

// MatchSubpatterns gathers one candidate match per direct sub-pattern of r
// within text. Include containers are descended through (they contribute
// their patterns, not a match of their own); Match rules have no
// subpatterns; block rules offer their body patterns.
func (g *Grammar) MatchSubpatterns(r *Rule, text strpiece.Piece) []PatternMatch {
	if r.Kind == KindMatch {
		return nil
	}
	seen := make(map[RuleID]bool)
	return g.collectMatches(nil, r.Patterns, text, seen)
}

// collectMatches tries each pattern in list order. The seen set stops
// container cycles ($self included directly inside a container).
func (g *Grammar) collectMatches(acc []PatternMatch, patterns []RuleID, text strpiece.Piece, seen map[RuleID]bool) []PatternMatch {
	for _, id := range patterns {
		rule := g.rules[id]
		if rule.Kind == KindInclude {
			if seen[id] {
				continue
			}
			seen[id] = true
			acc = g.collectMatches(acc, rule.Patterns, text, seen)
			continue
		}
		if m := rule.Expr.Find(text); m != nil {
			acc = append(acc, PatternMatch{Rule: id, Caps: m})
		}
	}
	return acc
}
