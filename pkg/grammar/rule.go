package grammar

import (
	"github.com/walteh/tmcat/pkg/regex"
)

// RuleID is a dense index into a Grammar's rule array.
type RuleID int

// Kind selects which variant a Rule is.
type Kind int

const (
	// KindInclude is a bare container: it matches nothing itself and offers
	// its patterns as candidates.
	KindInclude Kind = iota
	// KindMatch is a single-regex rule producing one token span.
	KindMatch
	// KindBeginEnd opens a block on begin and closes it when the compiled
	// end expression matches.
	KindBeginEnd
	// KindBeginWhile opens a block on begin and stays open only while the
	// while expression matches at the start of each following line.
	KindBeginWhile
)

// CaptureGroup maps a capture index to the rule applied to that group's
// span. Index 0 is the whole match.
type CaptureGroup map[int]RuleID

// Rule is one compiled rule. The variant (Kind) decides which fields are
// meaningful:
//
//	Include:    Name, Patterns
//	Match:      Name, Expr, Captures
//	BeginEnd:   Name, ContentName, Expr (begin), ExitTemplate (end),
//	            Captures (begin), EndCaptures, Patterns
//	BeginWhile: Name, Expr (begin), ExitTemplate (while), Captures (begin),
//	            Patterns
//
// ExitTemplate stays a source string because it may carry \N backrefs that
// are substituted from the begin match before compiling, per block entry.
// Cross-references are RuleIDs resolved through the owning Grammar; the
// Grammar's rule array is the single strong owner, so cyclic graphs
// ($self, recursive repository entries) need no weak pointers.
type Rule struct {
	ID          RuleID
	Kind        Kind
	Name        string
	ContentName string

	Expr         *regex.Regexp
	ExitTemplate string

	Captures    CaptureGroup
	EndCaptures CaptureGroup

	Patterns []RuleID
}
