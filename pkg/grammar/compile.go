package grammar

import (
	"sort"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/tmcat/pkg/debug"
	"github.com/walteh/tmcat/pkg/regex"
)

var (
	// ErrUnknownInclude marks an include target that no repository on the
	// resolution stack defines.
	ErrUnknownInclude = errors.New("unknown include target")
	// ErrUnknownSource marks a source.* include the loader cannot provide.
	ErrUnknownSource = errors.New("unknown grammar source")
	// ErrMissingEnd marks a begin rule with neither end nor while.
	ErrMissingEnd = errors.New("begin rule without end")
	// ErrEmptyCaptures marks the list form of captures with no entries.
	ErrEmptyCaptures = errors.New("empty capture list")
)

// Loader resolves an external grammar source name (the "lang" part of a
// source.lang include, plus the "source." prefix) to its raw rule tree.
type Loader interface {
	Load(sourceName string) (*RawRule, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(sourceName string) (*RawRule, error)

func (f LoaderFunc) Load(sourceName string) (*RawRule, error) { return f(sourceName) }

// Compile builds a Grammar from a raw rule tree. Each raw rule compiles at
// most once (memoized through its id slot), so shared and cyclic references
// resolve to the same compiled rule. All fatal grammar defects (unknown
// includes, bad match and begin regexes, begin without end, empty capture
// lists) surface here. End and while expressions stay templates and compile
// at block entry; one that does not compile there is logged and leaves the
// block without an exit, so tokenizing never returns an error.
func Compile(raw *RawRule, loader Loader) (*Grammar, error) {
	b := &builder{loader: loader, sources: make(map[string]*RawRule)}
	ctx := compileContext{base: raw, self: raw, repoStack: repoStackFor(nil, raw)}

	root, err := b.compileRule(raw, ctx)
	if err != nil {
		return nil, err
	}

	debug.Log("grammar").
		Int("rules", len(b.rules)).
		Str("scope", raw.ScopeName).
		Msg("compiled grammar")

	return &Grammar{rules: b.rules, rootID: root}, nil
}

type builder struct {
	loader  Loader
	rules   []*Rule
	sources map[string]*RawRule
}

// compileContext travels down the compile recursion as an immutable
// snapshot: the $base and $self targets plus the stack of repository-
// carrying rules, most recent first.
type compileContext struct {
	base      *RawRule
	self      *RawRule
	repoStack []*RawRule
}

// repoStackFor pushes raw onto stack if it carries a repository. The stack
// is shared structurally; pushes copy so sibling branches are unaffected.
func repoStackFor(stack []*RawRule, raw *RawRule) []*RawRule {
	if len(raw.Repository) == 0 {
		return stack
	}
	next := make([]*RawRule, 0, len(stack)+1)
	next = append(next, raw)
	next = append(next, stack...)
	return next
}

func (c compileContext) lookup(name string) *RawRule {
	for _, holder := range c.repoStack {
		if r, ok := holder.Repository[name]; ok {
			return r
		}
	}
	return nil
}

// compileRule returns the id for raw, compiling it on first visit. A
// placeholder is registered before the body compiles so that cycles can
// close on the allocated id.
func (b *builder) compileRule(raw *RawRule, ctx compileContext) (RuleID, error) {
	if raw.id != nil {
		return *raw.id, nil
	}

	id := RuleID(len(b.rules))
	raw.id = &id
	rule := &Rule{ID: id}
	b.rules = append(b.rules, rule)

	if err := b.createRule(rule, raw, ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// createRule populates the placeholder. Variant selection follows the wire
// conventions: match beats begin; a rule without begin is a container; a
// begin rule is a while-block if while is present, otherwise it needs end.
func (b *builder) createRule(rule *Rule, raw *RawRule, ctx compileContext) error {
	switch {
	case raw.Match != "":
		expr, err := regex.Compile(raw.Match)
		if err != nil {
			return err
		}
		caps, err := b.compileCaptures(raw.Captures, ctx)
		if err != nil {
			return err
		}
		rule.Kind = KindMatch
		rule.Name = raw.Name
		rule.Expr = expr
		rule.Captures = caps

	case raw.Begin == "":
		rule.Kind = KindInclude
		if raw.ScopeName != "" {
			rule.Name = raw.ScopeName
		} else {
			rule.Name = raw.Name
		}
		patterns, err := b.compilePatterns(raw.Patterns, compileContext{
			base:      ctx.base,
			self:      ctx.self,
			repoStack: repoStackFor(ctx.repoStack, raw),
		})
		if err != nil {
			return err
		}
		rule.Patterns = patterns

	case raw.While != "":
		expr, err := regex.Compile(raw.Begin)
		if err != nil {
			return err
		}
		caps, err := b.compileCaptures(firstCaptures(raw.BeginCaptures, raw.Captures), ctx)
		if err != nil {
			return err
		}
		patterns, err := b.compilePatterns(raw.Patterns, ctx)
		if err != nil {
			return err
		}
		rule.Kind = KindBeginWhile
		rule.Name = raw.Name
		rule.Expr = expr
		rule.ExitTemplate = raw.While
		rule.Captures = caps
		rule.Patterns = patterns

	default:
		if raw.End == "" {
			return errors.Errorf("%w: begin %q", ErrMissingEnd, raw.Begin)
		}
		expr, err := regex.Compile(raw.Begin)
		if err != nil {
			return err
		}
		beginCaps, err := b.compileCaptures(firstCaptures(raw.BeginCaptures, raw.Captures), ctx)
		if err != nil {
			return err
		}
		endCaps, err := b.compileCaptures(firstCaptures(raw.EndCaptures, raw.Captures), ctx)
		if err != nil {
			return err
		}
		patterns, err := b.compilePatterns(raw.Patterns, ctx)
		if err != nil {
			return err
		}
		rule.Kind = KindBeginEnd
		rule.Name = raw.Name
		rule.ContentName = raw.ContentName
		rule.Expr = expr
		rule.ExitTemplate = raw.End
		rule.Captures = beginCaps
		rule.EndCaptures = endCaps
		rule.Patterns = patterns
	}
	return nil
}

// firstCaptures implements the captures shorthand: a block rule's captures
// key stands in for beginCaptures/endCaptures when the specific key is
// absent.
func firstCaptures(specific, shared *RawCaptures) *RawCaptures {
	if specific != nil {
		return specific
	}
	return shared
}

func (b *builder) compilePatterns(patterns []*RawRule, ctx compileContext) ([]RuleID, error) {
	compiled := make([]RuleID, 0, len(patterns))
	for _, pattern := range patterns {
		id, err := b.resolvePattern(pattern, ctx)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, id)
	}
	return compiled, nil
}

func (b *builder) resolvePattern(pattern *RawRule, ctx compileContext) (RuleID, error) {
	inc := pattern.Include
	switch {
	case inc == "":
		return b.compileRule(pattern, ctx)

	case strings.HasPrefix(inc, "#"):
		target := ctx.lookup(inc[1:])
		if target == nil {
			return 0, errors.Errorf("%w: %q", ErrUnknownInclude, inc)
		}
		return b.compileRule(target, ctx)

	case inc == "$base":
		return b.compileRule(ctx.base, ctx)

	case inc == "$self":
		return b.compileRule(ctx.self, ctx)

	default:
		sourceName, fragment, _ := strings.Cut(inc, "#")
		loaded, err := b.loadSource(sourceName)
		if err != nil {
			return 0, err
		}
		loadedCtx := compileContext{
			base:      ctx.self,
			self:      loaded,
			repoStack: repoStackFor(nil, loaded),
		}
		if fragment == "" {
			return b.compileRule(loaded, loadedCtx)
		}
		target := loadedCtx.lookup(fragment)
		if target == nil {
			return 0, errors.Errorf("%w: %q", ErrUnknownInclude, inc)
		}
		return b.compileRule(target, loadedCtx)
	}
}

// loadSource memoizes loader results so repeated source.* includes share
// one raw tree (and therefore one set of compiled rules).
func (b *builder) loadSource(sourceName string) (*RawRule, error) {
	if raw, ok := b.sources[sourceName]; ok {
		return raw, nil
	}
	if b.loader == nil {
		return nil, errors.Errorf("%w: %q", ErrUnknownSource, sourceName)
	}
	raw, err := b.loader.Load(sourceName)
	if err != nil {
		return nil, errors.Errorf("%w: %q: %w", ErrUnknownSource, sourceName, err)
	}
	if raw == nil {
		return nil, errors.Errorf("%w: %q", ErrUnknownSource, sourceName)
	}
	b.sources[sourceName] = raw
	return raw, nil
}

func (b *builder) compileCaptures(rc *RawCaptures, ctx compileContext) (CaptureGroup, error) {
	if rc == nil {
		return nil, nil
	}

	group := make(CaptureGroup)
	if rc.List != nil || rc.Map == nil {
		if len(rc.List) == 0 {
			return nil, ErrEmptyCaptures
		}
		for i, raw := range rc.List {
			id, err := b.compileRule(raw, ctx)
			if err != nil {
				return nil, err
			}
			group[i] = id
		}
		return group, nil
	}

	// compile in index order so rule ids come out deterministic
	keys := make([]int, 0, len(rc.Map))
	byIndex := make(map[int]*RawRule, len(rc.Map))
	for k, raw := range rc.Map {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Errorf("capture index %q is not a number: %w", k, err)
		}
		keys = append(keys, idx)
		byIndex[idx] = raw
	}
	sort.Ints(keys)
	for _, idx := range keys {
		id, err := b.compileRule(byIndex[idx], ctx)
		if err != nil {
			return nil, err
		}
		group[idx] = id
	}
	return group, nil
}
