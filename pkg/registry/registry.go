// Package registry maps language identifiers to grammars and theme names
// to style trees. The built-in set is embedded at build time; additional
// grammar files can be overlaid from a directory.
package registry

import (
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"howett.net/plist"

	"github.com/walteh/tmcat/pkg/debug"
	"github.com/walteh/tmcat/pkg/grammar"
	"github.com/walteh/tmcat/pkg/regex"
	"github.com/walteh/tmcat/pkg/strpiece"
	"github.com/walteh/tmcat/pkg/style"
)

//go:embed grammars/*.tmLanguage.json
var grammarFS embed.FS

//go:embed themes/*.json
var themeFS embed.FS

// DefaultTheme is used when no theme flag is given.
const DefaultTheme = "monokai"

// ErrUnknownTheme marks a theme name the registry does not carry.
var ErrUnknownTheme = errors.New("unsupported theme")

// grammarGlobs match the grammar file names an overlay directory may
// carry: JSON grammars and plist-format .tmLanguage files.
var grammarGlobs = []string{"**/*.tmLanguage.json", "**/*.tmLanguage"}

// Registry holds the known grammar sources. It implements grammar.Loader,
// so source.* includes resolve against the same set. Populate (New,
// AddDir) before use; afterwards the registry is read-mostly and safe to
// share.
type Registry struct {
	mu       sync.Mutex
	scopes   map[string]*grammar.RawRule
	exts     map[string]string
	compiled map[string]*grammar.Grammar
}

// New returns a registry populated with the embedded grammars.
func New() (*Registry, error) {
	r := &Registry{
		scopes:   make(map[string]*grammar.RawRule),
		exts:     make(map[string]string),
		compiled: make(map[string]*grammar.Grammar),
	}

	entries, err := fs.ReadDir(grammarFS, "grammars")
	if err != nil {
		return nil, errors.Errorf("reading embedded grammars: %w", err)
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(grammarFS, path.Join("grammars", entry.Name()))
		if err != nil {
			return nil, errors.Errorf("reading embedded grammar %s: %w", entry.Name(), err)
		}
		if err := r.add(entry.Name(), data); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AddDir overlays every grammar file found below dir. Files that fail to
// parse are skipped with a debug event; a broken user overlay should not
// take down the built-in set.
func (r *Registry) AddDir(fsys afero.Fs, dir string) error {
	base := afero.NewIOFS(afero.NewBasePathFs(fsys, dir))
	for _, pattern := range grammarGlobs {
		matches, err := doublestar.Glob(base, pattern)
		if err != nil {
			return errors.Errorf("scanning grammar dir %s: %w", dir, err)
		}
		for _, name := range matches {
			data, err := afero.ReadFile(fsys, path.Join(dir, name))
			if err != nil {
				return errors.Errorf("reading grammar %s: %w", name, err)
			}
			if err := r.add(name, data); err != nil {
				debug.Log("registry").Str("file", name).Err(err).Msg("skipping grammar overlay")
			}
		}
	}
	return nil
}

// add parses one grammar file (JSON or plist by extension) and registers
// its scope name and file types.
func (r *Registry) add(name string, data []byte) error {
	var raw *grammar.RawRule
	var err error
	if strings.HasSuffix(name, ".json") {
		raw, err = grammar.ParseRawRule(data)
	} else {
		raw = &grammar.RawRule{}
		_, err = plist.Unmarshal(data, raw)
	}
	if err != nil {
		return errors.Errorf("parsing grammar %s: %w", name, err)
	}
	if raw.ScopeName == "" {
		return errors.Errorf("grammar %s has no scopeName", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.scopes[raw.ScopeName] = raw
	for _, ft := range raw.FileTypes {
		r.exts[strings.TrimPrefix(ft, ".")] = raw.ScopeName
	}
	return nil
}

// Load implements grammar.Loader for source.* includes.
func (r *Registry) Load(sourceName string) (*grammar.RawRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.scopes[sourceName]
	if !ok {
		return nil, errors.Errorf("%w: %s", grammar.ErrUnknownSource, sourceName)
	}
	return raw, nil
}

// ScopeForExt returns the scope name registered for a file extension
// (leading dot ignored).
func (r *Registry) ScopeForExt(ext string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	scope, ok := r.exts[strings.TrimPrefix(ext, ".")]
	return scope, ok
}

// ScopeForFirstLine probes each registered grammar's firstLineMatch
// against the first line of an input, for language detection on streams
// with no usable file name.
func (r *Registry) ScopeForFirstLine(line string) (string, bool) {
	r.mu.Lock()
	scopes := make([]string, 0, len(r.scopes))
	for scope := range r.scopes {
		scopes = append(scopes, scope)
	}
	r.mu.Unlock()
	sort.Strings(scopes)

	for _, scope := range scopes {
		r.mu.Lock()
		raw := r.scopes[scope]
		r.mu.Unlock()
		if raw.FirstLineMatch == "" {
			continue
		}
		re, err := regex.Compile(raw.FirstLineMatch)
		if err != nil {
			continue
		}
		if re.Find(strpiece.New(line)) != nil {
			return scope, true
		}
	}
	return "", false
}

// Grammar compiles (once) and returns the grammar for a scope name.
func (r *Registry) Grammar(scope string) (*grammar.Grammar, error) {
	r.mu.Lock()
	if g, ok := r.compiled[scope]; ok {
		r.mu.Unlock()
		return g, nil
	}
	raw, ok := r.scopes[scope]
	r.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("%w: %s", grammar.ErrUnknownSource, scope)
	}

	g, err := grammar.Compile(raw, r)
	if err != nil {
		return nil, errors.Errorf("compiling %s: %w", scope, err)
	}

	r.mu.Lock()
	r.compiled[scope] = g
	r.mu.Unlock()
	return g, nil
}

// Scopes lists the registered scope names, sorted.
func (r *Registry) Scopes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	scopes := make([]string, 0, len(r.scopes))
	for scope := range r.scopes {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// Themes provides the bundled color themes.
type Themes struct {
	trees map[string][]byte
}

// LoadThemes reads the embedded theme files.
func LoadThemes() (*Themes, error) {
	t := &Themes{trees: make(map[string][]byte)}
	entries, err := fs.ReadDir(themeFS, "themes")
	if err != nil {
		return nil, errors.Errorf("reading embedded themes: %w", err)
	}
	for _, entry := range entries {
		data, err := fs.ReadFile(themeFS, path.Join("themes", entry.Name()))
		if err != nil {
			return nil, errors.Errorf("reading theme %s: %w", entry.Name(), err)
		}
		t.trees[strings.TrimSuffix(entry.Name(), ".json")] = data
	}
	return t, nil
}

// Names lists the theme names, sorted.
func (t *Themes) Names() []string {
	names := make([]string, 0, len(t.trees))
	for name := range t.trees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open parses the named theme into a style tree. Lookup is
// case-insensitive.
func (t *Themes) Open(name string) (*style.Tree, error) {
	data, ok := t.trees[name]
	if !ok {
		for candidate, d := range t.trees {
			if strings.EqualFold(candidate, name) {
				data, ok = d, true
				break
			}
		}
	}
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrUnknownTheme, name)
	}
	return style.ParseTheme(data)
}
