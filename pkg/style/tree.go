package style

import (
	"encoding/json"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// themeJSON is the theme wire schema: an ordered list of entries mapping
// scope selectors to settings. The first entry without a scope is the
// default style.
type themeJSON struct {
	TokenColors []tokenColorJSON `json:"tokenColors"`
}

type tokenColorJSON struct {
	Name     string       `json:"name,omitempty"`
	Scope    *scopeJSON   `json:"scope,omitempty"`
	Settings rawStyleJSON `json:"settings"`
}

// scopeJSON accepts either a comma-separated string or a list of selectors.
type scopeJSON struct {
	names []string
}

func (s *scopeJSON) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		for _, name := range strings.Split(one, ",") {
			s.names = append(s.names, strings.TrimSpace(name))
		}
		return nil
	}
	return json.Unmarshal(data, &s.names)
}

type rawStyleJSON struct {
	Foreground *int   `json:"foreground,omitempty"`
	Background *int   `json:"background,omitempty"`
	FontStyle  string `json:"fontStyle,omitempty"`
}

func (r rawStyleJSON) style() Style {
	var s Style
	if r.Foreground != nil {
		s = s.WithFG(*r.Foreground)
	}
	if r.Background != nil {
		s = s.WithBG(*r.Background)
	}
	if attrs := parseFontStyle(r.FontStyle); attrs != 0 {
		s = s.WithAttrs(attrs)
	}
	return s
}

// Tree resolves dotted scope names to styles, most specific segment path
// first, with a default style layered beneath every lookup.
type Tree struct {
	root         node
	defaultStyle Style
}

type node struct {
	value    Style
	children map[string]*node
}

// ParseTheme builds a Tree from theme JSON.
func ParseTheme(data []byte) (*Tree, error) {
	var theme themeJSON
	if err := json.Unmarshal(data, &theme); err != nil {
		return nil, errors.Errorf("parsing theme: %w", err)
	}

	tree := &Tree{}
	haveDefault := false
	for _, tc := range theme.TokenColors {
		if tc.Scope == nil {
			if !haveDefault {
				// the terminal's own background is respected
				tree.defaultStyle = tc.Settings.style().WithoutBG()
				haveDefault = true
			}
			continue
		}
		for _, name := range tc.Scope.names {
			if name == "" {
				continue
			}
			tree.insert(name, tc.Settings.style())
		}
	}
	return tree, nil
}

func (t *Tree) insert(key string, value Style) {
	t.root.insert(strings.Split(key, "."), value)
}

func (n *node) insert(keys []string, value Style) {
	if len(keys) == 0 {
		n.value = value
		return
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	child, ok := n.children[keys[0]]
	if !ok {
		child = &node{}
		n.children[keys[0]] = child
	}
	child.insert(keys[1:], value)
}

// get descends greedily along the dotted key and returns the deepest
// non-empty style on the path.
func (n *node) get(keys []string) Style {
	if len(keys) > 0 {
		if child, ok := n.children[keys[0]]; ok {
			if v := child.get(keys[1:]); !v.IsEmpty() {
				return v
			}
		}
	}
	return n.value
}

// Get resolves one token scope entry. The entry may carry several
// space-separated selectors; their styles overlap in order.
func (t *Tree) Get(scope string) Style {
	var style Style
	for _, selector := range strings.Fields(scope) {
		style = style.Overlap(t.root.get(strings.Split(selector, ".")))
	}
	return style
}

// Style resolves a token's scope list (outermost first) to its final
// style: per-scope results overlap in list order, atop the default.
func (t *Tree) Style(scopes []string) Style {
	var style Style
	for _, scope := range scopes {
		style = style.Overlap(t.Get(scope))
	}
	return t.defaultStyle.Overlap(style)
}

// Default returns the theme's default style.
func (t *Tree) Default() Style { return t.defaultStyle }
