// Package grammar compiles TextMate-style grammar definitions into an
// executable rule graph. The raw JSON tree (RawRule) is decoded as-is and
// compiled once into a Grammar: a dense array of rules that reference each
// other by id, so cyclic constructs like $self resolve without special
// ownership handling.
package grammar

import (
	"bytes"
	"encoding/json"

	"gitlab.com/tozd/go/errors"
)

// RawRule mirrors the grammar wire schema (camelCase JSON, subset of the
// TextMate tmLanguage format). It is an owning tree used only at compile
// time. ScopeName, FileTypes, FirstLineMatch and the folding markers are
// meaningful on the top-level rule only.
type RawRule struct {
	Include       string              `json:"include,omitempty" plist:"include"`
	Name          string              `json:"name,omitempty" plist:"name"`
	ScopeName     string              `json:"scopeName,omitempty" plist:"scopeName"`
	ContentName   string              `json:"contentName,omitempty" plist:"contentName"`
	Match         string              `json:"match,omitempty" plist:"match"`
	Captures      *RawCaptures        `json:"captures,omitempty" plist:"captures"`
	Begin         string              `json:"begin,omitempty" plist:"begin"`
	BeginCaptures *RawCaptures        `json:"beginCaptures,omitempty" plist:"beginCaptures"`
	End           string              `json:"end,omitempty" plist:"end"`
	EndCaptures   *RawCaptures        `json:"endCaptures,omitempty" plist:"endCaptures"`
	While         string              `json:"while,omitempty" plist:"while"`
	Patterns      []*RawRule          `json:"patterns,omitempty" plist:"patterns"`
	Repository    map[string]*RawRule `json:"repository,omitempty" plist:"repository"`

	FileTypes      []string `json:"fileTypes,omitempty" plist:"fileTypes"`
	FirstLineMatch string   `json:"firstLineMatch,omitempty" plist:"firstLineMatch"`
	FoldingStart   string   `json:"foldingStartMarker,omitempty" plist:"foldingStartMarker"`
	FoldingStop    string   `json:"foldingStopMarker,omitempty" plist:"foldingStopMarker"`

	// compile-time memo: set when the rule is first visited so that shared
	// and cyclic references compile exactly once
	id *RuleID
}

// ParseRawRule decodes a grammar JSON document.
func ParseRawRule(data []byte) (*RawRule, error) {
	var raw RawRule
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Errorf("parsing grammar: %w", err)
	}
	return &raw, nil
}

// RawCaptures is the wire form of a capture table: either a map keyed by
// capture index ("0", "1", ...) or a list, where entry i applies to capture
// index i. The single-element list form is the common shorthand for a rule
// scoping the whole match.
type RawCaptures struct {
	Map  map[string]*RawRule
	List []*RawRule
}

func (c *RawCaptures) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(data, &c.List)
	}
	return json.Unmarshal(data, &c.Map)
}

// UnmarshalPlist mirrors UnmarshalJSON for plist-format grammars.
func (c *RawCaptures) UnmarshalPlist(unmarshal func(interface{}) error) error {
	var m map[string]*RawRule
	if err := unmarshal(&m); err == nil {
		c.Map = m
		return nil
	}
	return unmarshal(&c.List)
}

func (c *RawCaptures) MarshalJSON() ([]byte, error) {
	if c.List != nil {
		return json.Marshal(c.List)
	}
	return json.Marshal(c.Map)
}
