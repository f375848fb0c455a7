package domain

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// SuiteRef names the reporting suite an Identifier belongs to.
type SuiteRef struct {
	Title string
	ID    string
}

// Identifier is a resolved catalog entry: a metric, element, evar or segment.
//
// Extra holds vendor fields returned by the catalog endpoints (for metrics,
// "type" and "decimals" among others). Properties is the canonical serialized
// form sent back to the API; element modifiers add keys to it.
//
// Identifiers are values. Modifiers return a copy and never touch the receiver.
type Identifier struct {
	Title      string
	ID         string
	Parent     SuiteRef
	Extra      map[string]any
	Properties map[string]any
}

// NewIdentifier returns an Identifier whose canonical form is {"id": id}.
func NewIdentifier(title, id string, parent SuiteRef, extra map[string]any) Identifier {
	return Identifier{
		Title:      title,
		ID:         id,
		Parent:     parent,
		Extra:      maps.Clone(extra),
		Properties: map[string]any{"id": id},
	}
}

func (i Identifier) String() string {
	return fmt.Sprintf("<%s: %s in %s>", i.Title, i.ID, i.Parent.ID)
}

// ExtraString returns the vendor field key as a string, or "" when absent.
func (i Identifier) ExtraString(key string) string {
	v, ok := i.Extra[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Serialize returns the canonical form of the identifier.
func (i Identifier) Serialize() map[string]any {
	if i.Properties == nil {
		return map[string]any{"id": i.ID}
	}
	return maps.Clone(i.Properties)
}

// Copy returns an Identifier that shares no maps with i.
func (i Identifier) Copy() Identifier {
	c := i
	c.Extra = maps.Clone(i.Extra)
	c.Properties = i.Serialize()
	return c
}

// Range limits an element breakdown to rows [start, stop).
func (i Identifier) Range(start, stop int) (Identifier, error) {
	if start < 0 || stop < start {
		return Identifier{}, ErrValidation("element range [%d, %d) is invalid", start, stop)
	}
	c := i.Copy()
	c.Properties["startingWith"] = strconv.Itoa(start)
	c.Properties["top"] = strconv.Itoa(stop - start)
	return c, nil
}

// Top limits an element breakdown to its first n rows.
func (i Identifier) Top(n int) (Identifier, error) {
	return i.Range(0, n)
}

var searchTypes = []string{"AND", "OR", "NOT"}

// Search filters element rows by keywords combined with searchType
// (AND, OR or NOT, case-insensitive).
func (i Identifier) Search(searchType string, keywords ...string) (Identifier, error) {
	searchType = strings.ToUpper(searchType)
	valid := false
	for _, t := range searchTypes {
		if t == searchType {
			valid = true
			break
		}
	}
	if !valid {
		return Identifier{}, ErrValidation("search type should be one of: %s", strings.Join(searchTypes, ", "))
	}
	if len(keywords) == 0 {
		return Identifier{}, ErrValidation("search requires at least one keyword")
	}

	c := i.Copy()
	c.Properties["search"] = map[string]any{
		"type":     searchType,
		"keywords": append([]string(nil), keywords...),
	}
	return c, nil
}

// Select restricts an element breakdown to the given row keys.
func (i Identifier) Select(keys ...string) Identifier {
	c := i.Copy()
	c.Properties["selected"] = append([]string(nil), keys...)
	return c
}
