// Package query builds report descriptions for the reporting API.
//
// A Query is immutable: every builder method returns a new Query and leaves
// its receiver untouched, so a shared base can be branched into variants.
//
//	base, _ := suite.Report().Range("2013-05-01", query.Until("2013-05-31"), query.Granularity("day"))
//	us, _ := base.OverTime(ctx, "pageviews")
//	us, _ = us.Filter(ctx, "US (Locked)")
package query

import (
	"context"
	"encoding/json"
	"maps"
	"slices"

	"omni-reports/internal/domain"
	"omni-reports/internal/report"
)

// Suite is the reporting suite a query runs against.
// Implemented by catalog.Suite.
type Suite interface {
	report.Catalogs
	Request(ctx context.Context, api, method string, body any) (json.RawMessage, error)
}

// DateSpec is either a single date or an explicit from/to range.
type DateSpec struct {
	Date        string
	From        string
	To          string
	Granularity string
}

// Spec is the accumulated state of a query.
type Spec struct {
	Date     *DateSpec
	Metrics  []domain.Identifier
	Elements []domain.Identifier
	Segment  *domain.Identifier
	Segments []domain.Identifier
	Extra    map[string]any
	Kind     Kind
}

// Clone returns a deep copy of s.
func (s Spec) Clone() Spec {
	c := Spec{Kind: s.Kind}
	if s.Date != nil {
		d := *s.Date
		c.Date = &d
	}
	c.Metrics = copyIdentifiers(s.Metrics)
	c.Elements = copyIdentifiers(s.Elements)
	c.Segments = copyIdentifiers(s.Segments)
	if s.Segment != nil {
		seg := s.Segment.Copy()
		c.Segment = &seg
	}
	c.Extra = make(map[string]any, len(s.Extra))
	for k, v := range s.Extra {
		c.Extra[k] = cloneValue(v)
	}
	return c
}

func copyIdentifiers(ids []domain.Identifier) []domain.Identifier {
	if ids == nil {
		return nil
	}
	out := make([]domain.Identifier, len(ids))
	for i, id := range ids {
		out[i] = id.Copy()
	}
	return out
}

// cloneValue deep-copies the JSON-like values stored by Set.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Query is an immutable report query bound to a suite.
type Query struct {
	suite Suite
	spec  Spec
}

// New returns an empty query against suite.
func New(suite Suite) *Query {
	return &Query{suite: suite, spec: Spec{Extra: map[string]any{}}}
}

// clone is the first step of every builder method.
func (q *Query) clone() *Query {
	return &Query{suite: q.suite, spec: q.spec.Clone()}
}

// Suite returns the suite the query runs against.
func (q *Query) Suite() Suite { return q.suite }

// Kind returns the report kind selected so far.
func (q *Query) Kind() Kind { return q.spec.Kind }

// Spec returns a copy of the query state.
func (q *Query) Spec() Spec { return q.spec.Clone() }

// Set stores a raw property in the report description, for API features the
// builder does not model. Identifiers are serialized to their canonical form;
// other values are stored as given.
func (q *Query) Set(key string, value any) (*Query, error) {
	if key == "" || value == nil {
		return nil, domain.ErrValidation("set requires a key and a value")
	}
	c := q.clone()
	c.spec.Extra[key] = serializeValue(value)
	return c, nil
}

// SetAll stores every entry of props as a raw property.
func (q *Query) SetAll(props map[string]any) (*Query, error) {
	if len(props) == 0 {
		return nil, domain.ErrValidation("set requires a key and a value or a properties map")
	}
	c := q.clone()
	for _, k := range sortedKeys(props) {
		if k == "" {
			return nil, domain.ErrValidation("set: property names must not be empty")
		}
		c.spec.Extra[k] = serializeValue(props[k])
	}
	return c, nil
}

// Sort is accepted by the API but not supported by this client.
func (q *Query) Sort(facet string) (*Query, error) {
	return nil, domain.ErrNotImplemented("sort by %q", facet)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
