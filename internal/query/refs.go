package query

import (
	"context"
	"fmt"

	"omni-reports/internal/domain"
)

// Ref addresses a catalog entry: a title or id string, a domain.Identifier,
// or a slice ([]string, []domain.Identifier, []any) of those.
type Ref = any

// expandRef flattens ref into single references and reports whether ref was
// a list.
func expandRef(ref Ref) ([]Ref, bool, error) {
	switch v := ref.(type) {
	case nil:
		return nil, false, domain.ErrValidation("a metric, element or segment reference is required")
	case []string:
		out := make([]Ref, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true, nil
	case []domain.Identifier:
		out := make([]Ref, len(v))
		for i, id := range v {
			out[i] = id
		}
		return out, true, nil
	case []any:
		out := make([]Ref, len(v))
		copy(out, v)
		return out, true, nil
	default:
		return []Ref{ref}, false, nil
	}
}

// resolve turns a single reference into an Identifier, looking names up in
// the suite's kind catalog.
func (q *Query) resolve(ctx context.Context, kind domain.CatalogKind, ref Ref) (domain.Identifier, error) {
	switch v := ref.(type) {
	case domain.Identifier:
		return v.Copy(), nil
	case *domain.Identifier:
		if v == nil {
			return domain.Identifier{}, domain.ErrValidation("nil %s reference", kind)
		}
		return v.Copy(), nil
	case string:
		if v == "" {
			return domain.Identifier{}, domain.ErrValidation("empty %s reference", kind)
		}
		coll, err := q.suite.Catalog(ctx, kind)
		if err != nil {
			return domain.Identifier{}, fmt.Errorf("resolve %s %q: %w", kind, v, err)
		}
		return coll.Lookup(v)
	default:
		return domain.Identifier{}, domain.ErrValidation("unsupported %s reference of type %T", kind, ref)
	}
}

// resolveAll resolves one reference or a list of them.
func (q *Query) resolveAll(ctx context.Context, kind domain.CatalogKind, ref Ref) ([]domain.Identifier, error) {
	refs, _, err := expandRef(ref)
	if err != nil {
		return nil, err
	}
	if len(refs) == 0 {
		return nil, domain.ErrValidation("at least one %s is required", kind)
	}
	out := make([]domain.Identifier, 0, len(refs))
	for _, r := range refs {
		id, err := q.resolve(ctx, kind, r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// serializeValue converts Identifiers (and slices holding them) to their
// canonical form and leaves every other value alone.
func serializeValue(v any) any {
	switch t := v.(type) {
	case domain.Identifier:
		return t.Serialize()
	case *domain.Identifier:
		if t == nil {
			return nil
		}
		return t.Serialize()
	case []domain.Identifier:
		return serializeIdentifiers(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = serializeValue(e)
		}
		return out
	default:
		return cloneValue(v)
	}
}

func serializeIdentifiers(ids []domain.Identifier) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.Serialize()
	}
	return out
}
