package query

import (
	"context"

	"omni-reports/internal/domain"
)

// OverTime makes this an over-time report of one or more metrics.
func (q *Query) OverTime(ctx context.Context, metrics Ref) (*Query, error) {
	ms, err := q.resolveAll(ctx, domain.CatalogMetrics, metrics)
	if err != nil {
		return nil, err
	}
	c := q.clone()
	c.spec.Kind = KindOverTime
	c.spec.Metrics = ms
	return c, nil
}

// Ranked makes this a ranked report of metrics broken down by elements.
// Both arguments accept a single reference or a list.
func (q *Query) Ranked(ctx context.Context, metrics, elements Ref) (*Query, error) {
	ms, err := q.resolveAll(ctx, domain.CatalogMetrics, metrics)
	if err != nil {
		return nil, err
	}
	es, err := q.resolveAll(ctx, domain.CatalogElements, elements)
	if err != nil {
		return nil, err
	}
	c := q.clone()
	c.spec.Kind = KindRanked
	c.spec.Metrics = ms
	c.spec.Elements = es
	return c, nil
}

// Trended makes this a trended report of exactly one metric and one element.
func (q *Query) Trended(ctx context.Context, metric, element Ref) (*Query, error) {
	for _, ref := range []Ref{metric, element} {
		_, isList, err := expandRef(ref)
		if err != nil {
			return nil, err
		}
		if isList {
			return nil, domain.ErrValidation("trended reports can only be generated for one metric and one element")
		}
	}

	m, err := q.resolve(ctx, domain.CatalogMetrics, metric)
	if err != nil {
		return nil, err
	}
	e, err := q.resolve(ctx, domain.CatalogElements, element)
	if err != nil {
		return nil, err
	}
	c := q.clone()
	c.spec.Kind = KindTrended
	c.spec.Metrics = []domain.Identifier{m}
	c.spec.Elements = []domain.Identifier{e}
	return c, nil
}

// Data makes this a data warehouse request. Breakdowns are not supported and
// are sent as false.
func (q *Query) Data(ctx context.Context, metrics Ref) (*Query, error) {
	ms, err := q.resolveAll(ctx, domain.CatalogMetrics, metrics)
	if err != nil {
		return nil, err
	}
	c := q.clone()
	c.spec.Kind = KindDataWarehouse
	c.spec.Metrics = ms
	return c, nil
}

// Filter restricts the report to a segment. A single reference is sent as
// segment_id; a list is sent as segments.
func (q *Query) Filter(ctx context.Context, segment Ref) (*Query, error) {
	refs, isList, err := expandRef(segment)
	if err != nil {
		return nil, domain.ErrValidation("filter requires a segment or a list of segments")
	}

	c := q.clone()
	if isList {
		segs, err := q.resolveAll(ctx, domain.CatalogSegments, segment)
		if err != nil {
			return nil, err
		}
		c.spec.Segments = segs
		return c, nil
	}

	seg, err := q.resolve(ctx, domain.CatalogSegments, refs[0])
	if err != nil {
		return nil, err
	}
	c.spec.Segment = &seg
	return c, nil
}
