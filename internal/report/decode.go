package report

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"omni-reports/internal/domain"
)

// decodeCommon fills the fields every report kind shares and creates one
// empty column per metric.
func decodeCommon(ctx context.Context, kind string, raw json.RawMessage, suite Catalogs) (*domain.Report, *Payload, error) {
	p, err := ParsePayload(raw)
	if err != nil {
		return nil, nil, err
	}

	parent := suite.Ref()
	metrics := domain.NewCollection("metrics", identifiers(p.Report.Metrics, parent))
	rep := &domain.Report{
		Kind:     kind,
		Status:   p.Status,
		Timing:   domain.Timing{Queue: float64(p.WaitSeconds), Execution: float64(p.RunSeconds)},
		Metrics:  metrics,
		Elements: domain.NewCollection("elements", identifiers(p.Report.Elements, parent)),
		Period:   p.Report.Period,
		Columns:  domain.NewColumns(metrics),
	}

	if p.Report.SegmentID != "" {
		segments, err := suite.Catalog(ctx, domain.CatalogSegments)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve report segment: %w", err)
		}
		seg, err := segments.ByID(p.Report.SegmentID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve report segment: %w", err)
		}
		rep.Segment = &seg
	}
	return rep, p, nil
}

func identifiers(entries []map[string]any, parent domain.SuiteRef) []domain.Identifier {
	out := make([]domain.Identifier, 0, len(entries))
	for _, e := range entries {
		title, _ := e["name"].(string)
		id, _ := e["id"].(string)
		out = append(out, domain.NewIdentifier(title, id, parent, e))
	}
	return out
}

// coerce converts value to float64 when the metric is numeric and leaves it
// as received otherwise.
func coerce(metric domain.Identifier, value any) (any, error) {
	if metric.ExtraString("type") != "number" {
		return value, nil
	}
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("metric %s: parse %q as number: %w", metric.ID, v, err)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("metric %s: unexpected value %v of type %T", metric.ID, value, value)
	}
}

// eachCount calls fn for every count of every row, in row order.
func eachCount(rep *domain.Report, rows []Row, fn func(row Row, i int, v any)) error {
	for r, row := range rows {
		if len(row.Counts) > rep.Columns.Len() {
			return fmt.Errorf("row %d has %d counts for %d metrics", r, len(row.Counts), rep.Columns.Len())
		}
		for i, raw := range row.Counts {
			v, err := coerce(rep.Metrics.At(i), raw)
			if err != nil {
				return err
			}
			fn(row, i, v)
		}
	}
	return nil
}

// DecodeOverTime decodes an over-time report: column i holds counts[i] of
// every row.
func DecodeOverTime(ctx context.Context, raw json.RawMessage, suite Catalogs) (*domain.Report, error) {
	rep, p, err := decodeCommon(ctx, "overtime", raw, suite)
	if err != nil {
		return nil, err
	}
	err = eachCount(rep, p.Report.Data, func(_ Row, i int, v any) {
		rep.Columns.Append(i, v)
	})
	if err != nil {
		return nil, fmt.Errorf("decode overtime report: %w", err)
	}
	return rep, nil
}

// DecodeRanked decodes a ranked report: column values carry the row's label
// and url next to the count.
func DecodeRanked(ctx context.Context, raw json.RawMessage, suite Catalogs) (*domain.Report, error) {
	rep, p, err := decodeCommon(ctx, "ranked", raw, suite)
	if err != nil {
		return nil, err
	}
	err = eachCount(rep, p.Report.Data, func(row Row, i int, v any) {
		rep.Columns.Append(i, domain.RankedValue{Label: row.Name, URL: row.URL, Value: v})
	})
	if err != nil {
		return nil, fmt.Errorf("decode ranked report: %w", err)
	}
	return rep, nil
}

// DecodeTrended decodes the metadata of a trended report. Trended rows nest
// their counts under data.breakdown, which is not decoded: columns stay empty.
func DecodeTrended(ctx context.Context, raw json.RawMessage, suite Catalogs) (*domain.Report, error) {
	rep, _, err := decodeCommon(ctx, "trended", raw, suite)
	return rep, err
}

// DecodeDataWarehouse always fails: data warehouse results are delivered out
// of band and have no decoded form.
func DecodeDataWarehouse(context.Context, json.RawMessage, Catalogs) (*domain.Report, error) {
	return nil, domain.ErrNotImplemented("data warehouse report decoding")
}
