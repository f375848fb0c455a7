package query

// warehouseFields renames report description keys to their data warehouse
// equivalents.
var warehouseFields = map[string]string{
	"metrics":         "Metric_List",
	"breakdowns":      "Breakdown_List",
	"dateFrom":        "Date_From",
	"dateTo":          "Date_To",
	"date":            "Date_Preset",
	"dateGranularity": "Date_Granularity",
}

// Description returns the report description the query accumulated, before
// any kind-specific envelope is applied.
func (q *Query) Description() map[string]any {
	s := q.spec
	raw := make(map[string]any)

	if d := s.Date; d != nil {
		if d.Date != "" {
			raw["date"] = d.Date
		} else {
			raw["dateFrom"] = d.From
			raw["dateTo"] = d.To
		}
		if d.Granularity != "" {
			raw["dateGranularity"] = d.Granularity
		}
	}
	if len(s.Metrics) > 0 {
		raw["metrics"] = serializeIdentifiers(s.Metrics)
	}
	if len(s.Elements) > 0 {
		raw["elements"] = serializeIdentifiers(s.Elements)
	}
	if s.Segment != nil {
		raw["segment_id"] = s.Segment.ID
	}
	if len(s.Segments) > 0 {
		raw["segments"] = serializeIdentifiers(s.Segments)
	}
	if s.Kind == KindDataWarehouse {
		raw["breakdowns"] = false
	}
	for k, v := range s.Extra {
		raw[k] = cloneValue(v)
	}
	return raw
}

// Build returns the request body the query is submitted with.
func (q *Query) Build() (map[string]any, error) {
	if _, err := q.spec.Kind.entry(); err != nil {
		return nil, err
	}

	raw := q.Description()
	if q.spec.Kind != KindDataWarehouse {
		return map[string]any{"reportDescription": raw}, nil
	}

	out := make(map[string]any, len(raw))
	for k, v := range raw {
		if renamed, ok := warehouseFields[k]; ok {
			k = renamed
		}
		out[k] = v
	}
	return out, nil
}
