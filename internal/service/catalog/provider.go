package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"omni-reports/internal/domain"
)

var _ domain.CatalogProvider = (*RemoteProvider)(nil)

// catalogEndpoint describes where a catalog lives in the ReportSuite API and
// which fields carry an entry's title and id.
type catalogEndpoint struct {
	method  string
	listKey string
	title   string
	id      string
}

var catalogEndpoints = map[domain.CatalogKind]catalogEndpoint{
	domain.CatalogMetrics:  {method: "GetAvailableMetrics", listKey: "available_metrics", title: "display_name", id: "metric_name"},
	domain.CatalogElements: {method: "GetAvailableElements", listKey: "available_elements", title: "display_name", id: "element_name"},
	domain.CatalogEVars:    {method: "GetEVars", listKey: "evars", title: "name", id: "evar_num"},
	domain.CatalogSegments: {method: "GetSegments", listKey: "sc_segments", title: "name", id: "id"},
}

// RemoteProvider lists catalogs through the ReportSuite API.
type RemoteProvider struct {
	requester domain.Requester
}

// NewRemoteProvider creates a RemoteProvider backed by requester.
func NewRemoteProvider(requester domain.Requester) *RemoteProvider {
	return &RemoteProvider{requester: requester}
}

// List fetches the kind catalog of suite.
func (p *RemoteProvider) List(ctx context.Context, suite domain.SuiteRef, kind domain.CatalogKind) ([]domain.Identifier, error) {
	ep, ok := catalogEndpoints[kind]
	if !ok {
		return nil, domain.ErrValidation("unknown catalog %q", kind)
	}

	raw, err := p.requester.Request(ctx, "ReportSuite", ep.method, map[string]any{
		"rsid_list": []string{suite.ID},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	var suites []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &suites); err != nil {
		return nil, fmt.Errorf("list %s: decode response: %w", kind, err)
	}
	if len(suites) == 0 {
		return nil, fmt.Errorf("list %s: empty response for suite %q", kind, suite.ID)
	}

	var entries []map[string]any
	if list, ok := suites[0][ep.listKey]; ok {
		if err := json.Unmarshal(list, &entries); err != nil {
			return nil, fmt.Errorf("list %s: decode %s: %w", kind, ep.listKey, err)
		}
	}

	return identifiersFrom(entries, suite, ep.title, ep.id), nil
}

// identifiersFrom maps raw catalog entries to Identifiers, keeping every
// field in the Extra side-map.
func identifiersFrom(entries []map[string]any, parent domain.SuiteRef, titleKey, idKey string) []domain.Identifier {
	out := make([]domain.Identifier, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.NewIdentifier(stringField(e, titleKey), stringField(e, idKey), parent, e))
	}
	return out
}

// stringField renders a JSON scalar as a string. Numeric ids such as
// evar_num come back as float64 from encoding/json.
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprint(v)
	default:
		return fmt.Sprint(v)
	}
}
