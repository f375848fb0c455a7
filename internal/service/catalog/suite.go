package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"

	"omni-reports/internal/domain"
	"omni-reports/internal/query"
)

var _ query.Suite = (*Suite)(nil)

// Suite is a handle to one reporting suite. Its catalogs are fetched on first
// use and kept for the lifetime of the handle.
type Suite struct {
	ref       domain.SuiteRef
	requester domain.Requester
	provider  domain.CatalogProvider
	logger    *slog.Logger
	caches    map[domain.CatalogKind]*catalogCache
}

// catalogCache guards the lazy population of one catalog.
type catalogCache struct {
	mu   sync.Mutex
	coll *domain.Collection
}

// NewSuite returns a handle for suite. provider may be nil, in which case
// catalogs are listed through requester.
func NewSuite(ref domain.SuiteRef, requester domain.Requester, provider domain.CatalogProvider, logger *slog.Logger) *Suite {
	if provider == nil {
		provider = NewRemoteProvider(requester)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	caches := make(map[domain.CatalogKind]*catalogCache, len(domain.CatalogKinds))
	for _, k := range domain.CatalogKinds {
		caches[k] = &catalogCache{}
	}
	return &Suite{ref: ref, requester: requester, provider: provider, logger: logger, caches: caches}
}

// Ref returns the suite title and id.
func (s *Suite) Ref() domain.SuiteRef { return s.ref }

// ID returns the report suite id (rsid).
func (s *Suite) ID() string { return s.ref.ID }

// Title returns the suite's display title.
func (s *Suite) Title() string { return s.ref.Title }

// Catalog returns the kind catalog, fetching it on first use. A failed fetch
// is not cached.
func (s *Suite) Catalog(ctx context.Context, kind domain.CatalogKind) (*domain.Collection, error) {
	cache, ok := s.caches[kind]
	if !ok {
		return nil, domain.ErrValidation("unknown catalog %q", kind)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.coll != nil {
		return cache.coll, nil
	}

	items, err := s.provider.List(ctx, s.ref, kind)
	if err != nil {
		return nil, err
	}
	cache.coll = domain.NewCollection(string(kind), items)
	s.logger.DebugContext(ctx, "catalog loaded", "suite", s.ref.ID, "catalog", kind, "entries", len(items))
	return cache.coll, nil
}

// Metrics returns the suite's metrics.
func (s *Suite) Metrics(ctx context.Context) (*domain.Collection, error) {
	return s.Catalog(ctx, domain.CatalogMetrics)
}

// Elements returns the suite's elements.
func (s *Suite) Elements(ctx context.Context) (*domain.Collection, error) {
	return s.Catalog(ctx, domain.CatalogElements)
}

// EVars returns the suite's conversion variables.
func (s *Suite) EVars(ctx context.Context) (*domain.Collection, error) {
	return s.Catalog(ctx, domain.CatalogEVars)
}

// Segments returns the suite's segments.
func (s *Suite) Segments(ctx context.Context) (*domain.Collection, error) {
	return s.Catalog(ctx, domain.CatalogSegments)
}

// Report starts a new, empty report query against this suite.
func (s *Suite) Report() *query.Query {
	return query.New(s)
}

// Request forwards a call to the API scoped to this suite: report
// descriptions get reportSuiteID, ReportSuite calls get rsid_list.
func (s *Suite) Request(ctx context.Context, api, method string, body any) (json.RawMessage, error) {
	if m, ok := body.(map[string]any); ok {
		scoped := maps.Clone(m)
		if desc, ok := scoped["reportDescription"].(map[string]any); ok {
			desc = maps.Clone(desc)
			desc["reportSuiteID"] = s.ref.ID
			scoped["reportDescription"] = desc
		} else if api == "ReportSuite" {
			scoped["rsid_list"] = []string{s.ref.ID}
		}
		body = scoped
	} else if body == nil && api == "ReportSuite" {
		body = map[string]any{"rsid_list": []string{s.ref.ID}}
	}
	return s.requester.Request(ctx, api, method, body)
}
