// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"omni-reports/internal/domain"
)

// === Requester Mock ===

// Call records one request made through MockRequester.
type Call struct {
	API    string
	Method string
	Body   any
}

// Name returns "API.Method".
func (c Call) Name() string { return c.API + "." + c.Method }

// MockRequester implements domain.Requester for testing.
type MockRequester struct {
	RequestFn func(ctx context.Context, api, method string, body any) (json.RawMessage, error)

	mu    sync.Mutex
	calls []Call
}

// Request implements the interface method for testing.
func (m *MockRequester) Request(ctx context.Context, api, method string, body any) (json.RawMessage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{API: api, Method: method, Body: body})
	m.mu.Unlock()
	if m.RequestFn != nil {
		return m.RequestFn(ctx, api, method, body)
	}
	panic(fmt.Sprintf("unexpected call to MockRequester.Request(%s.%s)", api, method))
}

// Calls returns a copy of the recorded calls.
func (m *MockRequester) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CountMethod returns how many calls were made to api.method.
func (m *MockRequester) CountMethod(api, method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.API == api && c.Method == method {
			n++
		}
	}
	return n
}

// === Catalog Provider Mock ===

// MockCatalogProvider implements domain.CatalogProvider for testing.
type MockCatalogProvider struct {
	ListFn func(ctx context.Context, suite domain.SuiteRef, kind domain.CatalogKind) ([]domain.Identifier, error)

	mu    sync.Mutex
	calls map[domain.CatalogKind]int
}

// List implements the interface method for testing.
func (m *MockCatalogProvider) List(ctx context.Context, suite domain.SuiteRef, kind domain.CatalogKind) ([]domain.Identifier, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[domain.CatalogKind]int)
	}
	m.calls[kind]++
	m.mu.Unlock()
	if m.ListFn != nil {
		return m.ListFn(ctx, suite, kind)
	}
	panic("unexpected call to MockCatalogProvider.List")
}

// CallCount returns how many times kind was listed.
func (m *MockCatalogProvider) CallCount(kind domain.CatalogKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[kind]
}

// === Suite Fake ===

// FakeSuite is an in-memory reporting suite with fixed catalogs. Requests go
// to Requester.
type FakeSuite struct {
	SuiteRef    domain.SuiteRef
	Collections map[domain.CatalogKind]*domain.Collection
	Requester   domain.Requester
}

// NewFakeSuite returns a suite with the standard test catalogs (see
// TestCatalogs) that forwards requests to requester.
func NewFakeSuite(requester domain.Requester) *FakeSuite {
	ref := domain.SuiteRef{Title: "Test Suite", ID: "testsuite"}
	return &FakeSuite{SuiteRef: ref, Collections: TestCatalogs(ref), Requester: requester}
}

// Ref implements the interface method for testing.
func (s *FakeSuite) Ref() domain.SuiteRef { return s.SuiteRef }

// Catalog implements the interface method for testing.
func (s *FakeSuite) Catalog(_ context.Context, kind domain.CatalogKind) (*domain.Collection, error) {
	c, ok := s.Collections[kind]
	if !ok {
		return domain.NewCollection(string(kind), nil), nil
	}
	return c, nil
}

// Request implements the interface method for testing.
func (s *FakeSuite) Request(ctx context.Context, api, method string, body any) (json.RawMessage, error) {
	if s.Requester == nil {
		panic("unexpected call to FakeSuite.Request")
	}
	return s.Requester.Request(ctx, api, method, body)
}

// TestCatalogs returns a small catalog set shared by tests:
// metrics pageviews (number) and visitors (number) plus a string metric
// "category"; elements page and browser; segment "US (Locked)".
func TestCatalogs(parent domain.SuiteRef) map[domain.CatalogKind]*domain.Collection {
	metric := func(title, id, typ string) domain.Identifier {
		return domain.NewIdentifier(title, id, parent, map[string]any{"display_name": title, "metric_name": id, "type": typ})
	}
	element := func(title, id string) domain.Identifier {
		return domain.NewIdentifier(title, id, parent, map[string]any{"display_name": title, "element_name": id})
	}
	return map[domain.CatalogKind]*domain.Collection{
		domain.CatalogMetrics: domain.NewCollection("metrics", []domain.Identifier{
			metric("Page Views", "pageviews", "number"),
			metric("Visitors", "visitors", "number"),
			metric("Category", "category", "string"),
		}),
		domain.CatalogElements: domain.NewCollection("elements", []domain.Identifier{
			element("Page", "page"),
			element("Browser", "browser"),
		}),
		domain.CatalogEVars: domain.NewCollection("evars", []domain.Identifier{
			domain.NewIdentifier("Campaign", "1", parent, nil),
		}),
		domain.CatalogSegments: domain.NewCollection("segments", []domain.Identifier{
			domain.NewIdentifier("US (Locked)", "seg-us", parent, nil),
			domain.NewIdentifier("Mobile", "seg-mobile", parent, nil),
		}),
	}
}

// === Report Run Repository Mock ===

// MockReportRunRepo is an in-memory domain.ReportRunRepository. Fn fields
// override the default behavior.
type MockReportRunRepo struct {
	CreateFn       func(ctx context.Context, run *domain.ReportRun) (*domain.ReportRun, error)
	MarkCompleteFn func(ctx context.Context, id string, timing domain.Timing) error

	mu   sync.Mutex
	runs map[string]*domain.ReportRun
	seq  int
}

func (m *MockReportRunRepo) update(id string, fn func(r *domain.ReportRun)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return domain.ErrNotFound("report run %q not found", id)
	}
	fn(r)
	r.UpdatedAt = time.Now()
	return nil
}

// Create implements the interface method for testing.
func (m *MockReportRunRepo) Create(ctx context.Context, run *domain.ReportRun) (*domain.ReportRun, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[string]*domain.ReportRun)
	}
	m.seq++
	c := *run
	if c.ID == "" {
		c.ID = fmt.Sprintf("run-%d", m.seq)
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.runs[c.ID] = &c
	out := c
	return &out, nil
}

// MarkQueued implements the interface method for testing.
func (m *MockReportRunRepo) MarkQueued(_ context.Context, id, requestID string) error {
	return m.update(id, func(r *domain.ReportRun) {
		r.RequestID = requestID
		r.State = domain.ReportRunQueued
	})
}

// MarkComplete implements the interface method for testing.
func (m *MockReportRunRepo) MarkComplete(ctx context.Context, id string, timing domain.Timing) error {
	if m.MarkCompleteFn != nil {
		return m.MarkCompleteFn(ctx, id, timing)
	}
	return m.update(id, func(r *domain.ReportRun) {
		r.State = domain.ReportRunComplete
		r.QueueSeconds = &timing.Queue
		r.ExecutionSeconds = &timing.Execution
	})
}

// MarkFailed implements the interface method for testing.
func (m *MockReportRunRepo) MarkFailed(_ context.Context, id, message string) error {
	return m.update(id, func(r *domain.ReportRun) {
		r.State = domain.ReportRunFailed
		r.ErrorMessage = &message
	})
}

// MarkCancelled implements the interface method for testing.
func (m *MockReportRunRepo) MarkCancelled(_ context.Context, id string) error {
	return m.update(id, func(r *domain.ReportRun) {
		r.State = domain.ReportRunCancelled
	})
}

// GetByID implements the interface method for testing.
func (m *MockReportRunRepo) GetByID(_ context.Context, id string) (*domain.ReportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return nil, domain.ErrNotFound("report run %q not found", id)
	}
	c := *r
	return &c, nil
}

// List implements the interface method for testing.
func (m *MockReportRunRepo) List(_ context.Context, limit int) ([]domain.ReportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ReportRun, 0, len(m.runs))
	for _, r := range m.runs {
		out = append(out, *r)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
