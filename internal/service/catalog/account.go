// Package catalog resolves reporting suites and their metric, element, evar
// and segment catalogs.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"omni-reports/internal/domain"
)

// Account is an authenticated view of the reporting API: it lists the
// company's report suites and hands out Suite handles.
type Account struct {
	requester domain.Requester
	provider  domain.CatalogProvider
	logger    *slog.Logger

	mu     sync.Mutex
	suites *domain.Collection
	byID   map[string]*Suite
}

// NewAccount creates an Account on top of requester. provider may be nil.
func NewAccount(requester domain.Requester, provider domain.CatalogProvider, logger *slog.Logger) *Account {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Account{
		requester: requester,
		provider:  provider,
		logger:    logger,
		byID:      make(map[string]*Suite),
	}
}

// Suites lists the company's report suites. The list is fetched once.
func (a *Account) Suites(ctx context.Context) (*domain.Collection, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loadSuitesLocked(ctx)
}

func (a *Account) loadSuitesLocked(ctx context.Context) (*domain.Collection, error) {
	if a.suites != nil {
		return a.suites, nil
	}

	raw, err := a.requester.Request(ctx, "Company", "GetReportSuites", nil)
	if err != nil {
		return nil, fmt.Errorf("list report suites: %w", err)
	}
	var resp struct {
		ReportSuites []map[string]any `json:"report_suites"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("list report suites: decode response: %w", err)
	}

	items := identifiersFrom(resp.ReportSuites, domain.SuiteRef{}, "site_title", "rsid")
	a.suites = domain.NewCollection("suites", items)
	a.logger.DebugContext(ctx, "report suites loaded", "count", len(items))
	return a.suites, nil
}

// Suite resolves a report suite by title or rsid and returns its handle.
// Handles are shared, so catalogs are cached per suite across callers.
func (a *Account) Suite(ctx context.Context, key string) (*Suite, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	suites, err := a.loadSuitesLocked(ctx)
	if err != nil {
		return nil, err
	}
	id, err := suites.Lookup(key)
	if err != nil {
		return nil, err
	}
	if s, ok := a.byID[id.ID]; ok {
		return s, nil
	}
	s := NewSuite(domain.SuiteRef{Title: id.Title, ID: id.ID}, a.requester, a.provider, a.logger)
	a.byID[id.ID] = s
	return s, nil
}
