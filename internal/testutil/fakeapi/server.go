// Package fakeapi serves an in-process imitation of the reporting REST API
// for tests: WSSE-authenticated, dispatching on ?method=, with scripted
// report statuses and generated report bodies.
package fakeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"omni-reports/internal/middleware"
)

// Default credentials accepted by a Server.
const (
	Username = "tester:Company"
	Secret   = "s3cret"
)

// SuiteID and SuiteTitle name the single report suite a Server exposes.
const (
	SuiteID    = "testsuite"
	SuiteTitle = "Test Suite"
)

// Call is one request received by the Server.
type Call struct {
	Method    string
	Body      map[string]any
	RequestID string
}

// Failure makes GetReport answer with an error body.
type Failure struct {
	Status  string
	Message string
}

// Server is a running fake API. Use URL as the client endpoint.
type Server struct {
	mu        sync.Mutex
	statuses  []string
	failure   *Failure
	nextID    int
	reports   map[string]*queuedReport
	calls     []Call
	rateLimit *middleware.RateLimitConfig
	secrets   map[string]string

	srv *httptest.Server
}

type queuedReport struct {
	method    string
	desc      map[string]any
	polls     int
	cancelled bool
}

// Option configures a Server.
type Option func(*Server)

// WithStatuses scripts the GetStatus answers of every report. The last
// status repeats. The default is a single "done".
func WithStatuses(statuses ...string) Option {
	return func(s *Server) { s.statuses = statuses }
}

// WithFailure makes every GetReport call fail with f.
func WithFailure(f Failure) Option {
	return func(s *Server) { s.failure = &f }
}

// WithRateLimit throttles callers.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rateLimit = &middleware.RateLimitConfig{RequestsPerSecond: rps, Burst: burst}
	}
}

// WithCredentials replaces the accepted username and secret.
func WithCredentials(username, secret string) Option {
	return func(s *Server) { s.secrets = map[string]string{username: secret} }
}

// New starts a Server that is closed when t ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()
	s := &Server{
		statuses: []string{"done"},
		nextID:   100,
		reports:  make(map[string]*queuedReport),
		secrets:  map[string]string{Username: Secret},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.Handler())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the endpoint to configure clients with.
func (s *Server) URL() string { return s.srv.URL + "/" }

// Handler returns the router without starting a listener.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.WSSE(middleware.StaticSecrets(s.secrets)))
	if s.rateLimit != nil {
		r.Use(middleware.RateLimiter(*s.rateLimit))
	}
	r.Post("/", s.dispatch)
	return r
}

// Calls returns a copy of the received calls in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CountMethod returns how many calls were made to method ("Report.GetStatus").
func (s *Server) CountMethod(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Cancelled reports whether the report with the given id was cancelled.
func (s *Server) Cancelled(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	return ok && r.cancelled
}

type handlerFunc func(body map[string]any) (any, *apiError)

type apiError struct {
	code int
	body map[string]any
}

func badRequest(name, format string, args ...any) *apiError {
	return &apiError{code: http.StatusBadRequest, body: map[string]any{
		"error":             name,
		"error_description": fmt.Sprintf(format, args...),
	}}
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Query().Get("method")

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Bad Request", "error_description": "request body is not a JSON object",
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{Method: method, Body: body, RequestID: middleware.RequestIDFromContext(r.Context())})

	handlers := map[string]handlerFunc{
		"Company.GetReportSuites":          s.reportSuites,
		"ReportSuite.GetAvailableMetrics":  s.catalog("available_metrics", rawMetrics),
		"ReportSuite.GetAvailableElements": s.catalog("available_elements", rawElements),
		"ReportSuite.GetEVars":             s.catalog("evars", rawEVars),
		"ReportSuite.GetSegments":          s.catalog("sc_segments", rawSegments),
		"Report.QueueOvertime":             s.queue("QueueOvertime"),
		"Report.QueueRanked":               s.queue("QueueRanked"),
		"Report.QueueTrended":              s.queue("QueueTrended"),
		"DataWarehouse.Request":            s.queue("DataWarehouseRequest"),
		"Report.GetStatus":                 s.status,
		"Report.GetReport":                 s.report,
		"Report.CancelReport":              s.cancel("reportID"),
		"DataWarehouse.CancelRequest":      s.cancel("Request_Id"),
	}
	h, ok := handlers[method]
	if !ok {
		writeJSON(w, http.StatusBadRequest, badRequest("Bad Request", "unknown method %q", method).body)
		return
	}

	resp, apiErr := h(body)
	if apiErr != nil {
		writeJSON(w, apiErr.code, apiErr.body)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reportSuites(map[string]any) (any, *apiError) {
	return map[string]any{
		"report_suites": []map[string]any{{"rsid": SuiteID, "site_title": SuiteTitle}},
	}, nil
}

func (s *Server) catalog(listKey string, entries []map[string]any) handlerFunc {
	return func(body map[string]any) (any, *apiError) {
		if !requestsSuite(body) {
			return nil, badRequest("Bad Request", "rsid_list must name %q", SuiteID)
		}
		return []map[string]any{{"rsid": SuiteID, listKey: entries}}, nil
	}
}

func requestsSuite(body map[string]any) bool {
	list, _ := body["rsid_list"].([]any)
	return len(list) == 1 && list[0] == SuiteID
}

func (s *Server) queue(method string) handlerFunc {
	return func(body map[string]any) (any, *apiError) {
		desc, ok := body["reportDescription"].(map[string]any)
		if !ok {
			return nil, badRequest("Bad Request", "missing reportDescription")
		}
		if desc["reportSuiteID"] != SuiteID {
			return nil, badRequest("report_suite_id_invalid", "unknown report suite %v", desc["reportSuiteID"])
		}
		for _, m := range refIDs(desc["metrics"]) {
			if findEntry(rawMetrics, "metric_name", m) == nil {
				return nil, badRequest("metric_id_invalid", "metric %q not valid", m)
			}
		}
		s.nextID++
		id := strconv.Itoa(s.nextID)
		s.reports[id] = &queuedReport{method: method, desc: desc}
		return map[string]any{"reportID": s.nextID}, nil
	}
}

func (s *Server) lookup(body map[string]any, key string) (string, *queuedReport, *apiError) {
	id := fmt.Sprint(body[key])
	r, ok := s.reports[id]
	if !ok {
		return "", nil, badRequest("report_not_found", "report %s not found", id)
	}
	return id, r, nil
}

func (s *Server) status(body map[string]any) (any, *apiError) {
	_, r, apiErr := s.lookup(body, "reportID")
	if apiErr != nil {
		return nil, apiErr
	}
	n := min(r.polls, len(s.statuses)-1)
	r.polls++
	return map[string]any{"status": s.statuses[n]}, nil
}

func (s *Server) report(body map[string]any) (any, *apiError) {
	_, r, apiErr := s.lookup(body, "reportID")
	if apiErr != nil {
		return nil, apiErr
	}
	if r.cancelled {
		return nil, badRequest("report_cancelled", "report was cancelled")
	}
	if s.failure != nil {
		return nil, &apiError{code: http.StatusBadRequest, body: map[string]any{
			"status":     "failed",
			"statusMsg":  s.failure.Status,
			"statusDesc": s.failure.Message,
		}}
	}
	return map[string]any{
		"status":      "done",
		"waitSeconds": "0.2",
		"runSeconds":  "0.5",
		"report":      generate(r),
	}, nil
}

func (s *Server) cancel(key string) handlerFunc {
	return func(body map[string]any) (any, *apiError) {
		_, r, apiErr := s.lookup(body, key)
		if apiErr != nil {
			return nil, apiErr
		}
		r.cancelled = true
		return true, nil
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
