// Package reporting queues report queries, polls them to completion and
// decodes the results.
package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"omni-reports/internal/domain"
	"omni-reports/internal/query"
	"omni-reports/internal/report"
)

const defaultInterval = time.Second

// Engine drives submissions through queue, status polling, report polling
// and decoding.
type Engine struct {
	logger      *slog.Logger
	interval    time.Duration
	maxAttempts int
	concurrency int
	history     domain.ReportRunRepository
}

// Option configures an Engine.
type Option func(*Engine)

// WithInterval sets the delay before each poll.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) { e.interval = d }
}

// WithMaxAttempts bounds each probe to n checks. Zero means unbounded.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = n }
}

// WithConcurrency sets how many submissions SyncAll polls at once.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = n }
}

// WithHistory records every submission in repo.
func WithHistory(repo domain.ReportRunRepository) Option {
	return func(e *Engine) { e.history = repo }
}

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{logger: logger, interval: defaultInterval, concurrency: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency < 1 {
		e.concurrency = 1
	}
	if e.maxAttempts < 0 {
		e.maxAttempts = 0
	}
	return e
}

// SyncOption configures a single Sync call.
type SyncOption func(*syncOptions)

type syncOptions struct {
	heartbeat Heartbeat
}

// WithHeartbeat calls h once per poll attempt.
func WithHeartbeat(h Heartbeat) SyncOption {
	return func(o *syncOptions) { o.heartbeat = h }
}

// Queue submits sub and returns its remote request id. Queueing is
// idempotent: once a request id is assigned no further call is made.
func (e *Engine) Queue(ctx context.Context, sub *Submission) (string, error) {
	sub.queueing.Lock()
	defer sub.queueing.Unlock()

	sub.mu.Lock()
	state, id := sub.state, sub.requestID
	sub.mu.Unlock()

	if state == domain.ReportRunCancelled {
		return "", domain.ErrConflict("report %s was cancelled", id)
	}
	if id != "" {
		return id, nil
	}
	if sub.query == nil {
		return "", domain.ErrValidation("submission has no query to queue")
	}

	body, err := sub.query.Build()
	if err != nil {
		return "", err
	}
	api, method, err := sub.kind.SubmitMethod()
	if err != nil {
		return "", err
	}

	runID := e.recordCreate(ctx, sub)
	raw, err := sub.suite.Request(ctx, api, method, body)
	if err != nil {
		e.recordFailed(runID, err)
		return "", fmt.Errorf("queue %s report: %w", sub.kind, err)
	}
	id, err = requestIDFrom(raw)
	if err != nil {
		e.recordFailed(runID, err)
		return "", fmt.Errorf("queue %s report: %w", sub.kind, err)
	}

	sub.mu.Lock()
	sub.requestID = id
	sub.state = domain.ReportRunQueued
	sub.mu.Unlock()

	if e.history != nil && runID != "" {
		if err := e.history.MarkQueued(context.Background(), runID, id); err != nil {
			e.logger.Warn("record report run failed", "run_id", runID, "error", err)
		}
	}
	e.logger.InfoContext(ctx, "report queued",
		"suite", sub.suite.Ref().ID, "kind", sub.kind.String(), "request_id", id)
	return id, nil
}

// requestIDFrom reads reportID from a queue response. The API returns it as
// a number or a string depending on version.
func requestIDFrom(raw json.RawMessage) (string, error) {
	var resp struct {
		ReportID json.RawMessage `json:"reportID"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("decode queue response: %w", err)
	}
	if len(resp.ReportID) == 0 || string(resp.ReportID) == "null" {
		return "", errors.New("queue response has no reportID")
	}
	var s string
	if err := json.Unmarshal(resp.ReportID, &s); err == nil {
		if s == "" {
			return "", errors.New("queue response has an empty reportID")
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(resp.ReportID, &n); err != nil {
		return "", fmt.Errorf("decode reportID: %w", err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return strconv.FormatInt(i, 10), nil
	}
	return n.String(), nil
}

// Sync queues sub if needed, waits for the remote report and decodes it.
//
// Polling happens in two phases: the status is polled in soak mode until it
// leaves "not ready", then the report itself is fetched in strict mode.
// Concurrent Syncs of one submission run one after the other. A Cancel
// during the poll stops it and Sync returns a *domain.ConflictError.
func (e *Engine) Sync(ctx context.Context, sub *Submission, opts ...SyncOption) (*domain.Report, error) {
	var so syncOptions
	for _, opt := range opts {
		opt(&so)
	}

	sub.syncing.Lock()
	defer sub.syncing.Unlock()

	if sub.cancelled() {
		return nil, domain.ErrConflict("report %s was cancelled", sub.RequestID())
	}
	if sub.kind == query.KindDataWarehouse {
		return nil, domain.ErrNotImplemented("data warehouse reports are delivered by ftp or email and cannot be synced")
	}
	decode, err := sub.kind.Decoder()
	if err != nil {
		return nil, err
	}
	id, err := e.Queue(ctx, sub)
	if err != nil {
		return nil, err
	}

	pollCtx, stop := context.WithCancel(ctx)
	defer stop()
	sub.mu.Lock()
	sub.stopPoll = stop
	if sub.state == domain.ReportRunCancelled {
		stop()
	}
	sub.mu.Unlock()
	defer func() {
		sub.mu.Lock()
		sub.stopPoll = nil
		sub.mu.Unlock()
	}()

	rep, err := e.poll(pollCtx, sub, id, so.heartbeat, decode)
	if sub.cancelled() {
		return nil, domain.ErrConflict("report %s was cancelled", id)
	}
	if err != nil {
		if ctx.Err() != nil {
			// The remote report is untouched; a later Sync can pick it up.
			sub.transition(domain.ReportRunQueued)
		} else if sub.transition(domain.ReportRunFailed) {
			e.recordFailed(sub.RunID(), err)
		}
		e.logger.WarnContext(ctx, "report failed", "request_id", id, "kind", sub.kind.String(), "error", err)
		return nil, err
	}

	if !sub.transition(domain.ReportRunComplete) {
		return nil, domain.ErrConflict("report %s was cancelled", id)
	}
	if runID := sub.RunID(); e.history != nil && runID != "" {
		if err := e.history.MarkComplete(context.Background(), runID, rep.Timing); err != nil {
			e.logger.Warn("record report run failed", "run_id", runID, "error", err)
		}
	}
	e.logger.InfoContext(ctx, "report complete",
		"request_id", id, "kind", sub.kind.String(), "status", rep.Status,
		"queue_seconds", rep.Timing.Queue, "execution_seconds", rep.Timing.Execution)
	return rep, nil
}

func (e *Engine) poll(ctx context.Context, sub *Submission, id string, hb Heartbeat, decode report.DecodeFunc) (*domain.Report, error) {
	call := func(method string) CheckFunc {
		return func(ctx context.Context) (json.RawMessage, error) {
			return sub.suite.Request(ctx, "Report", method, map[string]any{"reportID": id})
		}
	}

	sub.transition(domain.ReportRunPollingStatus)
	if _, err := Probe(ctx, call("GetStatus"), e.probeOptions(hb, true)); err != nil {
		return nil, fmt.Errorf("poll report %s status: %w", id, err)
	}

	sub.transition(domain.ReportRunPollingReport)
	raw, err := Probe(ctx, call("GetReport"), e.probeOptions(hb, false))
	if err != nil {
		return nil, fmt.Errorf("fetch report %s: %w", id, err)
	}

	rep, err := decode(ctx, raw, sub.suite)
	if err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return rep, nil
}

func (e *Engine) probeOptions(hb Heartbeat, soak bool) ProbeOptions {
	return ProbeOptions{Heartbeat: hb, Interval: e.interval, Soak: soak, MaxAttempts: e.maxAttempts}
}

// Cancel asks the API to drop the queued report and stops a Sync polling it.
// A cancelled submission cannot be queued or synced again.
func (e *Engine) Cancel(ctx context.Context, sub *Submission) error {
	sub.mu.Lock()
	state, id := sub.state, sub.requestID
	sub.mu.Unlock()

	if state == domain.ReportRunCancelled {
		return nil
	}
	if id == "" {
		return domain.ErrValidation("cannot cancel a report that was never queued")
	}
	api, method, body, err := sub.kind.CancelRequest(id)
	if err != nil {
		return err
	}
	if _, err := sub.suite.Request(ctx, api, method, body); err != nil {
		return fmt.Errorf("cancel report %s: %w", id, err)
	}

	sub.mu.Lock()
	sub.state = domain.ReportRunCancelled
	stop, runID := sub.stopPoll, sub.runID
	sub.mu.Unlock()
	if stop != nil {
		stop()
	}

	if e.history != nil && runID != "" {
		if err := e.history.MarkCancelled(context.Background(), runID); err != nil {
			e.logger.Warn("record report run failed", "run_id", runID, "error", err)
		}
	}
	e.logger.InfoContext(ctx, "report cancelled", "request_id", id, "kind", sub.kind.String())
	return nil
}

// recordCreate stores a history record for sub and returns its id, or ""
// when history is disabled or the write failed.
func (e *Engine) recordCreate(ctx context.Context, sub *Submission) string {
	if e.history == nil {
		return ""
	}
	if runID := sub.RunID(); runID != "" {
		return runID
	}
	spec, err := json.Marshal(sub.query.Description())
	if err != nil {
		e.logger.Warn("encode report spec failed", "error", err)
	}
	run, err := e.history.Create(ctx, &domain.ReportRun{
		SuiteID:  sub.suite.Ref().ID,
		Kind:     sub.kind.String(),
		State:    domain.ReportRunUnsubmitted,
		SpecJSON: string(spec),
	})
	if err != nil {
		e.logger.Warn("record report run failed", "error", err)
		return ""
	}
	sub.mu.Lock()
	sub.runID = run.ID
	sub.mu.Unlock()
	return run.ID
}

func (e *Engine) recordFailed(runID string, cause error) {
	if e.history == nil || runID == "" {
		return
	}
	if err := e.history.MarkFailed(context.Background(), runID, cause.Error()); err != nil {
		e.logger.Warn("record report run failed", "run_id", runID, "error", err)
	}
}
